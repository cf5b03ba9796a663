package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
	"github.com/CVO-TreeAi/terminote/internal/interface/repl"
)

var writeCmd = &cobra.Command{
	Use:     "write [name]",
	Aliases: []string{"w"},
	Short:   "Start or resume a writing session",
	Long: `Open an interactive writing session.

Free text is appended to the document; slash commands save, export,
and call the AI. Without a name a timestamped session is created.

Examples:
  neo write
  neo write novel-draft
  neo w novel-draft`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	return startWriteSession(cmd, name)
}

// startWriteSession opens the named session (or a fresh one) and runs
// write mode over it. Also used by `sessions pick`.
func startWriteSession(cmd *cobra.Command, name string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	in, err := repl.NewLineReader(filepath.Join(cfg.Dir(), ".write_history"))
	if err != nil {
		return err
	}
	defer in.Close()

	sess, err := openOrCreate(mgr, name)
	if err != nil {
		return err
	}
	if !confirmRecovery(cmd, in, mgr, sess) {
		return nil
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	ai, err := newAssistant(engine)
	if err != nil {
		return err
	}

	var assistant repl.Assistant
	if ai != nil {
		assistant = ai
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No API key configured; AI commands are off. Run 'neo setup' to enable them.")
	}

	w := repl.NewWriteMode(mgr, assistant, cfg, sess, in, cmd.OutOrStdout())
	return w.Run(cmd.Context())
}

// openOrCreate loads an existing session by name or creates it. An
// empty name always creates a fresh timestamped session.
func openOrCreate(mgr *session.Manager, name string) (*models.Session, error) {
	if name == "" {
		return mgr.Create("")
	}
	sess, err := mgr.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		return mgr.Create(name)
	}
	return sess, err
}

// confirmRecovery explains any recovery the store performed and, for a
// session that came back empty from a corrupt file, asks before going
// on. Declining leaves the quarantined file untouched for inspection.
func confirmRecovery(cmd *cobra.Command, in repl.LineReader, mgr *session.Manager, sess *models.Session) bool {
	out := cmd.OutOrStdout()
	if sess.RestoredFromBackup {
		fmt.Fprintf(out, "Note: %s could not be read; restored from its backup (possibly older).\n", sess.Name)
		return true
	}
	if sess.Recovered {
		fmt.Fprintf(out, "Warning: the file for %s was corrupt.\n", sess.Name)
		fmt.Fprintf(out, "The damaged file is kept at %s.\n", mgr.Store().QuarantinePath(sess.Name))
		if !repl.Confirm(in, out, "Continue with an empty session under this name?", false) {
			fmt.Fprintln(out, "Nothing changed. Inspect the quarantined file to recover your text.")
			return false
		}
	}
	return true
}
