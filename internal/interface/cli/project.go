package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/interface/repl"
)

var projectCmd = &cobra.Command{
	Use:     "project [name]",
	Aliases: []string{"p"},
	Short:   "Start or resume a project session",
	Long: `Open an interactive project session.

Project sessions are conversational: talk through your project with
the AI, then use /plan, /tasks, /docs, and /code-review. The plan and
conversation persist like any other session.

Examples:
  neo project
  neo project webapp
  neo p webapp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}

	in, err := repl.NewLineReader(filepath.Join(cfg.Dir(), ".project_history"))
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
	if sess.Metadata.Project == "" {
		sess.Metadata.Project = sess.Name
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	ai, err := newAssistant(engine)
	if err != nil {
		return err
	}
	builder, err := newDocBuilder(engine)
	if err != nil {
		return err
	}

	var assistant repl.ProjectAssistant
	if ai != nil {
		assistant = ai
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No API key configured; AI commands are off. Run 'neo setup' to enable them.")
	}

	p := repl.NewProjectMode(mgr, assistant, builder, cfg, sess, in, cmd.OutOrStdout())
	return p.Run(cmd.Context())
}
