package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/interface/repl"
	"github.com/CVO-TreeAi/terminote/internal/interface/tui"
)

var (
	sessionsLimit  int
	sessionsForce  bool
	sessionsOutput string
	sessionsName   string
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"s"},
	Short:   "List and manage writing sessions",
	Long: `List and manage the sessions stored under ~/.terminote/sessions.

Without a subcommand, lists sessions most recently modified first.

Examples:
  neo sessions
  neo sessions search "after:last-week draft"
  neo sessions rename old-name new-name
  neo sessions pick`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionsList,
}

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search sessions by text and date",
	Long: `Search session names, content, and metadata.

Date filters ride along in the query: after:yesterday, before:2025-06-01,
after:last-week. The rest of the query matches as text.

Examples:
  neo sessions search dragon
  neo sessions search "after:yesterday meeting"
  neo sessions search "before:last-month"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionsSearch,
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics across all sessions",
	RunE:  runSessionsStats,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a session and its backup",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsDelete,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

var sessionsDuplicateCmd = &cobra.Command{
	Use:     "duplicate <name> [copy-name]",
	Aliases: []string{"dup"},
	Short:   "Duplicate a session",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runSessionsDuplicate,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a session to markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsExport,
}

var sessionsPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a session interactively and start writing",
	RunE:  runSessionsPick,
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Create sessions from text or markdown files",
	Long: `Create a session from each file, keeping the file's modification time.

The session name comes from --name (single file only), the file's
leading markdown heading, or the filename.

Examples:
  neo sessions import notes.md
  neo sessions import chapters/*.md
  neo sessions import --name draft2 scratch.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionsImport,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsSearchCmd, sessionsStatsCmd,
		sessionsDeleteCmd, sessionsRenameCmd, sessionsDuplicateCmd,
		sessionsExportCmd, sessionsPickCmd, sessionsImportCmd)

	sessionsCmd.PersistentFlags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to display")
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsForce, "force", "f", false, "Delete without confirmation")
	sessionsExportCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "", "Output file path (default <name>.md)")
	sessionsImportCmd.Flags().StringVarP(&sessionsName, "name", "n", "", "Session name (single file only)")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	infos, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No sessions yet. Start one with 'neo write'.")
		return nil
	}
	printSessions(infos, "")
	return nil
}

func runSessionsSearch(cmd *cobra.Command, args []string) error {
	query := ""
	for i, a := range args {
		if i > 0 {
			query += " "
		}
		query += a
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	infos, err := mgr.Search(query)
	if err != nil {
		return fmt.Errorf("failed to search sessions: %w", err)
	}
	if len(infos) == 0 {
		fmt.Printf("No sessions match: %s\n", query)
		return nil
	}
	printSessions(infos, query)
	return nil
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	st, err := mgr.Stats()
	if err != nil {
		return fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	fmt.Println("Session Statistics")
	fmt.Println("==================")
	fmt.Println()
	fmt.Printf("Sessions:       %d\n", st.Sessions)
	fmt.Printf("Total words:    %d\n", st.TotalWords)
	if st.Sessions > 0 {
		fmt.Printf("Largest:        %s (%d words)\n", st.Largest, st.LargestWords)
		fmt.Printf("Oldest:         %s\n", st.Oldest.Format("Jan 2, 2006 3:04 PM"))
		fmt.Printf("Last activity:  %s\n", humanize.Time(st.Newest))
	}
	fmt.Printf("Storage:        %s\n", cfg.SessionsDir())
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	mgr, err := newManager()
	if err != nil {
		return err
	}
	if !sessionsForce {
		in := repl.NewBasicReader(cmd.InOrStdin(), cmd.OutOrStdout())
		if !repl.Confirm(in, cmd.OutOrStdout(), fmt.Sprintf("Delete %s and its backup?", name), false) {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	if err := mgr.Delete(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Printf("Deleted %s\n", name)
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	if err := mgr.Rename(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	fmt.Printf("Renamed %s to %s\n", args[0], args[1])
	return nil
}

func runSessionsDuplicate(cmd *cobra.Command, args []string) error {
	dst := ""
	if len(args) == 2 {
		dst = args[1]
	} else {
		dst = args[0] + "-copy"
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	dup, err := mgr.Duplicate(args[0], dst)
	if err != nil {
		return fmt.Errorf("failed to duplicate session: %w", err)
	}
	fmt.Printf("Duplicated %s to %s\n", args[0], dup.Name)
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	path, err := mgr.Export(args[0], sessionsOutput)
	if err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func runSessionsPick(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	infos, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No sessions yet. Start one with 'neo write'.")
		return nil
	}

	name, err := tui.Pick(infos)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	return startWriteSession(cmd, name)
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	if sessionsName != "" && len(args) > 1 {
		return fmt.Errorf("--name applies to a single file, got %d", len(args))
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}

	imported := 0
	for i, path := range args {
		fmt.Printf("[%d/%d] %s: ", i+1, len(args), path)
		sess, err := mgr.ImportFile(path, sessionsName)
		if err != nil {
			fmt.Printf("skipped (%v)\n", err)
			continue
		}
		imported++
		fmt.Printf("imported as %s (%d words)\n", sess.Name, sess.WordCount)
	}

	if imported < len(args) {
		fmt.Printf("\nImported %d of %d files.\n", imported, len(args))
	}
	if imported == 0 {
		return fmt.Errorf("no files imported")
	}
	return nil
}

// printSessions renders a numbered listing, most recent first
func printSessions(infos []models.SessionInfo, query string) {
	shown := infos
	if len(shown) > sessionsLimit {
		shown = shown[:sessionsLimit]
	}

	if query != "" {
		fmt.Printf("Found %d session(s) matching %q:\n\n", len(infos), query)
	} else {
		fmt.Printf("Showing %d of %d session(s):\n\n", len(shown), len(infos))
	}

	for i, info := range shown {
		fmt.Printf("[%d] %s\n", i+1, info.Name)
		fmt.Printf("    Words: %d\n", info.WordCount)
		fmt.Printf("    Modified: %s\n", humanize.Time(info.LastModified))
		if info.Preview != "" {
			fmt.Printf("    Preview: %s\n", info.Preview)
		}
		fmt.Println()
	}
}
