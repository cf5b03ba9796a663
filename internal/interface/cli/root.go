package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/docbuilder"
	"github.com/CVO-TreeAi/terminote/internal/core/llm"
	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/platform"
	"github.com/CVO-TreeAi/terminote/internal/core/prompts"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
)

var (
	baseDir     string
	versionInfo string

	cfg     *config.Config
	advisor *platform.Advisor
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := guidance(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neo",
	Short: "AI-assisted writing in your terminal",
	Long: `neo - TermiNote's AI-assisted writing companion

Write, brainstorm, and plan projects in terminal sessions that persist
as plain JSON files under ~/.terminote, with OpenRouter models one
slash-command away.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", "", "Storage root (default ~/.terminote)")
}

// initApp loads configuration and wires logging. A broken config file
// warns and continues on defaults; only an unusable storage root is
// fatal.
func initApp() error {
	var err error
	cfg, err = config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (continuing with defaults)\n", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := logging.Init(filepath.Join(cfg.LogsDir(), "terminote.log")); err != nil {
		return err
	}
	logging.SetDebug(cfg.Debug)
	advisor = platform.NewAdvisor(platform.Detect())
	return nil
}

// newManager opens the session store under the configured root
func newManager() (*session.Manager, error) {
	st, err := store.New(cfg.SessionsDir())
	if err != nil {
		return nil, err
	}
	return session.NewManager(st), nil
}

// newEngine loads prompt templates with user overrides applied
func newEngine() (*prompts.Engine, error) {
	return prompts.NewEngine(cfg.PromptsDir())
}

// newAssistant builds the AI client, or returns nil when no API key is
// configured. Callers treat a nil client as "AI features off".
func newAssistant(engine *prompts.Engine) (*llm.Client, error) {
	client, err := llm.NewClient(cfg, engine)
	if errors.Is(err, config.ErrMissingAPIKey) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newDocBuilder returns a doc builder, nil without an API key
func newDocBuilder(engine *prompts.Engine) (*docbuilder.Builder, error) {
	client, err := newAssistant(engine)
	if err != nil || client == nil {
		return nil, err
	}
	return docbuilder.NewBuilder(client, engine), nil
}

// guidance maps well-known failures to remediation text
func guidance(err error) string {
	var storageErr *store.StorageError
	var apiErr *openai.APIError

	switch {
	case errors.Is(err, config.ErrMissingAPIKey):
		return advisor.Hint(platform.IssueAPIKey)
	case errors.As(err, &storageErr):
		return advisor.Hint(platform.IssuePermission)
	case errors.As(err, &apiErr):
		if apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 {
			return "Your API key was rejected. " + advisor.Hint(platform.IssueAPIKey)
		}
		if apiErr.HTTPStatusCode == 429 {
			return "You are being rate limited; wait a moment and retry."
		}
		return advisor.Hint(platform.IssueNetwork)
	case errors.Is(err, store.ErrNotFound):
		return "Run 'neo sessions' to list what exists."
	}
	return ""
}
