package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/interface/repl"
)

// modelChoices are the OpenRouter models offered during setup. Any
// other identifier can be entered manually.
var modelChoices = []string{
	"anthropic/claude-3.5-sonnet",
	"anthropic/claude-3-haiku",
	"openai/gpt-4o",
	"meta-llama/llama-3.1-8b-instruct",
	"google/gemini-pro-1.5",
	"mistralai/mistral-large",
}

var setupCmd = &cobra.Command{
	Use:     "setup",
	Aliases: []string{"init"},
	Short:   "Configure your API key and preferences",
	Long: `Interactive first-run setup.

Stores your OpenRouter API key in ~/.terminote/.env (mode 0600), picks
a default model, and writes preferences to ~/.terminote/config.yaml.

Examples:
  neo setup
  OPENROUTER_API_KEY=sk-or-... neo setup   (key taken from environment)`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	in := repl.NewBasicReader(cmd.InOrStdin(), cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "TermiNote setup")
	fmt.Fprintln(out, "===============")
	fmt.Fprintln(out)

	// API key
	prompt := "OpenRouter API key: "
	if cfg.APIKey != "" {
		prompt = fmt.Sprintf("OpenRouter API key [%s, Enter to keep]: ", cfg.MaskedKey())
	}
	key, err := in.ReadLine(prompt)
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key != "" {
		if !strings.HasPrefix(key, "sk-") {
			fmt.Fprintln(out, "Note: OpenRouter keys normally start with sk-; saving anyway.")
		}
		if err := cfg.SetAPIKey(key); err != nil {
			return err
		}
		fmt.Fprintln(out, "API key saved.")
	}

	// Default model
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Default model:")
	for i, m := range modelChoices {
		marker := " "
		if m == cfg.Models.Default {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %d. %s\n", marker, i+1, m)
	}
	choice, err := in.ReadLine(fmt.Sprintf("Pick 1-%d, type a model id, or Enter to keep [%s]: ", len(modelChoices), cfg.Models.Default))
	if err != nil {
		return fmt.Errorf("read model choice: %w", err)
	}
	if model := parseModelChoice(choice); model != "" {
		cfg.Models.Default = model
		cfg.Models.Writing = model
		cfg.Models.Coding = model
	}

	// Preferences
	fmt.Fprintln(out)
	cfg.Preferences.AutoSave = repl.Confirm(in, out, "Auto-save while writing?", cfg.Preferences.AutoSave)
	cfg.UI.ShowTokenCount = repl.Confirm(in, out, "Show token counts after AI replies?", cfg.UI.ShowTokenCount)

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConfiguration written to %s\n", cfg.FilePath())

	// Connection test
	if cfg.APIKey != "" && repl.Confirm(in, out, "Test the connection now?", true) {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		client, err := newAssistant(engine)
		if err != nil {
			return err
		}
		spin := repl.NewSpinner(out, "Testing connection...")
		spin.Start()
		err = client.TestConnection(context.Background())
		spin.Stop()
		if err != nil {
			fmt.Fprintln(out, "Connection test failed.")
			fmt.Fprintf(out, "  %v\n", err)
			fmt.Fprintln(out, "  Run 'neo doctor' for a full diagnosis.")
		} else {
			fmt.Fprintln(out, "Connection ok.")
		}
	}

	fmt.Fprintln(out, "\nAll set. Start writing with 'neo write'.")
	return nil
}

// parseModelChoice turns a menu answer into a model identifier, or ""
// to keep the current setting
func parseModelChoice(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(modelChoices) {
			return modelChoices[n-1]
		}
		return ""
	}
	return answer
}
