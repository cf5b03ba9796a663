package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/editor"
)

var configEdit bool

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"c"},
	Short:   "Show or edit configuration",
	Long: `Show the active configuration, or open it in your editor.

The API key is stored separately in ~/.terminote/.env and never shown
in full.

Examples:
  neo config
  neo config --edit`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVarP(&configEdit, "edit", "e", false, "Open the config file in $EDITOR")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configEdit {
		return editConfig()
	}

	key := cfg.MaskedKey()
	if key == "" {
		key = "(not set - run 'neo setup')"
	}

	fmt.Println("Configuration")
	fmt.Println("=============")
	fmt.Println()
	fmt.Printf("API key:          %s\n", key)
	fmt.Println()
	fmt.Println("Models:")
	fmt.Printf("  default:        %s\n", cfg.Models.Default)
	fmt.Printf("  writing:        %s\n", cfg.Models.Writing)
	fmt.Printf("  coding:         %s\n", cfg.Models.Coding)
	fmt.Printf("  quick:          %s\n", cfg.Models.Quick)
	fmt.Println()
	fmt.Println("Preferences:")
	fmt.Printf("  auto_save:      %v\n", cfg.Preferences.AutoSave)
	fmt.Printf("  session_backup: %v\n", cfg.Preferences.SessionBackup)
	fmt.Printf("  max_tokens:     %d\n", cfg.Preferences.MaxTokens)
	fmt.Printf("  temperature:    %.1f\n", cfg.Preferences.Temperature)
	fmt.Println()
	fmt.Println("UI:")
	fmt.Printf("  theme:            %s\n", cfg.UI.Theme)
	fmt.Printf("  show_token_count: %v\n", cfg.UI.ShowTokenCount)
	fmt.Printf("  auto_format:      %v\n", cfg.UI.AutoFormat)
	fmt.Println()
	fmt.Printf("Config file:      %s\n", cfg.FilePath())
	fmt.Printf("Sessions:         %s\n", cfg.SessionsDir())
	return nil
}

func editConfig() error {
	// Make sure the file exists before handing it to the editor.
	if err := cfg.Save(); err != nil {
		return err
	}
	if err := editor.Edit(cfg.FilePath()); err != nil {
		return err
	}
	if _, err := config.Load(cfg.Dir()); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("The previous settings stay in effect until the file parses.")
		return nil
	}
	fmt.Println("Configuration updated.")
	return nil
}
