package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/doctor"
	"github.com/CVO-TreeAi/terminote/internal/interface/repl"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"d"},
	Short:   "Diagnose environment and configuration problems",
	Long: `Run health checks against the runtime, storage, configuration,
network, and the OpenRouter API, with platform-specific fixes for
anything that fails.

The exit code is non-zero when any check fails, so doctor works in
scripts.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	// The API check only runs with a configured key; otherwise it
	// reports the missing credential.
	var apiTest func(ctx context.Context) error
	if cfg.APIKey != "" {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		client, err := newAssistant(engine)
		if err != nil {
			return err
		}
		if client != nil {
			apiTest = client.TestConnection
		}
	}

	fmt.Println("TermiNote Doctor")
	fmt.Println("================")
	fmt.Println()

	spin := repl.NewSpinner(cmd.OutOrStdout(), "Running checks...")
	spin.Start()
	report := doctor.New(cfg, mgr, advisor, apiTest).Run(cmd.Context())
	spin.Stop()

	for _, r := range report.Results {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		fmt.Printf("%s %s\n", mark, r.Name)
		if r.Detail != "" {
			fmt.Printf("    %s\n", r.Detail)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("    Fix: %s\n", r.Hint)
		}
	}

	fmt.Println()
	fmt.Printf("%d/%d checks passed.\n", report.Passed, report.Total)

	switch {
	case report.Healthy():
		fmt.Println("Everything looks healthy.")
		return nil
	case report.MostlyFunctional():
		fmt.Println("TermiNote is mostly functional; fix the items above when you can.")
	default:
		fmt.Println("TermiNote has problems that need attention.")
	}
	return fmt.Errorf("%d of %d checks failed", report.Total-report.Passed, report.Total)
}
