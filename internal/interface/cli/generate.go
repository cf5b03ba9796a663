package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/docbuilder"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:     "generate <type> [path]",
	Aliases: []string{"g"},
	Short:   "Generate project documentation",
	Long: `Generate documentation from a project directory.

Scans the tree for languages, manifests, and layout, then writes the
requested document. Types: readme, spec, api-docs, guide.

Examples:
  neo generate readme
  neo generate spec ~/src/widgetd
  neo generate api-docs . --output docs/API.md`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: docbuilder.Kinds(),
	RunE:      runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default <TYPE>.md in the project directory)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	kind, err := docbuilder.ParseKind(args[0])
	if err != nil {
		return err
	}
	root := "."
	if len(args) == 2 {
		root = args[1]
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	builder, err := newDocBuilder(engine)
	if err != nil {
		return err
	}
	if builder == nil {
		return config.ErrMissingAPIKey
	}

	out := cmd.OutOrStdout()
	content, err := builder.Generate(cmd.Context(), kind, root, func(chunk string) { fmt.Fprint(out, chunk) })
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	output := generateOutput
	if output == "" {
		output = filepath.Join(root, kind.DefaultFileName())
	}
	if err := docbuilder.WriteFile(output, content); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", output)
	return nil
}
