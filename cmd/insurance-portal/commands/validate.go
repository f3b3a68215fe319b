package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/schemaload"
	"github.com/devotel/go-insurance-forms/pkg/validation"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file-or-dir>...",
	Short: "Validate form schema documents",
	Long: `Check schema documents for structural problems: duplicate field ids,
children outside groups, unparseable validation patterns.

Examples:
  insurance-portal validate ./forms
  insurance-portal validate form_a.json form_b.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var failed bool
	for _, arg := range args {
		schemas, err := loadPath(arg)
		if err != nil {
			failed = true
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
			continue
		}
		for _, schema := range schemas {
			// Rule derivation catches what decoding cannot, like invalid
			// regular expressions in validation blocks.
			rules, err := validation.Build(schema)
			if err != nil {
				failed = true
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: form %q: %v\n", arg, schema.FormID, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: form %q ok (%d fields, %d validated)\n",
				arg, schema.FormID, len(model.Leaves(schema.Fields)), rules.Len())
		}
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func loadPath(path string) ([]model.FormSchema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return schemaload.FromDir(path)
	}
	return schemaload.FromFile(path)
}
