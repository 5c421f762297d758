package main

import (
	"fmt"

	"github.com/aretw0/formflow/pkg/adapters/loader"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema>",
	Short: "Check a form schema for consistency",
	Long: `Loads a YAML or JSON form schema and reports every problem at once:
duplicate ids or orders, unknown types, missing translations, invalid rules
and skip conditions that refer to later or unknown questions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(args[0])
		if err != nil {
			out := cmd.ErrOrStderr()
			for _, issue := range schema.Issues(err) {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return fmt.Errorf("validation failed: %w", err)
		}
		info := s.Info()
		fmt.Fprintf(cmd.OutOrStdout(), "Form %q is valid! ✅ (%d questions, languages %v, version %s)\n",
			info.Name, s.Len(), info.Languages, s.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func loadSchema(path string) (*schema.Schema, error) {
	def, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.Load(def)
}
