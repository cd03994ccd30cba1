package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/zonerules/pkg/schema"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check rules documents for consistency",
		Long: `Parses each YAML or JSON rules document and builds its rules, reporting every
malformed field by key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				if err := validateFile(path); err != nil {
					failed++
					fmt.Fprintf(out, "%s: invalid\n", path)
					reportValidation(cmd, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("validation failed: %d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := schema.Unmarshal(filepath.Base(path), data)
	if err != nil {
		return err
	}
	_, err = doc.Build()
	return err
}

func reportValidation(cmd *cobra.Command, err error) {
	out := cmd.OutOrStdout()
	verrs := schema.ValidationErrors(err)
	if len(verrs) == 0 {
		fmt.Fprintf(out, "  %v\n", err)
		return
	}
	for _, v := range verrs {
		fmt.Fprintf(out, "  %s: %s\n", v.Key, v.Reason)
	}
}
