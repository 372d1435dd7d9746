package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/casestudio/internal/schema"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List generation types and their prompt fields",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		bold := color.New(color.Bold)
		for _, t := range schema.PromptTypes() {
			bold.Fprintln(cmd.OutOrStdout(), t)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", promptFields[t])
		}
	},
}

var promptFields = map[schema.PromptType]string{
	schema.TypeOutline:  "--topic (required), --context, --audience, --key-point, --tone",
	schema.TypeSummary:  "--source or --source-file (required), --length, --tone",
	schema.TypeHeadline: "--topic (required), --audience, --style, --variants",
}
