package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text",
	Long: `Translate text for a family member, keeping medical terms accurate.

The target language defaults to the context's default_language.

Examples:
  medjournee translate "Take one tablet twice a day" --to vi
  medjournee translate "Thuốc này uống lúc nào?" --to en --from vi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetString("to")
		if target == "" {
			target = cliCtx.DefaultLanguage
		}
		if target == "" {
			return fmt.Errorf("no target language. Use --to or set default_language in the context")
		}
		source, _ := cmd.Flags().GetString("from")

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		translator, err := newTranslator(ctx, cliCtx)
		if err != nil {
			return err
		}

		result, err := translator.Translate(ctx, args[0], target, source)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		if result.Fallback {
			printVerbose("Translation unavailable, returning original text")
		}
		return outputResult(result, getOutputFile(), isJSONOutput())
	},
}

func init() {
	translateCmd.Flags().String("to", "", "target language code (e.g. vi)")
	translateCmd.Flags().String("from", "auto", "source language code (auto to detect)")
}
