package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio chunk",
	Long: `Transcribe a WAV audio chunk with Whisper.

Chunks under 5KB are treated as silence and skipped without calling the
service. Suspected hallucinations on short chunks are filtered.

Examples:
  medjournee transcribe -f chunk.wav
  medjournee transcribe -f chunk.wav --language vi --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInputFile(); err != nil {
			return err
		}
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")

		audio, err := os.ReadFile(getInputFile())
		if err != nil {
			return fmt.Errorf("failed to read audio file: %w", err)
		}

		printVerbose("Audio: %s", cli.FormatBytes(int64(len(audio))))

		client, err := newOpenAIClient(cliCtx)
		if err != nil {
			return err
		}
		transcriber := transcribe.New(client)

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		chunk, err := transcriber.Transcribe(ctx, audio, filepath.Base(getInputFile()), language)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		if chunk.Empty {
			printVerbose("Chunk skipped: %s", chunk.Reason)
		}
		return outputResult(chunk, getOutputFile(), isJSONOutput())
	},
}

func init() {
	transcribeCmd.Flags().String("language", "auto", "source language hint (auto to detect)")
}
