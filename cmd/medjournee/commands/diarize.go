package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/diarize"
	"github.com/terra-femme/MedJournee/pkg/reconcile"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

var diarizeCmd = &cobra.Command{
	Use:   "diarize",
	Short: "Diarize a session recording",
	Long: `Upload a WAV recording to the diarization service and print the
speaker-separated segments.

With --family, each segment's speaker is additionally matched against
the family's enrolled voice profiles and assigned a visit role.

Examples:
  medjournee diarize -f visit.wav
  medjournee diarize -f visit.wav --family fam-1 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInputFile(); err != nil {
			return err
		}
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		familyID, _ := cmd.Flags().GetString("family")

		client, err := newDiarizeClient(cliCtx)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 6*time.Minute)
		defer cancel()

		// Plain diarization: ship the file as-is and print segments.
		if familyID == "" {
			f, err := os.Open(getInputFile())
			if err != nil {
				return err
			}
			defer f.Close()

			segments, err := client.Process(ctx, f)
			if err != nil {
				if errors.Is(err, diarize.ErrPollTimeout) {
					return fmt.Errorf("diarization did not finish in time: %w", err)
				}
				return err
			}
			printVerbose("Diarization returned %d segments", len(segments))
			return outputResult(segments, getOutputFile(), isJSONOutput())
		}

		// With a family: run the full reconciliation so segments carry
		// enrollment matches and visit roles.
		clip, err := loadClip(getInputFile(), pcm.SourceRecording)
		if err != nil {
			return err
		}

		db, err := openDB(cliCtx)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := newVoiceStore(cliCtx, db)
		if err != nil {
			return err
		}
		identifier := voiceprint.NewIdentifier(store, nil)
		reconciler := reconcile.New(client, identifier)

		segments, err := reconciler.Finalize(ctx, clip, familyID, nil)
		if err != nil {
			return err
		}
		printVerbose("Reconciliation produced %d segments", len(segments))
		return outputResult(segments, getOutputFile(), isJSONOutput())
	},
}

func init() {
	diarizeCmd.Flags().String("family", "", "match speakers against this family's enrolled profiles")
}
