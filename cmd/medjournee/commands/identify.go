package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify the speaker in an audio clip",
	Long: `Identify the speaker in a WAV clip against a family's enrolled
voice profiles.

Examples:
  medjournee identify -f clip.wav --family fam-1
  medjournee identify -f clip.wav --family fam-1 --threshold 0.75 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInputFile(); err != nil {
			return err
		}
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		familyID, _ := cmd.Flags().GetString("family")
		if familyID == "" {
			return fmt.Errorf("--family is required")
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		clip, err := loadClip(getInputFile(), pcm.SourceLiveChunk)
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
		identifier := voiceprint.NewIdentifier(store, voiceprint.NewMatcher(threshold))

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		id, err := identifier.Identify(ctx, clip, familyID)
		if err != nil {
			return fmt.Errorf("identification failed: %w", err)
		}

		result := map[string]any{
			"matched":    id.Matched,
			"confidence": id.Confidence,
		}
		if id.Matched {
			result["speaker_name"] = id.SpeakerName
		}
		return outputResult(result, getOutputFile(), isJSONOutput())
	},
}

func init() {
	identifyCmd.Flags().String("family", "", "family identifier to match against")
	identifyCmd.Flags().Float64("threshold", voiceprint.AcceptThreshold, "minimum similarity to accept a match")
}
