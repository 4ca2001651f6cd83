package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Voice profile enrollment",
	Long: `Enroll family member voices for speaker identification.

Profiles store only voice feature statistics, never raw audio, and are
encrypted at rest. Each profile belongs to a family and is matched only
against clips from that family's sessions.`,
}

var enrollKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new profile encryption key",
	Long: `Generate a new 32-byte encryption key for voice profiles.

Store the printed key in the context (enrollment_key) or in the
MEDJOURNEE_ENROLLMENT_KEY environment variable. Losing the key makes
all stored profiles unrecoverable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := make([]byte, voiceprint.KeySize)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(key))
		return nil
	},
}

var enrollAddCmd = &cobra.Command{
	Use:   "add <speaker-name>",
	Short: "Enroll a voice profile from an audio sample",
	Long: `Enroll a voice profile from a WAV sample.

The sample must be at least 15 seconds of clear speech.

Examples:
  medjournee enroll add "Grandma Rose" -f sample.wav --family fam-1
  medjournee enroll add "Grandpa Minh" -f sample.wav --family fam-1 --relationship grandfather`,
	Args: cobra.ExactArgs(1),
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
		relationship, _ := cmd.Flags().GetString("relationship")

		clip, err := loadClip(getInputFile(), pcm.SourceEnrollment)
		if err != nil {
			return err
		}
		printVerbose("Sample: %s of audio", formatDuration(int(clip.Duration().Milliseconds())))

		db, err := openDB(cliCtx)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := newVoiceStore(cliCtx, db)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		result, err := store.Enroll(ctx, clip, familyID, args[0], relationship)
		if err != nil {
			return fmt.Errorf("enrollment failed: %w", err)
		}

		cli.PrintSuccess("Enrolled %q (profile %s)", result.SpeakerName, result.ProfileID)
		return outputResult(result, getOutputFile(), isJSONOutput())
	},
}

var enrollListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled voice profiles for a family",
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		familyID, _ := cmd.Flags().GetString("family")
		if familyID == "" {
			return fmt.Errorf("--family is required")
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

		profiles, err := store.Profiles(cmd.Context(), familyID)
		if err != nil {
			return err
		}

		type profileView struct {
			ID           string  `json:"profile_id" yaml:"profile_id"`
			SpeakerName  string  `json:"speaker_name" yaml:"speaker_name"`
			Relationship string  `json:"relationship" yaml:"relationship"`
			Samples      int     `json:"samples" yaml:"samples"`
			Quality      float64 `json:"quality_score" yaml:"quality_score"`
			EnrolledAt   string  `json:"enrolled_at" yaml:"enrolled_at"`
		}
		views := make([]profileView, 0, len(profiles))
		for _, p := range profiles {
			views = append(views, profileView{
				ID:           p.ID,
				SpeakerName:  p.SpeakerName,
				Relationship: p.Relationship,
				Samples:      p.SampleCount,
				Quality:      p.QualityScore,
				EnrolledAt:   p.EnrolledAt.Format(time.RFC3339),
			})
		}
		return outputResult(views, getOutputFile(), isJSONOutput())
	},
}

var enrollRemoveCmd = &cobra.Command{
	Use:   "remove <profile-id>",
	Short: "Deactivate a voice profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		familyID, _ := cmd.Flags().GetString("family")
		if familyID == "" {
			return fmt.Errorf("--family is required")
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

		if err := store.Deactivate(cmd.Context(), familyID, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Profile %s deactivated", args[0])
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{enrollAddCmd, enrollListCmd, enrollRemoveCmd} {
		cmd.Flags().String("family", "", "family identifier owning the profile")
	}
	enrollAddCmd.Flags().String("relationship", "", "relationship to the patient (default: family_member)")

	enrollCmd.AddCommand(enrollKeygenCmd)
	enrollCmd.AddCommand(enrollAddCmd)
	enrollCmd.AddCommand(enrollListCmd)
	enrollCmd.AddCommand(enrollRemoveCmd)
}
