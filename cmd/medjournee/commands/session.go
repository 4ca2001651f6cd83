package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/journal"
	"github.com/terra-femme/MedJournee/pkg/jsontime"
	"github.com/terra-femme/MedJournee/pkg/kv"
	"github.com/terra-femme/MedJournee/pkg/reconcile"
	"github.com/terra-femme/MedJournee/pkg/session"
	"github.com/terra-femme/MedJournee/pkg/transcript"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
	Long: `Manage medical conversation sessions.

A session collects provisional caption segments during a visit. Ending
the session generates the visit journal and purges raw segment text.
Raw text in unfinished sessions is redacted automatically shortly after
capture.`,
}

// newManager opens the session store. The summarizer may be nil for
// commands that never end a session.
func newManager(cliCtx *cli.Context, summarizer session.Summarizer) (*session.Manager, kv.Store, error) {
	db, err := openDB(cliCtx)
	if err != nil {
		return nil, nil, err
	}
	return session.NewManager(db, summarizer), db, nil
}

// sessionView is the CLI-facing shape of a session.
type sessionView struct {
	ID          string            `json:"session_id" yaml:"session_id"`
	Status      session.Status    `json:"status" yaml:"status"`
	PatientName string            `json:"patient_name,omitempty" yaml:"patient_name,omitempty"`
	FamilyID    string            `json:"family_id" yaml:"family_id"`
	Language    string            `json:"target_language,omitempty" yaml:"target_language,omitempty"`
	StartedAt   jsontime.Unix     `json:"started_at" yaml:"-"`
	EndedAt     jsontime.Unix     `json:"ended_at,omitempty" yaml:"-"`
	Duration    jsontime.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Segments    int               `json:"segments" yaml:"segments"`
	Journal     *journal.Entry    `json:"journal,omitempty" yaml:"journal,omitempty"`
	Confidence  float64           `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	v := sessionView{
		ID:          s.ID,
		Status:      s.Status,
		PatientName: s.PatientName,
		FamilyID:    s.FamilyID,
		Language:    s.TargetLanguage,
		StartedAt:   jsontime.FromTime(s.StartedAt),
		Segments:    len(s.Segments),
		Journal:     s.Journal,
		Confidence:  s.JournalConfidence,
	}
	if !s.EndedAt.IsZero() {
		v.EndedAt = jsontime.FromTime(s.EndedAt)
		v.Duration = jsontime.Duration(s.EndedAt.Sub(s.StartedAt))
	}
	return v
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		familyID, _ := cmd.Flags().GetString("family")
		if familyID == "" {
			return fmt.Errorf("--family is required")
		}
		userID, _ := cmd.Flags().GetString("user")
		patient, _ := cmd.Flags().GetString("patient")
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			language = cliCtx.DefaultLanguage
		}

		mgr, db, err := newManager(cliCtx, nil)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := mgr.Create(cmd.Context(), userID, patient, familyID, language)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Session %s started", s.ID)
		return outputResult(viewOf(s), getOutputFile(), isJSONOutput())
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Display a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		mgr, db, err := newManager(cliCtx, nil)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := mgr.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		withSegments, _ := cmd.Flags().GetBool("segments")
		if withSegments {
			return outputResult(map[string]any{
				"session":  viewOf(s),
				"segments": s.Segments,
			}, getOutputFile(), isJSONOutput())
		}
		return outputResult(viewOf(s), getOutputFile(), isJSONOutput())
	},
}

var sessionAddSegmentCmd = &cobra.Command{
	Use:   "add-segment <session-id>",
	Short: "Append a caption segment to an active session",
	Long: `Append a caption segment to an active session.

The segment comes from a YAML or JSON file (-f, use - for stdin) or
from --text.
Raw segment text is redacted automatically a few seconds after capture.

Example segment file (segment.yaml):
  speaker: SPEAKER_2
  text: My chest hurts when I climb stairs.
  start_time: 12.5
  end_time: 15.0
  confidence: 0.92`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}

		var seg transcript.Segment
		if path := getInputFile(); path != "" {
			if err := loadRequest(path, &seg); err != nil {
				return err
			}
		} else {
			seg.Text, _ = cmd.Flags().GetString("text")
			seg.Speaker, _ = cmd.Flags().GetString("speaker")
			if seg.Text == "" {
				return fmt.Errorf("provide a segment file with -f or text with --text")
			}
		}
		seg.Speaker = transcript.NormalizeLabel(seg.Speaker)
		if seg.Role == "" {
			seg.Role = transcript.RoleProvider
		}

		mgr, db, err := newManager(cliCtx, nil)
		if err != nil {
			return err
		}
		defer db.Close()

		index, err := mgr.AddSegment(cmd.Context(), args[0], seg)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Segment %d added", index)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session and generate the visit journal",
	Long: `End a session, generate the visit journal, and purge raw segments.

If journal generation fails the session is marked journal_failed and a
basic fallback entry is stored; segments are preserved for a retry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		client, err := newOpenAIClient(cliCtx)
		if err != nil {
			return err
		}
		generator := journal.NewGenerator(client)

		mgr, db, err := newManager(cliCtx, generator)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		s, err := mgr.End(ctx, args[0])
		if err != nil {
			return err
		}
		switch s.Status {
		case session.StatusCompleted:
			cli.PrintSuccess("Session %s completed", s.ID)
		case session.StatusJournalFailed:
			cli.PrintWarning("Journal generation failed for session %s, fallback entry stored", s.ID)
		}
		return outputResult(viewOf(s), getOutputFile(), isJSONOutput())
	},
}

var sessionAbandonCmd = &cobra.Command{
	Use:   "abandon <session-id>",
	Short: "Abandon an active session, discarding its raw segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		mgr, db, err := newManager(cliCtx, nil)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := mgr.Abandon(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Session %s abandoned", args[0])
		return nil
	},
}

var sessionReconcileCmd = &cobra.Command{
	Use:   "reconcile <session-id>",
	Short: "Re-run speaker assignment over the session recording",
	Long: `Run cloud diarization and voice profile matching over the full
session recording and print the reconciled segments.

The recording comes from -f or from the configured recording store.

Examples:
  medjournee session reconcile sess-1 -f visit.wav
  medjournee session reconcile sess-1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCtx, err := getContext()
		if err != nil {
			return err
		}

		mgr, db, err := newManager(cliCtx, nil)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := mgr.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var clip pcm.Clip
		if path := getInputFile(); path != "" {
			clip, err = loadClip(path, pcm.SourceRecording)
		} else {
			recordings, rerr := newRecordingStore(cliCtx)
			if rerr != nil {
				return rerr
			}
			clip, err = recordings.Load(cmd.Context(), s.FamilyID, s.ID)
		}
		if err != nil {
			return err
		}

		client, err := newDiarizeClient(cliCtx)
		if err != nil {
			return err
		}
		store, err := newVoiceStore(cliCtx, db)
		if err != nil {
			return err
		}
		reconciler := reconcile.New(client, voiceprint.NewIdentifier(store, nil))

		provisionals := make([]reconcile.Provisional, 0, len(s.Segments))
		for _, seg := range s.Segments {
			provisionals = append(provisionals, reconcile.Provisional{
				Text:        seg.Text,
				Translation: seg.Translation,
				Speaker:     seg.Speaker,
				Role:        seg.Role,
			})
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 6*time.Minute)
		defer cancel()

		segments, err := reconciler.Finalize(ctx, clip, s.FamilyID, provisionals)
		if err != nil {
			return err
		}
		printVerbose("Reconciliation produced %d segments", len(segments))
		return outputResult(segments, getOutputFile(), isJSONOutput())
	},
}

func init() {
	sessionStartCmd.Flags().String("family", "", "family identifier")
	sessionStartCmd.Flags().String("user", "", "user identifier")
	sessionStartCmd.Flags().String("patient", "", "patient name")
	sessionStartCmd.Flags().String("language", "", "translation target language")

	sessionShowCmd.Flags().Bool("segments", false, "include caption segments")

	sessionAddSegmentCmd.Flags().String("text", "", "segment text")
	sessionAddSegmentCmd.Flags().String("speaker", "SPEAKER_1", "speaker label")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionAddSegmentCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionAbandonCmd)
	sessionCmd.AddCommand(sessionReconcileCmd)
	sessionCmd.AddCommand(sessionLiveCmd)
}
