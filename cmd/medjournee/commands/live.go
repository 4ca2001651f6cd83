package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/journal"
	"github.com/terra-femme/MedJournee/pkg/reconcile"
	"github.com/terra-femme/MedJournee/pkg/session"
	"github.com/terra-femme/MedJournee/pkg/transcribe"
	"github.com/terra-femme/MedJournee/pkg/transcript"
	"github.com/terra-femme/MedJournee/pkg/translate"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

// chunkSeconds is how much audio feeds each caption during a live session.
const chunkSeconds = 3.0

var sessionLiveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run a live captioning session from a recording",
	Long: `Replay a WAV recording through the live session pipeline with a
terminal UI: transcription, speaker tracking, and translation per chunk.

Press 'e' to end the session and generate the journal. Quitting with
'q' while the session is still active ends it on the way out, and
abandons it if the journal cannot be produced, so raw captions never
outlive the session.

Example:
  medjournee session live -f visit.wav --family fam-1 --patient "Mrs. Tran" --language vi`,
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
		patient, _ := cmd.Flags().GetString("patient")
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			language = cliCtx.DefaultLanguage
		}

		clip, err := loadClip(getInputFile(), pcm.SourceRecording)
		if err != nil {
			return err
		}

		logWriter := cli.NewLogWriter(200)
		logger := slog.New(slog.NewTextHandler(logWriter, nil))

		db, err := openDB(cliCtx)
		if err != nil {
			return err
		}
		defer db.Close()

		openaiClient, err := newOpenAIClient(cliCtx)
		if err != nil {
			return err
		}
		voiceStore, err := newVoiceStore(cliCtx, db)
		if err != nil {
			return err
		}

		var translator *translate.Translator
		if language != "" {
			translator, err = newTranslator(cmd.Context(), cliCtx)
			if err != nil {
				return err
			}
		}

		generator := journal.NewGenerator(openaiClient, journal.WithLogger(logger))
		mgr := session.NewManager(db, generator, session.WithLogger(logger))

		s, err := mgr.Create(cmd.Context(), "", patient, familyID, language)
		if err != nil {
			return err
		}

		pipe := &livePipeline{
			clip:        clip,
			language:    language,
			sessionID:   s.ID,
			familyID:    familyID,
			manager:     mgr,
			transcriber: transcribe.New(openaiClient, transcribe.WithLogger(logger)),
			tracker:     reconcile.NewTracker(voiceprint.NewIdentifier(voiceStore, nil), familyID, logger),
			translator:  translator,
			logger:      logger,
			events:      make(chan liveEvent, 16),
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go pipe.run(ctx, filepath.Base(getInputFile()))

		model := newLiveModel(s.ID, pipe, logWriter, func() (*session.Session, error) {
			endCtx, endCancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer endCancel()
			return mgr.End(endCtx, s.ID)
		})
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return err
		}
		cancel()
		return finishSession(mgr, s.ID)
	},
}

// finishSession is the disconnect path: a session still active when the
// UI exits is ended so the journal gets generated; if that fails it is
// abandoned so no raw captions linger in the store.
func finishSession(mgr *session.Manager, sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s, err := mgr.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status != session.StatusActive {
		cli.PrintInfo("Session %s %s", sessionID, s.Status)
		return nil
	}

	ended, err := mgr.End(ctx, sessionID)
	if err != nil {
		cli.PrintWarning("Could not finish session %s: %v", sessionID, err)
		if aerr := mgr.Abandon(ctx, sessionID); aerr != nil {
			return aerr
		}
		cli.PrintInfo("Session %s abandoned, raw captions discarded", sessionID)
		return nil
	}
	cli.PrintSuccess("Session %s %s", sessionID, ended.Status)
	return nil
}

// liveEvent is one update from the pipeline to the TUI.
type liveEvent struct {
	caption     string
	translation string
	done        bool
	err         error
}

type livePipeline struct {
	clip      pcm.Clip
	language  string
	sessionID string
	familyID  string

	manager     *session.Manager
	transcriber *transcribe.Transcriber
	tracker     *reconcile.Tracker
	translator  *translate.Translator
	logger      *slog.Logger

	events chan liveEvent
}

func (p *livePipeline) Events() <-chan liveEvent {
	return p.events
}

// run replays the recording chunk by chunk through the live pipeline.
func (p *livePipeline) run(ctx context.Context, filename string) {
	defer close(p.events)

	for i, chunk := range p.clip.Windows(chunkSeconds, chunkSeconds) {
		if ctx.Err() != nil {
			return
		}

		result, err := p.transcriber.Transcribe(ctx, pcm.EncodeWAV(chunk), filename, "auto")
		if err != nil {
			p.logger.Warn("transcription failed", "chunk", i, "error", err)
			continue
		}
		if result.Empty {
			p.logger.Debug("chunk skipped", "chunk", i, "reason", result.Reason)
			continue
		}

		guess := p.tracker.Observe(ctx, chunk)

		seg := transcript.Segment{
			Speaker:              guess.Speaker,
			Text:                 result.Text,
			Start:                float64(i) * chunkSeconds,
			End:                  float64(i+1) * chunkSeconds,
			Confidence:           guess.Confidence,
			Role:                 guess.Role,
			EnrollmentMatch:      guess.Enrolled,
			EnrollmentConfidence: guess.Confidence,
		}
		if guess.Enrolled {
			seg.MatchedSpeaker = guess.SpeakerName
		}

		translation := ""
		if p.translator != nil {
			tr, terr := p.translator.Translate(ctx, result.Text, p.language, "auto")
			if terr != nil {
				p.logger.Warn("translation failed", "chunk", i, "error", terr)
			} else {
				translation = tr.TranslatedText
				seg.Translation = translation
			}
		}

		if _, err := p.manager.AddSegment(ctx, p.sessionID, seg); err != nil {
			p.events <- liveEvent{err: err}
			return
		}

		p.events <- liveEvent{
			caption:     fmt.Sprintf("[%s] %s", guess.SpeakerName, result.Text),
			translation: translation,
		}
	}
	p.events <- liveEvent{done: true}
}

func init() {
	sessionLiveCmd.Flags().String("family", "", "family identifier")
	sessionLiveCmd.Flags().String("patient", "", "patient name")
	sessionLiveCmd.Flags().String("language", "", "translation target language")
}
