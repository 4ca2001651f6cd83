// Package reconcile merges real-time provisional transcripts with the
// authoritative diarization pass that runs when a recording session
// ends.
//
// During capture, chunks get a fast advisory speaker guess for interim
// display only. On finalize, the full recording is diarized once; each
// diarized span is re-sliced from the recording and matched against the
// family's enrolled voices to assign a biometrically grounded role. If
// diarization yields nothing, the provisional transcripts are converted
// into alternating-speaker segments so the session never finishes
// empty.
package reconcile

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/diarize"
	"github.com/terra-femme/MedJournee/pkg/transcript"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

// MethodAlternating tags segments produced by the deterministic
// fallback when diarization returns nothing.
const MethodAlternating = "alternating_fallback"

const fallbackConfidence = 0.5

// Provisional is one live chunk's interim transcript. It is advisory
// and never persisted as final.
type Provisional struct {
	Text        string
	Translation string
	Speaker     string
	Role        string
}

// Diarizer runs the cloud diarization pipeline over a full recording.
type Diarizer interface {
	Process(ctx context.Context, audio io.Reader) ([]diarize.Segment, error)
}

// Identifier matches a clip against a family's enrolled voices.
type Identifier interface {
	Identify(ctx context.Context, clip pcm.Clip, familyID string) (voiceprint.Identification, error)
}

// Reconciler produces the final role-labeled segment list for a
// finished session.
type Reconciler struct {
	diarizer   Diarizer
	identifier Identifier
	resolver   *transcript.RoleResolver
	logger     *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithResolver overrides the default role resolver.
func WithResolver(resolver *transcript.RoleResolver) ReconcilerOption {
	return func(r *Reconciler) {
		r.resolver = resolver
	}
}

// New creates a Reconciler.
func New(diarizer Diarizer, identifier Identifier, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		diarizer:   diarizer,
		identifier: identifier,
		resolver:   transcript.NewRoleResolver(0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Finalize diarizes the full recording and assigns each segment a final
// role. Diarization failure or an empty diarization result falls back
// to alternating speakers over the provisional transcripts; per-segment
// identification failures default that one segment to the provider role
// without failing the rest.
func (r *Reconciler) Finalize(ctx context.Context, recording pcm.Clip, familyID string, provisionals []Provisional) ([]transcript.Segment, error) {
	diarized, err := r.diarizer.Process(ctx, bytes.NewReader(pcm.EncodeWAV(recording)))
	if err != nil {
		r.logger.Warn("diarization failed, falling back to alternating speakers",
			"family_id", familyID, "error", err)
		return r.Alternating(provisionals), nil
	}
	if len(diarized) == 0 {
		r.logger.Info("diarization returned no segments, falling back to alternating speakers",
			"family_id", familyID)
		return r.Alternating(provisionals), nil
	}

	segments := make([]transcript.Segment, 0, len(diarized))
	for _, d := range diarized {
		seg := transcript.Segment{
			Speaker:    d.Speaker,
			Text:       d.Text,
			Start:      d.Start,
			End:        d.End,
			Confidence: d.Confidence,
			Method:     d.Method,
		}

		if id, ok := r.identifySpan(ctx, recording, familyID, d); ok {
			seg.EnrollmentConfidence = id.Confidence
			if id.Matched {
				seg.MatchedSpeaker = id.SpeakerName
			}
		}

		r.resolver.Resolve(&seg)
		segments = append(segments, seg)
	}
	return segments, nil
}

// identifySpan slices one diarized span from the recording and runs
// voice identification on it. Out-of-range spans and identification
// errors report no match.
func (r *Reconciler) identifySpan(ctx context.Context, recording pcm.Clip, familyID string, d diarize.Segment) (voiceprint.Identification, bool) {
	span, err := recording.Slice(d.Start, d.End)
	if err != nil {
		r.logger.Warn("diarized span outside recording, defaulting to provider",
			"family_id", familyID, "start", d.Start, "end", d.End)
		return voiceprint.Identification{}, false
	}

	id, err := r.identifier.Identify(ctx, span, familyID)
	if err != nil {
		r.logger.Warn("voice identification failed for span, defaulting to provider",
			"family_id", familyID, "start", d.Start, "end", d.End, "error", err)
		return voiceprint.Identification{}, false
	}
	return id, true
}

// Alternating converts provisional transcripts into alternating-speaker
// segments, SPEAKER_1 first.
func (r *Reconciler) Alternating(provisionals []Provisional) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(provisionals))
	for i, p := range provisionals {
		speaker, role := "SPEAKER_1", transcript.RoleProvider
		if i%2 == 1 {
			speaker, role = "SPEAKER_2", transcript.RolePatientFamily
		}
		segments = append(segments, transcript.Segment{
			Speaker:     speaker,
			Role:        role,
			Text:        p.Text,
			Translation: p.Translation,
			Confidence:  fallbackConfidence,
			Method:      MethodAlternating,
		})
	}
	return segments
}
