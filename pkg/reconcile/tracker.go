package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/transcript"
)

// Guess is a non-authoritative speaker assignment for one live chunk.
type Guess struct {
	Speaker     string
	Role        string
	SpeakerName string
	Confidence  float64
	Enrolled    bool
}

// Tracker assigns advisory speaker guesses to live chunks within one
// session. Once an enrolled voice has been observed, later matches keep
// the same attribution; unmatched chunks always default to the
// provider. Guesses are interim display only.
type Tracker struct {
	identifier Identifier
	familyID   string
	logger     *slog.Logger

	mu   sync.Mutex
	last *Guess
}

// NewTracker creates a tracker for one session.
func NewTracker(identifier Identifier, familyID string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		identifier: identifier,
		familyID:   familyID,
		logger:     logger,
	}
}

// Observe identifies the chunk's speaker and returns the advisory
// guess. Identification failure is not an error at this layer; the
// chunk just defaults to the provider.
func (t *Tracker) Observe(ctx context.Context, chunk pcm.Clip) Guess {
	guess := Guess{
		Speaker:     "SPEAKER_1",
		Role:        transcript.RoleProvider,
		SpeakerName: "Unknown",
	}

	id, err := t.identifier.Identify(ctx, chunk, t.familyID)
	if err != nil {
		t.logger.Warn("live speaker identification failed",
			"family_id", t.familyID, "error", err)
		return guess
	}

	guess.Confidence = id.Confidence
	if id.Matched {
		guess.Speaker = "SPEAKER_2"
		guess.Role = transcript.RolePatientFamily
		guess.SpeakerName = id.SpeakerName
		guess.Enrolled = true
	}

	t.mu.Lock()
	t.last = &guess
	t.mu.Unlock()
	return guess
}

// Last returns the most recent guess, if any chunk has been observed.
func (t *Tracker) Last() (Guess, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Guess{}, false
	}
	return *t.last, true
}
