package voiceprint

import (
	"context"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
)

// Identification reports whether an audio clip matched an enrolled voice.
// Confidence carries the best similarity even when below the accept
// threshold, so callers can report near misses.
type Identification struct {
	Matched     bool
	SpeakerName string
	Confidence  float64
}

// Identifier runs the extract→load→match pipeline for a single clip.
// Decrypted profiles live only for the duration of one Identify call.
type Identifier struct {
	store     *Store
	matcher   *Matcher
	extractor *features.Extractor
}

// NewIdentifier wires a Store to a Matcher. A nil matcher gets defaults.
func NewIdentifier(store *Store, matcher *Matcher) *Identifier {
	if matcher == nil {
		matcher = NewMatcher(0)
	}
	return &Identifier{
		store:     store,
		matcher:   matcher,
		extractor: store.extractor,
	}
}

// Identify scores the clip against the family's active profiles.
// A clip with no usable signal or a family with no enrollments yields an
// unmatched zero-confidence result, not an error.
func (id *Identifier) Identify(ctx context.Context, clip pcm.Clip, familyID string) (Identification, error) {
	emb, ok := id.extractor.Extract(clip)
	if !ok {
		return Identification{}, nil
	}

	profiles, err := id.store.Profiles(ctx, familyID)
	if err != nil {
		return Identification{}, err
	}
	if len(profiles) == 0 {
		return Identification{}, nil
	}

	if match, ok := id.matcher.Match(emb, profiles); ok {
		return Identification{
			Matched:     true,
			SpeakerName: match.Profile.SpeakerName,
			Confidence:  match.Similarity,
		}, nil
	}
	return Identification{Confidence: id.matcher.BestSimilarity(emb, profiles)}, nil
}
