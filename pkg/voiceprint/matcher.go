package voiceprint

import (
	"math"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
)

// AcceptThreshold is the default minimum weighted similarity for a
// candidate embedding to count as an enrolled voice.
const AcceptThreshold = 0.70

// Match is the result of comparing a candidate embedding against a
// family's profiles.
type Match struct {
	Profile    *VoiceProfile
	Similarity float64
}

// Matcher scores candidate embeddings against voice profiles.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a Matcher. A non-positive threshold selects
// AcceptThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = AcceptThreshold
	}
	return &Matcher{threshold: threshold}
}

// Similarity returns the weighted cosine similarity between a candidate
// embedding and a profile, clamped to [0,1]:
//
//	cosine(candidate, profile.mean) * quality_score * consistency_score
//
// The quality and consistency weights deliberately suppress matches
// against profiles built from noisy or inconsistent enrollments even when
// the instantaneous cosine similarity is high. A dimension mismatch
// invalidates the comparison and scores 0.
func (m *Matcher) Similarity(candidate features.Embedding, profile *VoiceProfile) float64 {
	if len(candidate) != len(profile.MeanEmbedding) || len(candidate) == 0 {
		return 0
	}
	cos := cosine(candidate, profile.MeanEmbedding)
	return clamp01(cos * profile.QualityScore * profile.ConsistencyScore)
}

// Match returns the profile with the highest similarity among those at or
// above the accept threshold, or ok=false when none qualifies.
//
// Tie-breaking is deterministic: strict maximum similarity wins; an exact
// tie goes to the earlier enrollment, then to the smaller profile ID.
func (m *Matcher) Match(candidate features.Embedding, profiles []*VoiceProfile) (Match, bool) {
	var best Match
	for _, p := range profiles {
		sim := m.Similarity(candidate, p)
		if sim < m.threshold {
			continue
		}
		if best.Profile == nil || sim > best.Similarity || (sim == best.Similarity && earlier(p, best.Profile)) {
			best = Match{Profile: p, Similarity: sim}
		}
	}
	return best, best.Profile != nil
}

// BestSimilarity returns the highest similarity across profiles without
// applying the accept threshold. Used to report near-miss confidence.
func (m *Matcher) BestSimilarity(candidate features.Embedding, profiles []*VoiceProfile) float64 {
	var best float64
	for _, p := range profiles {
		if sim := m.Similarity(candidate, p); sim > best {
			best = sim
		}
	}
	return best
}

func earlier(a, b *VoiceProfile) bool {
	if !a.EnrolledAt.Equal(b.EnrolledAt) {
		return a.EnrolledAt.Before(b.EnrolledAt)
	}
	return a.ID < b.ID
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
