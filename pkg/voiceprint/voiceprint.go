// Package voiceprint manages enrolled voice biometrics for a family and
// scores candidate embeddings against them.
//
// # Pipeline
//
//  1. Store.Enroll: long voice clip → windowed embeddings → aggregated
//     VoiceProfile, encrypted at rest
//  2. Store.Profiles: decrypt a family's active profiles for one matching
//     operation
//  3. Matcher.Match: candidate embedding → best profile above the accept
//     threshold, or no match
//
// Profiles are immutable once created; re-enrollment produces a new
// profile and revocation deactivates rather than deletes. Decrypted
// profile material must not outlive the matching operation that loaded it
// and is never logged.
package voiceprint

import (
	"time"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
)

// VoiceProfile is a decrypted enrollment profile. The embedding fields are
// the sensitive biometric payload and exist in cleartext only in memory.
type VoiceProfile struct {
	ID            string
	FamilyID      string
	SpeakerName   string
	Relationship  string
	MeanEmbedding features.Embedding
	StdEmbedding  features.Embedding
	SampleCount   int

	// ConsistencyScore in [0,1] measures how stable the enrollment
	// windows were; QualityScore in [0,1] additionally folds in sample
	// count. Both weight down match similarity for noisy enrollments.
	ConsistencyScore float64
	QualityScore     float64

	EnrolledAt    time.Time
	Active        bool
	SchemaVersion string
}

// EnrollmentResult reports a successful enrollment.
type EnrollmentResult struct {
	ProfileID        string
	SpeakerName      string
	SamplesProcessed int
	QualityScore     float64
}

// DefaultRelationship is used when the caller does not specify one.
const DefaultRelationship = "family_member"

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
