// Package transcript holds the conversation segment model shared by the
// diarization, reconciliation, and session layers, and the policy that
// assigns each segment a final speaker role.
//
// The role set is closed: only family and patient voices are ever
// enrolled, so any voice that fails the enrollment match is assumed to
// be the healthcare provider. That is a deliberate modeling choice for
// a personal medical journal, not a missing case.
package transcript

import "time"

// Speaker roles. Every segment leaving the resolver carries exactly one
// of these.
const (
	RoleProvider      = "Healthcare Provider"
	RolePatientFamily = "Patient/Family"
)

// Assignment method tags recorded by the role resolver.
const (
	MethodEnrollmentMatch = "voice_enrollment_match"
	MethodDefaultProvider = "unknown_voice_default_provider"
)

// Segment is one speaker's span of conversation. It is produced by
// parsing or live transcription, then mutated in place by the resolver
// and reconciler before it is persisted.
type Segment struct {
	Speaker     string  `json:"speaker" msgpack:"speaker"`
	Text        string  `json:"text" msgpack:"text"`
	Translation string  `json:"translation,omitempty" msgpack:"translation,omitempty"`
	Start       float64 `json:"start_time" msgpack:"start_time"`
	End         float64 `json:"end_time" msgpack:"end_time"`
	Confidence  float64 `json:"confidence" msgpack:"confidence"`
	Method      string  `json:"method" msgpack:"method"`

	// CapturedAt is when the segment was recorded into a session. The
	// session layer uses it to expire raw text that outlived its
	// redaction window while no process was running.
	CapturedAt time.Time `json:"captured_at,omitempty" msgpack:"captured_at,omitempty"`

	// Enrollment match state attached by the identification pass.
	EnrollmentMatch      bool    `json:"enrollment_match" msgpack:"enrollment_match"`
	EnrollmentConfidence float64 `json:"enrollment_confidence" msgpack:"enrollment_confidence"`
	MatchedSpeaker       string  `json:"matched_speaker,omitempty" msgpack:"matched_speaker,omitempty"`

	// Final role assignment.
	Role             string `json:"speaker_role" msgpack:"speaker_role"`
	AssignmentMethod string `json:"assignment_method" msgpack:"assignment_method"`
}
