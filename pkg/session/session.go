// Package session manages live recording sessions: segment collection
// during capture, deferred privacy redaction of raw text, and the
// end-of-session journal handoff.
//
// Mutation of any one session is serialized; segments for different
// sessions proceed independently. The lifecycle is
//
//	active → processing_journal → {completed, journal_failed, error}
//
// where the last three states are terminal. Status never regresses.
package session

import (
	"errors"
	"time"

	"github.com/terra-femme/MedJournee/pkg/journal"
	"github.com/terra-femme/MedJournee/pkg/transcript"
)

// Status is a session lifecycle state.
type Status string

const (
	StatusActive            Status = "active"
	StatusProcessingJournal Status = "processing_journal"
	StatusCompleted         Status = "completed"
	StatusJournalFailed     Status = "journal_failed"
	StatusError             Status = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusJournalFailed, StatusError:
		return true
	}
	return false
}

// RedactionMarker replaces a segment's raw text when its privacy timer
// fires.
const RedactionMarker = "[DELETED FOR PRIVACY]"

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionNotActive is returned when an operation requires an
	// active session. Repeated end calls hit this; they are rejected
	// with no side effects.
	ErrSessionNotActive = errors.New("session: not active")
)

// Session is one live recording session. Raw segments are purged on
// successful completion; only the journal entry survives.
type Session struct {
	ID             string `json:"session_id" msgpack:"session_id"`
	UserID         string `json:"user_id" msgpack:"user_id"`
	PatientName    string `json:"patient_name" msgpack:"patient_name"`
	FamilyID       string `json:"family_id" msgpack:"family_id"`
	TargetLanguage string `json:"target_language" msgpack:"target_language"`

	Status       Status    `json:"status" msgpack:"status"`
	StartedAt    time.Time `json:"started_at" msgpack:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty" msgpack:"ended_at,omitempty"`
	LastActivity time.Time `json:"last_activity" msgpack:"last_activity"`

	Segments []transcript.Segment `json:"speaker_segments" msgpack:"speaker_segments"`

	Journal           *journal.Entry `json:"journal_entry,omitempty" msgpack:"journal_entry,omitempty"`
	JournalConfidence float64        `json:"confidence_score,omitempty" msgpack:"confidence_score,omitempty"`
}
