package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/pkg/journal"
	"github.com/terra-femme/MedJournee/pkg/kv"
	"github.com/terra-femme/MedJournee/pkg/session"
	"github.com/terra-femme/MedJournee/pkg/transcript"
)

type stubSummarizer struct {
	calls atomic.Int32
	entry *journal.Entry
	err   error
}

func (s *stubSummarizer) Generate(ctx context.Context, segments []transcript.Segment, patient journal.PatientInfo) (*journal.Entry, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	entry := *s.entry
	entry.SegmentsProcessed = len(segments)
	return &entry, nil
}

func okSummarizer() *stubSummarizer {
	return &stubSummarizer{entry: &journal.Entry{
		EntryType:  "medical_visit",
		Summary:    "Visit recorded.",
		Confidence: 0.85,
	}}
}

func segment(text string) transcript.Segment {
	return transcript.Segment{
		Speaker:    "SPEAKER_1",
		Role:       transcript.RoleProvider,
		Text:       text,
		Confidence: 0.9,
	}
}

func TestCreateAndAddSegments(t *testing.T) {
	m := session.NewManager(kv.NewMemory(), okSummarizer(), session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Status != session.StatusActive {
		t.Fatalf("Status = %q, want active", s.Status)
	}
	if len(s.Segments) != 0 {
		t.Fatalf("new session has %d segments", len(s.Segments))
	}

	for i, text := range []string{"first", "second"} {
		index, err := m.AddSegment(ctx, s.ID, segment(text))
		if err != nil {
			t.Fatalf("AddSegment: %v", err)
		}
		if index != i {
			t.Fatalf("index = %d, want %d", index, i)
		}
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Segments) != 2 || got.Segments[1].Text != "second" {
		t.Fatalf("Segments = %+v", got.Segments)
	}
}

func TestRedactionOverwritesTextKeepsMetadata(t *testing.T) {
	m := session.NewManager(kv.NewMemory(), okSummarizer(), session.WithRedactionDelay(10*time.Millisecond))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.AddSegment(ctx, s.ID, segment("sensitive words")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := m.Get(ctx, s.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Segments[0].Text == session.RedactionMarker {
			if got.Segments[0].Speaker != "SPEAKER_1" || got.Segments[0].Confidence != 0.9 {
				t.Fatalf("redaction dropped metadata: %+v", got.Segments[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("segment never redacted: %+v", got.Segments[0])
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEndGeneratesJournalAndPurgesSegments(t *testing.T) {
	summarizer := okSummarizer()
	m := session.NewManager(kv.NewMemory(), summarizer, session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.AddSegment(ctx, s.ID, segment("hello")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	ended, err := m.End(ctx, s.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != session.StatusCompleted {
		t.Fatalf("Status = %q, want completed", ended.Status)
	}
	if ended.Journal == nil || ended.Journal.SegmentsProcessed != 1 {
		t.Fatalf("Journal = %+v", ended.Journal)
	}
	if ended.JournalConfidence != 0.85 {
		t.Fatalf("JournalConfidence = %v", ended.JournalConfidence)
	}
	if len(ended.Segments) != 0 {
		t.Fatalf("raw segments not purged: %+v", ended.Segments)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Segments) != 0 || got.Status != session.StatusCompleted {
		t.Fatalf("persisted session = %+v", got)
	}
}

func TestEndTwiceRejectedWithoutResummarizing(t *testing.T) {
	summarizer := okSummarizer()
	m := session.NewManager(kv.NewMemory(), summarizer, session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.End(ctx, s.ID); err != nil {
		t.Fatalf("first End: %v", err)
	}

	if _, err := m.End(ctx, s.ID); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("second End err = %v, want ErrSessionNotActive", err)
	}
	if got := summarizer.calls.Load(); got != 1 {
		t.Fatalf("summarizer called %d times, want 1", got)
	}
}

func TestEndJournalFailurePreservesSegments(t *testing.T) {
	summarizer := &stubSummarizer{err: &journal.GenerationError{
		Fallback: &journal.Entry{
			EntryType:  "medical_visit_basic",
			Summary:    "Medical visit - 1 conversation segments processed.",
			Confidence: 0.5,
			Fallback:   true,
		},
		Err: errors.New("model unavailable"),
	}}
	m := session.NewManager(kv.NewMemory(), summarizer, session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.AddSegment(ctx, s.ID, segment("hello")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	ended, err := m.End(ctx, s.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != session.StatusJournalFailed {
		t.Fatalf("Status = %q, want journal_failed", ended.Status)
	}
	if len(ended.Segments) != 1 {
		t.Fatalf("raw segments not preserved: %+v", ended.Segments)
	}
	if ended.Journal == nil || !ended.Journal.Fallback {
		t.Fatalf("fallback entry not stored: %+v", ended.Journal)
	}
}

func TestAddSegmentOnEndedSession(t *testing.T) {
	m := session.NewManager(kv.NewMemory(), okSummarizer(), session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.End(ctx, s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, err := m.AddSegment(ctx, s.ID, segment("late")); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("err = %v, want ErrSessionNotActive", err)
	}
}

func TestAbandonMarksErrorAndPurgesSegments(t *testing.T) {
	summarizer := okSummarizer()
	m := session.NewManager(kv.NewMemory(), summarizer, session.WithRedactionDelay(time.Hour))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.AddSegment(ctx, s.ID, segment("private medical details")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	if err := m.Abandon(ctx, s.ID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != session.StatusError {
		t.Fatalf("Status = %q, want error", got.Status)
	}
	if len(got.Segments) != 0 {
		t.Fatalf("raw segments survived abandon: %+v", got.Segments)
	}
	if summarizer.calls.Load() != 0 {
		t.Fatalf("abandon must not summarize")
	}

	if _, err := m.End(ctx, s.ID); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("End after Abandon err = %v, want ErrSessionNotActive", err)
	}
}

func TestExpiredSegmentsRedactedOnLoad(t *testing.T) {
	store := kv.NewMemory()
	current := time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	m := session.NewManager(store, okSummarizer(),
		session.WithRedactionDelay(10*time.Second),
		session.WithClock(clock))
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "Rose", "fam-1", "vi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.AddSegment(ctx, s.ID, segment("old private words")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	// A second manager over the same store stands in for a process
	// restart: no timers exist, but loading the session past the
	// redaction window must still expire the stale raw text.
	current = current.Add(11 * time.Second)
	m2 := session.NewManager(store, okSummarizer(),
		session.WithRedactionDelay(10*time.Second),
		session.WithClock(clock))
	if _, err := m2.AddSegment(ctx, s.ID, segment("fresh words")); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	got, err := m2.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Segments[0].Text != session.RedactionMarker {
		t.Fatalf("stale segment not redacted: %+v", got.Segments[0])
	}
	if got.Segments[1].Text != "fresh words" {
		t.Fatalf("fresh segment redacted early: %+v", got.Segments[1])
	}

	// The redaction persists for later readers.
	reread, err := m2.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reread.Segments[0].Text != session.RedactionMarker {
		t.Fatalf("redaction not persisted: %+v", reread.Segments[0])
	}
}

func TestUnknownSession(t *testing.T) {
	m := session.NewManager(kv.NewMemory(), okSummarizer())

	if _, err := m.Get(context.Background(), "nope"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
