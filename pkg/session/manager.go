package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/terra-femme/MedJournee/pkg/journal"
	"github.com/terra-femme/MedJournee/pkg/kv"
	"github.com/terra-femme/MedJournee/pkg/transcript"
)

const (
	defaultRedactionDelay = 10 * time.Second
	redactionTimeout      = 5 * time.Second
)

// Summarizer generates the journal entry when a session ends.
type Summarizer interface {
	Generate(ctx context.Context, segments []transcript.Segment, patient journal.PatientInfo) (*journal.Entry, error)
}

// Manager owns session state. All per-session mutation goes through a
// per-session lock; redaction tasks are fire-and-forget and become
// silent no-ops when their target is gone.
type Manager struct {
	store          kv.Store
	summarizer     Summarizer
	logger         *slog.Logger
	redactionDelay time.Duration
	now            func() time.Time
	newID          func() string

	mu      sync.Mutex
	handles map[string]*handle
}

// handle serializes mutation of one session and tracks its pending
// redaction timers.
type handle struct {
	mu     sync.Mutex
	timers []*time.Timer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRedactionDelay overrides how long raw segment text survives
// before the privacy redaction fires.
func WithRedactionDelay(delay time.Duration) ManagerOption {
	return func(m *Manager) {
		m.redactionDelay = delay
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager backed by the given store.
func NewManager(store kv.Store, summarizer Summarizer, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:          store,
		summarizer:     summarizer,
		logger:         slog.Default(),
		redactionDelay: defaultRedactionDelay,
		now:            time.Now,
		newID:          uuid.NewString,
		handles:        make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sessionKey(id string) kv.Key {
	return kv.Key{"session", id}
}

func (m *Manager) handleFor(id string) *handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[id]
	if !ok {
		h = &handle{}
		m.handles[id] = h
	}
	return h
}

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	data, err := m.store.Get(ctx, sessionKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}
	var s Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if m.sweepExpired(&s) {
		if err := m.save(ctx, &s); err != nil {
			m.logger.Warn("expired segment redaction failed", "session_id", id, "error", err)
		}
	}
	return &s, nil
}

// sweepExpired redacts raw text that outlived the redaction delay.
// In-process timers handle the common case; the sweep covers segments
// whose timer never fired because the process that armed it exited.
// Reports whether anything changed.
func (m *Manager) sweepExpired(s *Session) bool {
	cutoff := m.now().Add(-m.redactionDelay)
	changed := false
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Text == RedactionMarker || seg.CapturedAt.IsZero() {
			continue
		}
		if seg.CapturedAt.After(cutoff) {
			continue
		}
		seg.Text = RedactionMarker
		changed = true
	}
	return changed
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", s.ID, err)
	}
	if err := m.store.Set(ctx, sessionKey(s.ID), data); err != nil {
		return fmt.Errorf("session: save %s: %w", s.ID, err)
	}
	return nil
}

// Create starts a new active session with an empty segment list.
func (m *Manager) Create(ctx context.Context, userID, patientName, familyID, targetLanguage string) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:             m.newID(),
		UserID:         userID,
		PatientName:    patientName,
		FamilyID:       familyID,
		TargetLanguage: targetLanguage,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivity:   now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the session's current state.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	h := m.handleFor(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	return m.load(ctx, id)
}

// AddSegment appends a segment to an active session and schedules its
// raw text for redaction. Returns the segment's index.
func (m *Manager) AddSegment(ctx context.Context, id string, seg transcript.Segment) (int, error) {
	h := m.handleFor(id)
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if s.Status != StatusActive {
		return 0, fmt.Errorf("%w: %s is %s", ErrSessionNotActive, id, s.Status)
	}

	seg.CapturedAt = m.now()
	s.Segments = append(s.Segments, seg)
	s.LastActivity = seg.CapturedAt
	if err := m.save(ctx, s); err != nil {
		return 0, err
	}

	index := len(s.Segments) - 1
	timer := time.AfterFunc(m.redactionDelay, func() {
		m.redact(id, index)
	})
	h.timers = append(h.timers, timer)

	return index, nil
}

// redact overwrites one segment's raw text with the redaction marker,
// keeping speaker and confidence metadata. If the session or segment is
// gone, or the session already finished, it does nothing.
func (m *Manager) redact(id string, index int) {
	ctx, cancel := context.WithTimeout(context.Background(), redactionTimeout)
	defer cancel()

	h := m.handleFor(id)
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return
	}
	if index >= len(s.Segments) {
		return
	}
	if s.Segments[index].Text == RedactionMarker {
		return
	}

	s.Segments[index].Text = RedactionMarker
	if err := m.save(ctx, s); err != nil {
		m.logger.Warn("segment redaction failed", "session_id", id, "index", index, "error", err)
		return
	}
	if s.Status.Terminal() && allRedacted(s) {
		m.dropHandle(id)
	}
}

func allRedacted(s *Session) bool {
	for _, seg := range s.Segments {
		if seg.Text != RedactionMarker {
			return false
		}
	}
	return true
}

// End finalizes the session: it transitions to processing_journal,
// invokes the summarizer over the full segment list, and lands in
// completed (raw segments purged) or journal_failed (raw segments
// preserved as a recoverable artifact). Calling End on a non-active
// session is rejected with ErrSessionNotActive and has no side effects.
func (m *Manager) End(ctx context.Context, id string) (*Session, error) {
	h := m.handleFor(id)
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotActive, id, s.Status)
	}

	s.Status = StatusProcessingJournal
	s.EndedAt = m.now()
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	entry, genErr := m.summarizer.Generate(ctx, s.Segments, journal.PatientInfo{
		Name:              s.PatientName,
		FamilyID:          s.FamilyID,
		PreferredLanguage: s.TargetLanguage,
	})
	if genErr != nil {
		s.Status = StatusJournalFailed
		var jfErr *journal.GenerationError
		if errors.As(genErr, &jfErr) && jfErr.Fallback != nil {
			s.Journal = jfErr.Fallback
			s.JournalConfidence = jfErr.Fallback.Confidence
		}
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		// Redaction timers stay armed: preserved segments still get
		// their raw text redacted on schedule.
		m.logger.Warn("journal generation failed, raw segments preserved",
			"session_id", id, "error", genErr)
		return s, nil
	}

	s.Status = StatusCompleted
	s.Journal = entry
	s.JournalConfidence = entry.Confidence
	s.Segments = nil
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	m.stopTimers(h)
	m.dropHandle(id)
	return s, nil
}

// Abandon marks an active session as terminally errored and purges its
// raw segments, for client disconnects that will never produce a
// journal. Nothing is left to redact, so pending timers are cancelled.
// Non-active sessions are left untouched.
func (m *Manager) Abandon(ctx context.Context, id string) error {
	h := m.handleFor(id)
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != StatusActive {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotActive, id, s.Status)
	}

	s.Status = StatusError
	s.EndedAt = m.now()
	s.Segments = nil
	if err := m.save(ctx, s); err != nil {
		return err
	}
	m.stopTimers(h)
	m.dropHandle(id)
	return nil
}

// stopTimers cancels pending redaction timers. Callers hold the
// session's lock. Timers that already fired are harmless no-ops.
func (m *Manager) stopTimers(h *handle) {
	for _, t := range h.timers {
		t.Stop()
	}
	h.timers = nil
}

// dropHandle releases a session's handle once it has no pending work.
// A late timer or caller simply gets a fresh handle.
func (m *Manager) dropHandle(id string) {
	m.mu.Lock()
	delete(m.handles, id)
	m.mu.Unlock()
}
