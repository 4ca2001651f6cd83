package voiceprint_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/kv"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

var testKey = make([]byte, voiceprint.KeySize)

func testClock() time.Time {
	return time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
}

// voicedClip synthesizes seconds of harmonic-rich signal loud enough to
// clear the enrollment RMS gate.
func voicedClip(seconds float64) pcm.Clip {
	n := int(seconds * pcm.SampleRate)
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / pcm.SampleRate
		samples[i] = 0.3*math.Sin(2*math.Pi*180*t) +
			0.15*math.Sin(2*math.Pi*360*t) +
			0.05*math.Sin(2*math.Pi*540*t)
	}
	return pcm.Clip{Samples: samples, SampleRate: pcm.SampleRate, Origin: pcm.SourceEnrollment}
}

func newTestStore(t *testing.T) (*voiceprint.Store, kv.Store) {
	t.Helper()
	mem := kv.NewMemory()
	s, err := voiceprint.NewStore(mem, testKey, voiceprint.WithClock(testClock))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, mem
}

func TestEnrollAndLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Enroll(ctx, voicedClip(16), "fam-1", "Grandma Rose", "grandmother")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if res.SamplesProcessed < voiceprint.MinEmbeddings {
		t.Fatalf("SamplesProcessed = %d, want >= %d", res.SamplesProcessed, voiceprint.MinEmbeddings)
	}
	if res.QualityScore < 0 || res.QualityScore > 1 {
		t.Fatalf("QualityScore = %v, want in [0, 1]", res.QualityScore)
	}

	profiles, err := s.Profiles(ctx, "fam-1")
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("got %d profiles, want 1", len(profiles))
	}

	p := profiles[0]
	if p.ID != res.ProfileID {
		t.Errorf("ID = %q, want %q", p.ID, res.ProfileID)
	}
	if p.SpeakerName != "Grandma Rose" {
		t.Errorf("SpeakerName = %q", p.SpeakerName)
	}
	if p.Relationship != "grandmother" {
		t.Errorf("Relationship = %q", p.Relationship)
	}
	if p.SampleCount != res.SamplesProcessed {
		t.Errorf("SampleCount = %d, want %d", p.SampleCount, res.SamplesProcessed)
	}
	if p.QualityScore != res.QualityScore {
		t.Errorf("QualityScore = %v, want %v", p.QualityScore, res.QualityScore)
	}
	if p.ConsistencyScore < 0 || p.ConsistencyScore > 1 {
		t.Errorf("ConsistencyScore = %v, want in [0, 1]", p.ConsistencyScore)
	}
	if len(p.MeanEmbedding) != features.Dim || len(p.StdEmbedding) != features.Dim {
		t.Errorf("embedding dims = %d/%d, want %d", len(p.MeanEmbedding), len(p.StdEmbedding), features.Dim)
	}
	if !p.EnrolledAt.Equal(testClock()) {
		t.Errorf("EnrolledAt = %v, want %v", p.EnrolledAt, testClock())
	}
	if p.SchemaVersion != features.SchemaVersion {
		t.Errorf("SchemaVersion = %q", p.SchemaVersion)
	}
	if !p.Active {
		t.Errorf("new profile should be active")
	}
}

func TestEnrollDefaultRelationship(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Enroll(ctx, voicedClip(16), "fam-1", "Uncle Joe", ""); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	profiles, err := s.Profiles(ctx, "fam-1")
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if got := profiles[0].Relationship; got != voiceprint.DefaultRelationship {
		t.Fatalf("Relationship = %q, want %q", got, voiceprint.DefaultRelationship)
	}
}

func TestEnrollTooShort(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Enroll(context.Background(), voicedClip(5), "fam-1", "Someone", "")
	var insufficient *voiceprint.InsufficientAudioError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientAudioError", err)
	}
	if insufficient.Hint == "" {
		t.Fatalf("expected a remediation hint")
	}
}

func TestEnrollTooQuiet(t *testing.T) {
	s, _ := newTestStore(t)

	clip := voicedClip(16)
	for i := range clip.Samples {
		clip.Samples[i] *= 1e-4
	}
	_, err := s.Enroll(context.Background(), clip, "fam-1", "Someone", "")
	var insufficient *voiceprint.InsufficientAudioError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientAudioError", err)
	}
}

func TestProfilesScopedByFamily(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Enroll(ctx, voicedClip(16), "fam-1", "A", ""); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := s.Enroll(ctx, voicedClip(16), "fam-2", "B", ""); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	profiles, err := s.Profiles(ctx, "fam-1")
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].SpeakerName != "A" {
		t.Fatalf("fam-1 profiles = %+v", profiles)
	}
}

func TestDeactivateHidesProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Enroll(ctx, voicedClip(16), "fam-1", "A", "")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := s.Deactivate(ctx, "fam-1", res.ProfileID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	profiles, err := s.Profiles(ctx, "fam-1")
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("got %d profiles after deactivation, want 0", len(profiles))
	}
}

func TestProfilesSkipsCorruptRecord(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	good, err := s.Enroll(ctx, voicedClip(16), "fam-1", "Good", "")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	bad, err := s.Enroll(ctx, voicedClip(16), "fam-1", "Bad", "")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	badKey := kv.Key{"enroll", "fam-1", bad.ProfileID}
	if err := mem.Set(ctx, badKey, []byte("not msgpack")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	profiles, err := s.Profiles(ctx, "fam-1")
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != good.ProfileID {
		t.Fatalf("expected only the intact profile, got %+v", profiles)
	}
}

func TestNewStoreRejectsBadKey(t *testing.T) {
	if _, err := voiceprint.NewStore(kv.NewMemory(), []byte("short")); err == nil {
		t.Fatalf("expected error for undersized key")
	}
}
