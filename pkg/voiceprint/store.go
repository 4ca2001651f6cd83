package voiceprint

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/kv"
)

// Enrollment requirements.
const (
	MinEnrollmentSeconds = 15.0
	MinEmbeddings        = 5
	enrollWindowSeconds  = 3.0
	enrollStrideSeconds  = 2.0
)

// enrollmentRecord is the persisted row. Only the biometric payload is
// encrypted; the metadata mirrors what the store needs for listing and
// revocation without touching the key.
type enrollmentRecord struct {
	ID           string    `msgpack:"id"`
	FamilyID     string    `msgpack:"family_id"`
	SpeakerName  string    `msgpack:"speaker_name"`
	Relationship string    `msgpack:"relationship"`
	QualityScore float64   `msgpack:"quality_score"`
	SampleCount  int       `msgpack:"sample_count"`
	EnrolledAt   time.Time `msgpack:"enrolled_at"`
	Active       bool      `msgpack:"active"`
	Encrypted    []byte    `msgpack:"encrypted_profile"`
}

// biometricPayload is the encrypted part of a profile.
type biometricPayload struct {
	MeanEmbedding    []float64 `msgpack:"mean_embedding"`
	StdEmbedding     []float64 `msgpack:"std_embedding"`
	ConsistencyScore float64   `msgpack:"consistency_score"`
	QualityScore     float64   `msgpack:"quality_score"`
	SchemaVersion    string    `msgpack:"schema_version"`
}

// Store builds, persists and retrieves encrypted voice profiles.
type Store struct {
	kv        kv.Store
	cipher    *profileCipher
	extractor *features.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for integrity anomalies.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithExtractor overrides the default feature extractor.
func WithExtractor(e *features.Extractor) StoreOption {
	return func(s *Store) { s.extractor = e }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store over the given KV backend. The key is the
// provisioned symmetric profile key and must be exactly KeySize bytes.
func NewStore(store kv.Store, key []byte, opts ...StoreOption) (*Store, error) {
	c, err := newProfileCipher(key)
	if err != nil {
		return nil, err
	}
	s := &Store{
		kv:        store,
		cipher:    c,
		extractor: features.New(features.Config{}),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func enrollKey(familyID, profileID string) kv.Key {
	return kv.Key{"enroll", familyID, profileID}
}

// Enroll builds a voice profile from a long enrollment clip and persists
// it encrypted. The clip must be at least MinEnrollmentSeconds long, above
// the noise floor, and yield at least MinEmbeddings usable windows.
func (s *Store) Enroll(ctx context.Context, clip pcm.Clip, familyID, speakerName, relationship string) (*EnrollmentResult, error) {
	if relationship == "" {
		relationship = DefaultRelationship
	}

	if clip.Seconds() < MinEnrollmentSeconds || clip.RMS() < 0.001 {
		return nil, &InsufficientAudioError{
			Duration: clip.Duration(),
			RMS:      clip.RMS(),
			Hint:     "record at least 15-20 seconds of clear speech",
		}
	}

	var embeddings []features.Embedding
	for _, window := range clip.Windows(enrollWindowSeconds, enrollStrideSeconds) {
		if emb, ok := s.extractor.Extract(window); ok {
			embeddings = append(embeddings, emb)
		}
	}
	if len(embeddings) < MinEmbeddings {
		return nil, &LowQualityAudioError{
			Embeddings: len(embeddings),
			Required:   MinEmbeddings,
			Hint:       "re-record in a quieter environment, speaking continuously",
		}
	}

	meanEmb, stdEmb := aggregate(embeddings)
	consistency := consistencyScore(meanEmb, stdEmb)
	quality := min(1.0, float64(len(embeddings))/10.0*consistency)

	payload := biometricPayload{
		MeanEmbedding:    meanEmb,
		StdEmbedding:     stdEmb,
		ConsistencyScore: consistency,
		QualityScore:     quality,
		SchemaVersion:    features.SchemaVersion,
	}
	plain, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	sealed, err := s.cipher.seal(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt profile: %w", err)
	}

	rec := enrollmentRecord{
		ID:           uuid.NewString(),
		FamilyID:     familyID,
		SpeakerName:  speakerName,
		Relationship: relationship,
		QualityScore: quality,
		SampleCount:  len(embeddings),
		EnrolledAt:   s.now().UTC(),
		Active:       true,
		Encrypted:    sealed,
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode enrollment record: %w", err)
	}
	if err := s.kv.Set(ctx, enrollKey(familyID, rec.ID), data); err != nil {
		return nil, fmt.Errorf("persist enrollment: %w", err)
	}

	return &EnrollmentResult{
		ProfileID:        rec.ID,
		SpeakerName:      speakerName,
		SamplesProcessed: len(embeddings),
		QualityScore:     quality,
	}, nil
}

// Profiles returns all active profiles for a family, decrypted for the
// duration of one matching operation. Records that fail decryption or
// decoding are skipped and flagged as integrity anomalies.
func (s *Store) Profiles(ctx context.Context, familyID string) ([]*VoiceProfile, error) {
	var profiles []*VoiceProfile
	for entry, err := range s.kv.List(ctx, kv.Key{"enroll", familyID}) {
		if err != nil {
			return nil, fmt.Errorf("list enrollments: %w", err)
		}
		var rec enrollmentRecord
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			s.logger.Warn("skipping undecodable enrollment record",
				"key", entry.Key.String(), "err", err)
			continue
		}
		if !rec.Active {
			continue
		}
		p, err := s.decryptRecord(&rec)
		if err != nil {
			s.logger.Warn("skipping enrollment profile with integrity failure",
				"profile_id", rec.ID, "family_id", rec.FamilyID, "err", err)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) decryptRecord(rec *enrollmentRecord) (*VoiceProfile, error) {
	plain, err := s.cipher.open(rec.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileIntegrity, err)
	}
	var payload biometricPayload
	if err := msgpack.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileIntegrity, err)
	}
	return &VoiceProfile{
		ID:               rec.ID,
		FamilyID:         rec.FamilyID,
		SpeakerName:      rec.SpeakerName,
		Relationship:     rec.Relationship,
		MeanEmbedding:    payload.MeanEmbedding,
		StdEmbedding:     payload.StdEmbedding,
		SampleCount:      rec.SampleCount,
		ConsistencyScore: payload.ConsistencyScore,
		QualityScore:     payload.QualityScore,
		EnrolledAt:       rec.EnrolledAt,
		Active:           rec.Active,
		SchemaVersion:    payload.SchemaVersion,
	}, nil
}

// Deactivate revokes a profile. The record is kept with Active=false;
// profiles are never hard-deleted.
func (s *Store) Deactivate(ctx context.Context, familyID, profileID string) error {
	key := enrollKey(familyID, profileID)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}
	var rec enrollmentRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode enrollment: %w", err)
	}
	if !rec.Active {
		return nil
	}
	rec.Active = false
	updated, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode enrollment: %w", err)
	}
	return s.kv.Set(ctx, key, updated)
}

// aggregate computes the per-dimension mean and standard deviation across
// enrollment window embeddings.
func aggregate(embeddings []features.Embedding) (meanEmb, stdEmb []float64) {
	dim := len(embeddings[0])
	meanEmb = make([]float64, dim)
	stdEmb = make([]float64, dim)

	for _, emb := range embeddings {
		for i, v := range emb {
			meanEmb[i] += v
		}
	}
	n := float64(len(embeddings))
	for i := range meanEmb {
		meanEmb[i] /= n
	}
	for _, emb := range embeddings {
		for i, v := range emb {
			d := v - meanEmb[i]
			stdEmb[i] += d * d
		}
	}
	for i := range stdEmb {
		stdEmb[i] = math.Sqrt(stdEmb[i] / n)
	}
	return meanEmb, stdEmb
}

// consistencyScore is 1 - mean(std)/mean(|mean|), clamped to [0,1].
// Tight per-dimension spread relative to the mean magnitude scores high.
func consistencyScore(meanEmb, stdEmb []float64) float64 {
	var meanStd, meanAbs float64
	for i := range meanEmb {
		meanStd += stdEmb[i]
		meanAbs += math.Abs(meanEmb[i])
	}
	meanStd /= float64(len(stdEmb))
	meanAbs /= float64(len(meanEmb))
	if meanAbs == 0 {
		return 0
	}
	return clamp01(1 - meanStd/meanAbs)
}
