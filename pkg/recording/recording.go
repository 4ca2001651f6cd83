// Package recording persists session audio. Recordings exist only
// between capture and finalization: the full WAV is written as chunks
// arrive, read back once for diarization, and deleted when the session
// completes.
//
// Two backends are provided: local disk for single-node deployments and
// S3-compatible object storage for everything else.
package recording

import (
	"context"
	"fmt"
	"io"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
)

// BlobStore is the minimal blob interface recordings need. Paths are
// forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Read opens the named blob. If it does not exist, an error
	// wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named blob for writing, truncating any previous
	// content. The caller must close the returned WriteCloser to flush.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named blob. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Store reads and writes session recordings on top of a BlobStore.
type Store struct {
	blobs BlobStore
}

// NewStore creates a recording store.
func NewStore(blobs BlobStore) *Store {
	return &Store{blobs: blobs}
}

func sessionPath(familyID, sessionID string) string {
	return fmt.Sprintf("recordings/%s/%s.wav", familyID, sessionID)
}

// Save writes the session's full recording as a WAV blob.
func (s *Store) Save(ctx context.Context, familyID, sessionID string, clip pcm.Clip) error {
	w, err := s.blobs.Write(ctx, sessionPath(familyID, sessionID))
	if err != nil {
		return fmt.Errorf("recording: save %s: %w", sessionID, err)
	}
	if _, err := w.Write(pcm.EncodeWAV(clip)); err != nil {
		w.Close()
		return fmt.Errorf("recording: save %s: %w", sessionID, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("recording: save %s: %w", sessionID, err)
	}
	return nil
}

// Load reads the session's recording back for the finalization pass.
func (s *Store) Load(ctx context.Context, familyID, sessionID string) (pcm.Clip, error) {
	r, err := s.blobs.Read(ctx, sessionPath(familyID, sessionID))
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("recording: load %s: %w", sessionID, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("recording: load %s: %w", sessionID, err)
	}
	clip, err := pcm.DecodeWAV(data, pcm.SourceRecording)
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("recording: load %s: %w", sessionID, err)
	}
	return clip, nil
}

// Delete removes the session's recording after finalization. Missing
// recordings are fine; deletion is idempotent.
func (s *Store) Delete(ctx context.Context, familyID, sessionID string) error {
	if err := s.blobs.Delete(ctx, sessionPath(familyID, sessionID)); err != nil {
		return fmt.Errorf("recording: delete %s: %w", sessionID, err)
	}
	return nil
}

// Exists reports whether the session has a stored recording.
func (s *Store) Exists(ctx context.Context, familyID, sessionID string) (bool, error) {
	return s.blobs.Exists(ctx, sessionPath(familyID, sessionID))
}
