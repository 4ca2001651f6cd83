package voiceprint

import (
	"errors"
	"fmt"
	"time"
)

// ErrProfileIntegrity marks a stored profile that could not be decrypted
// or decoded. Matching skips such profiles; they are surfaced as an
// anomaly, never as a fatal match error.
var ErrProfileIntegrity = errors.New("voiceprint: profile integrity failure")

// InsufficientAudioError reports enrollment audio that is too short or too
// quiet to build a profile from. It carries a remediation hint for the
// caller to surface.
type InsufficientAudioError struct {
	Duration time.Duration
	RMS      float64
	Hint     string
}

func (e *InsufficientAudioError) Error() string {
	return fmt.Sprintf("voiceprint: insufficient enrollment audio (%.1fs, rms=%.4f): %s",
		e.Duration.Seconds(), e.RMS, e.Hint)
}

// LowQualityAudioError reports enrollment audio that yielded too few
// usable embedding windows.
type LowQualityAudioError struct {
	Embeddings int
	Required   int
	Hint       string
}

func (e *LowQualityAudioError) Error() string {
	return fmt.Sprintf("voiceprint: low quality enrollment audio (%d/%d usable windows): %s",
		e.Embeddings, e.Required, e.Hint)
}
