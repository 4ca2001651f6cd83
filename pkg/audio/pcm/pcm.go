// Package pcm provides the decoded audio clip type shared by the feature
// extraction and reconciliation pipeline. A Clip is mono PCM at a fixed
// sample rate; it exists only transiently between decoding and feature
// extraction and is never persisted.
package pcm

import (
	"errors"
	"math"
	"time"
)

// SampleRate is the fixed pipeline sample rate in Hz. All clips entering
// feature extraction must be resampled to this rate by the decoder.
const SampleRate = 16000

// Source describes where a clip came from.
type Source int

const (
	// SourceEnrollment is a long voice sample captured for enrollment.
	SourceEnrollment Source = iota

	// SourceLiveChunk is a short chunk captured during a live session.
	SourceLiveChunk

	// SourceRecording is the full recording of a finished session.
	SourceRecording
)

func (s Source) String() string {
	switch s {
	case SourceEnrollment:
		return "enrollment"
	case SourceLiveChunk:
		return "live_chunk"
	case SourceRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Clip is a decoded mono PCM signal with normalized float64 samples in
// [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
	Origin     Source
}

var errEmptyClip = errors.New("pcm: empty clip")

// FromInt16 converts raw little-endian PCM16 bytes into a Clip at the
// given rate. Trailing odd bytes are dropped.
func FromInt16(data []byte, rate int, origin Source) Clip {
	n := len(data) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(data[2*i]) | int16(data[2*i+1])<<8
		samples[i] = float64(s) / 32768.0
	}
	return Clip{Samples: samples, SampleRate: rate, Origin: origin}
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds returns the clip length in seconds.
func (c Clip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// RMS returns the root-mean-square energy of the clip.
func (c Clip) RMS() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(c.Samples)))
}

// Slice returns the sub-clip covering [startSec, endSec). It returns an
// error when the span falls entirely outside the clip or is inverted;
// spans partially past the end are clamped.
func (c Clip) Slice(startSec, endSec float64) (Clip, error) {
	if len(c.Samples) == 0 {
		return Clip{}, errEmptyClip
	}
	start := int(startSec * float64(c.SampleRate))
	end := int(endSec * float64(c.SampleRate))
	if end > len(c.Samples) {
		end = len(c.Samples)
	}
	if start < 0 || start >= len(c.Samples) || end <= start {
		return Clip{}, errors.New("pcm: slice span out of range")
	}
	return Clip{Samples: c.Samples[start:end], SampleRate: c.SampleRate, Origin: c.Origin}, nil
}

// Windows cuts the clip into windows of windowSec length at strideSec
// stride. The final partial window is dropped, matching the enrollment
// contract of one embedding per full window.
func (c Clip) Windows(windowSec, strideSec float64) []Clip {
	if c.SampleRate <= 0 || windowSec <= 0 || strideSec <= 0 {
		return nil
	}
	winLen := int(windowSec * float64(c.SampleRate))
	stride := int(strideSec * float64(c.SampleRate))
	if winLen <= 0 || stride <= 0 || len(c.Samples) < winLen {
		return nil
	}
	var out []Clip
	for start := 0; start+winLen <= len(c.Samples); start += stride {
		out = append(out, Clip{
			Samples:    c.Samples[start : start+winLen],
			SampleRate: c.SampleRate,
			Origin:     c.Origin,
		})
	}
	return out
}
