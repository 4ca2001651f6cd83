// Package features converts short audio windows into fixed-dimension voice
// embeddings. The embedding layout is frozen at 37 dimensions:
//
//	0..12   MFCC means (13 coefficients)
//	13..25  MFCC standard deviations
//	26..30  pitch statistics (mean, std, median, p25, p75) over voiced frames
//	31..34  spectral centroid mean/std, spectral rolloff mean/std
//	35..36  zero-crossing rate mean/std
//
// Every stored voice profile and every candidate embedding shares this
// layout; a dimension mismatch invalidates any comparison between them.
package features

import (
	"math"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
)

// Dim is the embedding dimension. It is invariant across profile versions.
const Dim = 37

// SchemaVersion identifies the feature layout baked into stored profiles.
const SchemaVersion = "v1.0"

// Pitch fallback constants substituted when a window has no voiced frame,
// preserving dimensionality.
var unvoicedPitchStats = [5]float64{150, 20, 150, 130, 170}

// Embedding is a fixed-dimension voice feature vector.
type Embedding []float64

// Config controls feature extraction.
type Config struct {
	SampleRate  int     // input rate in Hz (default 16000)
	WindowSize  int     // analysis frame length in samples (default 400 = 25ms)
	HopSize     int     // frame hop in samples (default 160 = 10ms)
	FFTSize     int     // FFT size (default 512)
	NumMels     int     // mel filters feeding the DCT (default 26)
	NumCoeffs   int     // cepstral coefficients kept (default 13)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
	NoiseFloor  float64 // minimum window RMS; quieter input is "no signal" (default 0.01)

	// Pitch search bounds in Hz and the normalized autocorrelation peak a
	// frame must clear to count as voiced.
	PitchMin        float64 // default 50
	PitchMax        float64 // default 500
	VoicedThreshold float64 // default 0.3

	// RolloffFraction is the cumulative-energy point for spectral rolloff
	// (default 0.85).
	RolloffFraction float64
}

// DefaultConfig returns the standard configuration for 16kHz mono input.
func DefaultConfig() Config {
	return Config{
		SampleRate:      pcm.SampleRate,
		WindowSize:      400,
		HopSize:         160,
		FFTSize:         512,
		NumMels:         26,
		NumCoeffs:       13,
		PreEmphasis:     0.97,
		NoiseFloor:      0.01,
		PitchMin:        50,
		PitchMax:        500,
		VoicedThreshold: 0.3,
		RolloffFraction: 0.85,
	}
}

// Extractor computes embeddings from PCM clips. It is safe for concurrent
// use; all mutable state is per-call.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	dct     [][]float64
}

// New creates an Extractor. Zero-valued config fields take defaults.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = def.HopSize
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = def.FFTSize
	}
	if cfg.NumMels <= 0 {
		cfg.NumMels = def.NumMels
	}
	if cfg.NumCoeffs <= 0 {
		cfg.NumCoeffs = def.NumCoeffs
	}
	if cfg.PreEmphasis == 0 {
		cfg.PreEmphasis = def.PreEmphasis
	}
	if cfg.NoiseFloor == 0 {
		cfg.NoiseFloor = def.NoiseFloor
	}
	if cfg.PitchMin <= 0 {
		cfg.PitchMin = def.PitchMin
	}
	if cfg.PitchMax <= 0 {
		cfg.PitchMax = def.PitchMax
	}
	if cfg.VoicedThreshold <= 0 {
		cfg.VoicedThreshold = def.VoicedThreshold
	}
	if cfg.RolloffFraction <= 0 {
		cfg.RolloffFraction = def.RolloffFraction
	}
	return &Extractor{
		cfg:     cfg,
		window:  hammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate),
		dct:     dctMatrix(cfg.NumCoeffs, cfg.NumMels),
	}
}

// Extract computes the embedding for one audio window (≈3s typical).
// The second return value is false when the window carries no usable
// signal (below the noise floor or too short for a single analysis
// frame); callers must skip such windows rather than treat them as
// errors.
func (e *Extractor) Extract(clip pcm.Clip) (Embedding, bool) {
	cfg := e.cfg
	n := len(clip.Samples)
	if n < cfg.WindowSize {
		return nil, false
	}
	if clip.RMS() < cfg.NoiseFloor {
		return nil, false
	}

	numFrames := (n-cfg.WindowSize)/cfg.HopSize + 1
	halfFFT := cfg.FFTSize/2 + 1
	binHz := float64(cfg.SampleRate) / float64(cfg.FFTSize)

	mfcc := make([][]float64, numFrames)
	var pitches []float64
	centroids := make([]float64, numFrames)
	rolloffs := make([]float64, numFrames)
	zcrs := make([]float64, numFrames)

	frame := make([]float64, cfg.FFTSize)
	re := make([]float64, cfg.FFTSize)
	im := make([]float64, cfg.FFTSize)
	raw := make([]float64, cfg.WindowSize)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize
		copy(raw, clip.Samples[start:start+cfg.WindowSize])

		// Pre-emphasis + windowing into the FFT buffer.
		for i := 0; i < cfg.WindowSize; i++ {
			s := raw[i]
			if i > 0 {
				s -= cfg.PreEmphasis * raw[i-1]
			}
			frame[i] = s * e.window[i]
		}
		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			frame[i] = 0
		}

		copy(re, frame)
		for i := range im {
			im[i] = 0
		}
		fft(re, im)

		power := make([]float64, halfFFT)
		for k := 0; k < halfFFT; k++ {
			power[k] = re[k]*re[k] + im[k]*im[k]
		}

		mfcc[t] = e.cepstrum(power)
		centroids[t], rolloffs[t] = e.spectralStats(power, binHz)
		zcrs[t] = zeroCrossingRate(raw)

		if hz, voiced := e.framePitch(raw); voiced {
			pitches = append(pitches, hz)
		}
	}

	out := make(Embedding, 0, Dim)

	// MFCC mean and std per coefficient across frames.
	coeff := make([]float64, numFrames)
	for c := 0; c < cfg.NumCoeffs; c++ {
		for t := 0; t < numFrames; t++ {
			coeff[t] = mfcc[t][c]
		}
		out = append(out, mean(coeff))
	}
	for c := 0; c < cfg.NumCoeffs; c++ {
		for t := 0; t < numFrames; t++ {
			coeff[t] = mfcc[t][c]
		}
		out = append(out, std(coeff))
	}

	if len(pitches) > 0 {
		out = append(out,
			mean(pitches),
			std(pitches),
			median(pitches),
			percentile(pitches, 25),
			percentile(pitches, 75),
		)
	} else {
		out = append(out, unvoicedPitchStats[:]...)
	}

	out = append(out, mean(centroids), std(centroids), mean(rolloffs), std(rolloffs))
	out = append(out, mean(zcrs), std(zcrs))

	return out, true
}

// cepstrum maps one frame's power spectrum to NumCoeffs MFCCs.
func (e *Extractor) cepstrum(power []float64) []float64 {
	logMel := make([]float64, e.cfg.NumMels)
	for m := range e.melBank {
		var energy float64
		for k, w := range e.melBank[m] {
			energy += w * power[k]
		}
		if energy < 1e-10 {
			energy = 1e-10
		}
		logMel[m] = math.Log(energy)
	}

	ceps := make([]float64, e.cfg.NumCoeffs)
	for c, row := range e.dct {
		var sum float64
		for k, w := range row {
			sum += w * logMel[k]
		}
		ceps[c] = sum
	}
	return ceps
}

// spectralStats returns the spectral centroid and rolloff frequency of a
// frame, both in Hz.
func (e *Extractor) spectralStats(power []float64, binHz float64) (centroid, rolloff float64) {
	var total, weighted float64
	for k, p := range power {
		total += p
		weighted += p * float64(k) * binHz
	}
	if total <= 0 {
		return 0, 0
	}
	centroid = weighted / total

	target := e.cfg.RolloffFraction * total
	var cum float64
	for k, p := range power {
		cum += p
		if cum >= target {
			rolloff = float64(k) * binHz
			break
		}
	}
	return centroid, rolloff
}

// framePitch estimates the fundamental frequency of one raw frame via
// normalized autocorrelation. Returns voiced=false when no peak within the
// configured pitch range clears the voicing threshold.
func (e *Extractor) framePitch(frame []float64) (hz float64, voiced bool) {
	cfg := e.cfg
	minLag := int(float64(cfg.SampleRate) / cfg.PitchMax)
	maxLag := int(float64(cfg.SampleRate) / cfg.PitchMin)
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, false
	}

	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if energy <= 0 {
		return 0, false
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr < cfg.VoicedThreshold {
		return 0, false
	}
	return float64(cfg.SampleRate) / float64(bestLag), true
}

// zeroCrossingRate returns the fraction of adjacent sample pairs whose
// signs differ.
func zeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}
