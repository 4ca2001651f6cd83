package features_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/terra-femme/MedJournee/pkg/audio/features"
	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
)

func sineClip(freq, amp, seconds float64) pcm.Clip {
	n := int(seconds * pcm.SampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/pcm.SampleRate)
	}
	return pcm.Clip{Samples: samples, SampleRate: pcm.SampleRate, Origin: pcm.SourceEnrollment}
}

func noiseClip(amp, seconds float64, seed int64) pcm.Clip {
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * pcm.SampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amp * (rng.Float64()*2 - 1)
	}
	return pcm.Clip{Samples: samples, SampleRate: pcm.SampleRate, Origin: pcm.SourceEnrollment}
}

func TestExtractDimension(t *testing.T) {
	ex := features.New(features.Config{})
	emb, ok := ex.Extract(sineClip(220, 0.5, 3.0))
	if !ok {
		t.Fatal("expected signal")
	}
	if len(emb) != features.Dim {
		t.Fatalf("dim = %d, want %d", len(emb), features.Dim)
	}
}

func TestExtractNoSignal(t *testing.T) {
	ex := features.New(features.Config{})

	// Below the noise floor.
	if _, ok := ex.Extract(sineClip(220, 0.001, 3.0)); ok {
		t.Fatal("quiet clip should report no signal")
	}
	// Too short for a single analysis frame.
	short := pcm.Clip{Samples: make([]float64, 100), SampleRate: pcm.SampleRate}
	if _, ok := ex.Extract(short); ok {
		t.Fatal("short clip should report no signal")
	}
}

func TestExtractPitchOfSine(t *testing.T) {
	ex := features.New(features.Config{})
	emb, ok := ex.Extract(sineClip(200, 0.5, 3.0))
	if !ok {
		t.Fatal("expected signal")
	}
	// Index 26 is the pitch mean.
	pitchMean := emb[26]
	if math.Abs(pitchMean-200) > 15 {
		t.Fatalf("pitch mean = %v, want ~200", pitchMean)
	}
}

func TestExtractUnvoicedFallback(t *testing.T) {
	ex := features.New(features.Config{})
	emb, ok := ex.Extract(noiseClip(0.3, 3.0, 1))
	if !ok {
		t.Fatal("expected signal")
	}
	// White noise has no periodicity; the fixed pitch constants apply.
	want := []float64{150, 20, 150, 130, 170}
	for i, w := range want {
		if emb[26+i] != w {
			t.Fatalf("pitch stat %d = %v, want %v", i, emb[26+i], w)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	ex := features.New(features.Config{})
	clip := sineClip(330, 0.4, 3.0)
	a, _ := ex.Extract(clip)
	b, _ := ex.Extract(clip)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestDistinctSignalsDiffer(t *testing.T) {
	ex := features.New(features.Config{})
	a, _ := ex.Extract(sineClip(150, 0.5, 3.0))
	b, _ := ex.Extract(sineClip(400, 0.5, 3.0))
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different signals produced identical embeddings")
	}
}
