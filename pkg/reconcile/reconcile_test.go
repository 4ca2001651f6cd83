package reconcile_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/diarize"
	"github.com/terra-femme/MedJournee/pkg/reconcile"
	"github.com/terra-femme/MedJournee/pkg/transcript"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

type stubDiarizer struct {
	segments []diarize.Segment
	err      error
}

func (s *stubDiarizer) Process(ctx context.Context, audio io.Reader) ([]diarize.Segment, error) {
	return s.segments, s.err
}

// stubIdentifier matches every span it is handed and records the span
// durations it saw.
type stubIdentifier struct {
	name string
	err  error

	spans []float64
}

func (s *stubIdentifier) Identify(ctx context.Context, clip pcm.Clip, familyID string) (voiceprint.Identification, error) {
	s.spans = append(s.spans, clip.Seconds())
	if s.err != nil {
		return voiceprint.Identification{}, s.err
	}
	return voiceprint.Identification{
		Matched:     true,
		SpeakerName: s.name,
		Confidence:  0.85,
	}, nil
}

func silentRecording(seconds float64) pcm.Clip {
	return pcm.Clip{
		Samples:    make([]float64, int(seconds*pcm.SampleRate)),
		SampleRate: pcm.SampleRate,
		Origin:     pcm.SourceRecording,
	}
}

func TestFinalizeAssignsRolesFromEnrollment(t *testing.T) {
	diarizer := &stubDiarizer{segments: []diarize.Segment{
		{Speaker: "SPEAKER_1", Text: "How are you feeling?", Start: 0, End: 2, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
		{Speaker: "SPEAKER_2", Text: "Better today", Start: 2, End: 4, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
	}}
	identifier := &stubIdentifier{name: "Grandma Rose"}

	r := reconcile.New(diarizer, identifier)
	segments, err := r.Finalize(context.Background(), silentRecording(5), "fam-1", nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	for _, seg := range segments {
		if seg.Role != transcript.RolePatientFamily {
			t.Errorf("segment %q role = %q, want enrolled match", seg.Text, seg.Role)
		}
		if seg.MatchedSpeaker != "Grandma Rose" {
			t.Errorf("MatchedSpeaker = %q", seg.MatchedSpeaker)
		}
		if seg.AssignmentMethod != transcript.MethodEnrollmentMatch {
			t.Errorf("AssignmentMethod = %q", seg.AssignmentMethod)
		}
	}
	if len(identifier.spans) != 2 {
		t.Fatalf("identifier called %d times, want 2", len(identifier.spans))
	}
}

func TestFinalizeOutOfRangeSpanDefaultsToProvider(t *testing.T) {
	diarizer := &stubDiarizer{segments: []diarize.Segment{
		{Speaker: "SPEAKER_1", Text: "in range", Start: 0, End: 2, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
		{Speaker: "SPEAKER_2", Text: "past the end", Start: 10, End: 12, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
	}}
	identifier := &stubIdentifier{name: "Grandma Rose"}

	r := reconcile.New(diarizer, identifier)
	segments, err := r.Finalize(context.Background(), silentRecording(5), "fam-1", nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Role != transcript.RolePatientFamily {
		t.Errorf("in-range segment role = %q", segments[0].Role)
	}
	if segments[1].Role != transcript.RoleProvider {
		t.Errorf("out-of-range segment role = %q, want provider default", segments[1].Role)
	}
	if segments[1].AssignmentMethod != transcript.MethodDefaultProvider {
		t.Errorf("out-of-range AssignmentMethod = %q", segments[1].AssignmentMethod)
	}
}

func TestFinalizeIdentificationErrorIsNotFatal(t *testing.T) {
	diarizer := &stubDiarizer{segments: []diarize.Segment{
		{Speaker: "SPEAKER_1", Text: "hello", Start: 0, End: 2, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
	}}
	identifier := &stubIdentifier{err: errors.New("store unavailable")}

	r := reconcile.New(diarizer, identifier)
	segments, err := r.Finalize(context.Background(), silentRecording(5), "fam-1", nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(segments) != 1 || segments[0].Role != transcript.RoleProvider {
		t.Fatalf("segments = %+v, want one provider segment", segments)
	}
}

func TestFinalizeAlternatingFallback(t *testing.T) {
	provisionals := []reconcile.Provisional{
		{Text: "first"},
		{Text: "second"},
		{Text: "third"},
	}

	for name, diarizer := range map[string]*stubDiarizer{
		"zero segments":  {},
		"service failed": {err: errors.New("upload rejected")},
	} {
		r := reconcile.New(diarizer, &stubIdentifier{})
		segments, err := r.Finalize(context.Background(), silentRecording(5), "fam-1", provisionals)
		if err != nil {
			t.Fatalf("%s: Finalize: %v", name, err)
		}

		wantSpeakers := []string{"SPEAKER_1", "SPEAKER_2", "SPEAKER_1"}
		if len(segments) != len(wantSpeakers) {
			t.Fatalf("%s: got %d segments, want %d", name, len(segments), len(wantSpeakers))
		}
		for i, seg := range segments {
			if seg.Speaker != wantSpeakers[i] {
				t.Errorf("%s: segment %d speaker = %q, want %q", name, i, seg.Speaker, wantSpeakers[i])
			}
			if seg.Method != reconcile.MethodAlternating {
				t.Errorf("%s: segment %d method = %q", name, i, seg.Method)
			}
			if seg.Text != provisionals[i].Text {
				t.Errorf("%s: segment %d text = %q", name, i, seg.Text)
			}
		}
	}
}

type fixedIdentifier struct {
	id  voiceprint.Identification
	err error
}

func (f *fixedIdentifier) Identify(ctx context.Context, clip pcm.Clip, familyID string) (voiceprint.Identification, error) {
	return f.id, f.err
}

func TestTrackerObserve(t *testing.T) {
	matched := &fixedIdentifier{id: voiceprint.Identification{Matched: true, SpeakerName: "Mom", Confidence: 0.9}}
	tracker := reconcile.NewTracker(matched, "fam-1", nil)

	guess := tracker.Observe(context.Background(), silentRecording(3))
	if guess.Speaker != "SPEAKER_2" || guess.Role != transcript.RolePatientFamily || !guess.Enrolled {
		t.Fatalf("matched guess = %+v", guess)
	}
	if guess.SpeakerName != "Mom" {
		t.Fatalf("SpeakerName = %q", guess.SpeakerName)
	}

	last, ok := tracker.Last()
	if !ok || last != guess {
		t.Fatalf("Last = %+v, %v", last, ok)
	}
}

func TestTrackerDefaultsOnFailure(t *testing.T) {
	for name, identifier := range map[string]reconcile.Identifier{
		"no match": &fixedIdentifier{id: voiceprint.Identification{Confidence: 0.3}},
		"error":    &fixedIdentifier{err: errors.New("identification down")},
	} {
		tracker := reconcile.NewTracker(identifier, "fam-1", nil)
		guess := tracker.Observe(context.Background(), silentRecording(3))
		if guess.Speaker != "SPEAKER_1" || guess.Role != transcript.RoleProvider || guess.Enrolled {
			t.Fatalf("%s: guess = %+v, want provider default", name, guess)
		}
	}
}
