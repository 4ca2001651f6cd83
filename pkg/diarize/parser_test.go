package diarize_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/terra-femme/MedJournee/pkg/diarize"
)

func intPtr(v int) *int { return &v }

func TestParseUtterances(t *testing.T) {
	result := &diarize.Result{
		Status: "completed",
		Text:   "Hello Hi doctor",
		Utterances: []diarize.Utterance{
			{Speaker: "A", Text: "Hello", Start: 0, End: intPtr(1000)},
			{Speaker: "B", Text: "Hi doctor", Start: 1000, End: intPtr(2000)},
		},
	}

	got := diarize.ParseResult(result)
	want := []diarize.Segment{
		{Speaker: "SPEAKER_1", Text: "Hello", Start: 0, End: 1, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
		{Speaker: "SPEAKER_2", Text: "Hi doctor", Start: 1, End: 2, Confidence: 0.95, Method: diarize.MethodCloudDiarization},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseResult = %+v, want %+v", got, want)
	}
}

func TestParseUtterancesSkipsEmptyText(t *testing.T) {
	result := &diarize.Result{
		Text: "Hello",
		Utterances: []diarize.Utterance{
			{Speaker: "A", Text: "  ", Start: 0, End: intPtr(500)},
			{Speaker: "A", Text: "Hello", Start: 500, End: intPtr(1000)},
		},
	}

	got := diarize.ParseResult(result)
	if len(got) != 1 || got[0].Text != "Hello" {
		t.Fatalf("ParseResult = %+v, want single Hello segment", got)
	}
}

func TestParseUtteranceDefaults(t *testing.T) {
	result := &diarize.Result{
		Text: "Hello",
		Utterances: []diarize.Utterance{
			{Speaker: "Z", Text: "Hello"},
		},
	}

	got := diarize.ParseResult(result)
	if len(got) != 1 {
		t.Fatalf("got %d segments", len(got))
	}
	seg := got[0]
	if seg.Speaker != "SPEAKER_1" {
		t.Errorf("unknown speaker letter mapped to %q, want SPEAKER_1", seg.Speaker)
	}
	if seg.Start != 0 || seg.End != 1 {
		t.Errorf("default span = [%v, %v], want [0, 1]", seg.Start, seg.End)
	}
	if seg.Confidence != 0.95 {
		t.Errorf("default confidence = %v, want 0.95", seg.Confidence)
	}
}

func TestParseWordsGroupsBySpeaker(t *testing.T) {
	words := []diarize.Word{
		{Speaker: "A", Text: "How", Start: 0, End: intPtr(200)},
		{Speaker: "A", Text: "are", Start: 200, End: intPtr(400)},
		{Speaker: "A", Text: "you", Start: 400, End: intPtr(600)},
		{Speaker: "B", Text: "Fine", Start: 700, End: intPtr(1000)},
	}

	want := []diarize.Segment{
		{Speaker: "SPEAKER_1", Text: "How are you", Start: 0, End: 0.6, Confidence: 0.9, Method: diarize.MethodWordLevel},
		{Speaker: "SPEAKER_2", Text: "Fine", Start: 0.7, End: 1, Confidence: 0.9, Method: diarize.MethodWordLevel},
	}

	// Empty utterance list with populated words must behave the same as
	// direct word grouping.
	withEmpty := &diarize.Result{Text: "How are you Fine", Utterances: []diarize.Utterance{}, Words: words}
	wordsOnly := &diarize.Result{Text: "How are you Fine", Words: words}

	for _, result := range []*diarize.Result{withEmpty, wordsOnly} {
		got := diarize.ParseResult(result)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("ParseResult = %+v, want %+v", got, want)
		}
	}
}

func TestParsePlainTextFallback(t *testing.T) {
	result := &diarize.Result{Text: "Take two tablets daily."}

	got := diarize.ParseResult(result)
	want := []diarize.Segment{{
		Speaker:    "SPEAKER_1",
		Text:       "Take two tablets daily.",
		Start:      0,
		End:        30,
		Confidence: 0.8,
		Method:     diarize.MethodNoDiarization,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseResult = %+v, want %+v", got, want)
	}
}

func TestParseEmptyTranscript(t *testing.T) {
	for _, result := range []*diarize.Result{
		nil,
		{},
		{Text: "   "},
		{Text: "", Utterances: []diarize.Utterance{{Speaker: "A", Text: "ghost"}}},
	} {
		if got := diarize.ParseResult(result); len(got) != 0 {
			t.Fatalf("ParseResult(%+v) = %+v, want none", result, got)
		}
	}
}

func TestConfidenceCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want diarize.Confidence
	}{
		{`0.93`, 0.93},
		{`1.7`, 1},
		{`-0.2`, 0},
		{`"0.45"`, 0.45},
		{`"fallback_estimate"`, 0.6},
		{`"high"`, 0.8},
		{`{"nested": true}`, 0.8},
	}
	for _, tt := range tests {
		var c diarize.Confidence
		if err := json.Unmarshal([]byte(tt.raw), &c); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.raw, err)
		}
		if c != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.raw, c, tt.want)
		}
	}
}
