package diarize

import "strings"

// Tier defaults for missing optional fields.
const (
	defaultUtteranceEndMS  = 1000
	defaultWordEndMS       = 1000
	defaultPlainTextEndSec = 30
	defaultUtteranceConfid = 0.95
	defaultWordGroupConfid = 0.9
	defaultPlainTextConfid = 0.8
)

// speakerLabel maps the service's raw speaker letters to SPEAKER_n.
// Unknown letters collapse to SPEAKER_1.
func speakerLabel(raw string) string {
	switch raw {
	case "A":
		return "SPEAKER_1"
	case "B":
		return "SPEAKER_2"
	case "C":
		return "SPEAKER_3"
	case "D":
		return "SPEAKER_4"
	default:
		return "SPEAKER_1"
	}
}

// ParseResult normalizes a completed job payload into ordered segments.
// A payload with no transcript text yields no segments; the caller's
// fallback path handles that.
func ParseResult(result *Result) []Segment {
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil
	}

	if len(result.Utterances) > 0 {
		return parseUtterances(result.Utterances)
	}
	if len(result.Words) > 0 {
		return parseWords(result.Words)
	}

	return []Segment{{
		Speaker:    "SPEAKER_1",
		Text:       strings.TrimSpace(result.Text),
		Start:      0,
		End:        defaultPlainTextEndSec,
		Confidence: defaultPlainTextConfid,
		Method:     MethodNoDiarization,
	}}
}

func parseUtterances(utterances []Utterance) []Segment {
	segments := make([]Segment, 0, len(utterances))
	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}

		endMS := defaultUtteranceEndMS
		if u.End != nil {
			endMS = *u.End
		}
		confidence := float64(defaultUtteranceConfid)
		if u.Confidence != nil {
			confidence = float64(*u.Confidence)
		}

		segments = append(segments, Segment{
			Speaker:    speakerLabel(u.Speaker),
			Text:       text,
			Start:      float64(u.Start) / 1000,
			End:        float64(endMS) / 1000,
			Confidence: confidence,
			Method:     MethodCloudDiarization,
		})
	}
	return segments
}

// parseWords groups consecutive same-speaker words into segments.
func parseWords(words []Word) []Segment {
	var segments []Segment

	var (
		speaker string
		texts   []string
		startMS int
		endMS   int
	)

	flush := func() {
		if speaker == "" || len(texts) == 0 {
			return
		}
		segments = append(segments, Segment{
			Speaker:    speaker,
			Text:       strings.Join(texts, " "),
			Start:      float64(startMS) / 1000,
			End:        float64(endMS) / 1000,
			Confidence: defaultWordGroupConfid,
			Method:     MethodWordLevel,
		})
	}

	for _, w := range words {
		label := speakerLabel(w.Speaker)
		wordEnd := defaultWordEndMS
		if w.End != nil {
			wordEnd = *w.End
		}

		if label != speaker {
			flush()
			speaker = label
			texts = []string{w.Text}
			startMS = w.Start
			endMS = wordEnd
			continue
		}
		texts = append(texts, w.Text)
		if w.End != nil {
			endMS = *w.End
		}
	}
	flush()

	return segments
}
