package transcript

import "strings"

// NormalizeLabel maps raw speaker labels from any upstream source to
// the SPEAKER_n form. Labels already in that form pass through.
func NormalizeLabel(raw string) string {
	if raw == "" {
		return "SPEAKER_1"
	}
	if strings.HasPrefix(raw, "SPEAKER_") {
		return raw
	}
	switch raw {
	case "A", "1":
		return "SPEAKER_1"
	case "B", "2":
		return "SPEAKER_2"
	}
	last := raw[len(raw)-1]
	if last >= '0' && last <= '9' {
		return "SPEAKER_" + string(last)
	}
	return "SPEAKER_1"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
