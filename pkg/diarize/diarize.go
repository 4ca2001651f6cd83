// Package diarize submits recorded audio to a cloud speaker-diarization
// service and normalizes its heterogeneous responses into an ordered
// segment sequence.
//
// The service is asynchronous: audio is uploaded, a transcription job is
// submitted, and the job is polled until it completes or the poll budget
// runs out. Responses come in three shapes depending on what the service
// managed to produce, decoded in priority order:
//
//  1. utterance list: one segment per utterance
//  2. word list: words grouped into runs by speaker
//  3. plain text: one full-span segment for a single speaker
//
// All timestamps are converted from milliseconds to seconds at this
// boundary, and confidence values are always numeric in [0, 1] by the
// time a Segment leaves this package.
package diarize

// Method tags recording which tier produced a segment.
const (
	MethodCloudDiarization = "cloud_diarization"
	MethodWordLevel        = "word_level_diarization"
	MethodNoDiarization    = "no_diarization_fallback"
)

// Segment is one speaker's contiguous span of speech. Speaker carries a
// normalized SPEAKER_n label; Start and End are seconds from the start
// of the recording.
type Segment struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}
