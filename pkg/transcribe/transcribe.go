// Package transcribe converts live audio chunks to text with Whisper.
// Chunks are small and frequent, so the package is aggressive about
// skipping silence and filtering the hallucinated stock phrases Whisper
// produces on short or quiet audio.
package transcribe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

// minChunkBytes is the smallest chunk worth sending; anything under
// this is treated as silence.
const minChunkBytes = 5000

// hallucinationPhrases are stock phrases Whisper emits for near-silent
// audio. A short transcript containing one is discarded.
var hallucinationPhrases = []string{
	"thank you", "thanks for watching", "subscribe",
	"like and subscribe", "see you next time",
	"music", "applause", "silence",
}

// Chunk is one audio chunk's transcription. Empty chunks are normal
// during pauses; callers skip them rather than treating them as errors.
type Chunk struct {
	Text     string
	Language string
	Empty    bool
	Reason   string
}

// Transcriber wraps the Whisper transcription endpoint.
type Transcriber struct {
	client openai.Client
	model  openai.AudioModel
	logger *slog.Logger
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithModel overrides the transcription model.
func WithModel(model openai.AudioModel) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		t.logger = logger
	}
}

// New creates a Transcriber backed by an OpenAI client.
func New(client openai.Client, opts ...Option) *Transcriber {
	t := &Transcriber{
		client: client,
		model:  openai.AudioModelWhisper1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe sends one chunk to Whisper. sourceLang may be empty or a
// detect alias, in which case Whisper detects the language. Too-small
// chunks and filtered hallucinations return an Empty chunk with a nil
// error.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, filename, sourceLang string) (Chunk, error) {
	if len(audio) < minChunkBytes {
		return Chunk{Empty: true, Reason: "audio too short/quiet"}, nil
	}

	params := openai.AudioTranscriptionNewParams{
		Model:          t.model,
		File:           openai.File(bytes.NewReader(audio), filename, "audio/wav"),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	lang := strings.ToLower(strings.TrimSpace(sourceLang))
	switch lang {
	case "", "auto", "automatic", "detect":
		lang = ""
	default:
		params.Language = param.NewOpt(lang)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Chunk{}, err
	}

	text := strings.TrimSpace(resp.Text)
	if isHallucination(text) {
		t.logger.Debug("filtered hallucinated transcript", "text", text)
		return Chunk{Empty: true, Reason: "filtered potential hallucination"}, nil
	}

	language := lang
	if language == "" {
		language = "auto-detected"
	}
	return Chunk{
		Text:     text,
		Language: language,
		Empty:    len(text) < 3,
	}, nil
}

// isHallucination reports whether a short transcript matches one of the
// known stock phrases.
func isHallucination(text string) bool {
	if len(text) >= 50 {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range hallucinationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
