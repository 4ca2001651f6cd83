// Package translate renders conversation text into the family's
// preferred language using Gemini. Translation is best-effort: a
// service failure falls back to the original text rather than failing
// the caller's pipeline.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

var (
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("translate: empty text")

	// ErrInvalidLanguage is returned for a malformed target language
	// code. Input errors are never retried.
	ErrInvalidLanguage = errors.New("translate: invalid target language code")
)

// Result is one translation outcome. Fallback is set when the service
// failed and TranslatedText carries the original text unchanged.
type Result struct {
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	Fallback       bool
}

// NormalizeSource maps the aliases clients send for "detect the
// language" to the empty string the service expects.
func NormalizeSource(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "auto", "automatic", "detect":
		return ""
	}
	return strings.ToLower(strings.TrimSpace(lang))
}

// Translator translates text via Gemini.
type Translator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithModel overrides the Gemini model.
func WithModel(model string) TranslatorOption {
	return func(t *Translator) {
		t.model = model
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

// New creates a Translator.
func New(client *genai.Client, opts ...TranslatorOption) *Translator {
	t := &Translator{
		client: client,
		model:  defaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate renders text into targetLang. sourceLang may be empty or a
// detect alias, in which case the model detects the source. Service
// failures degrade to the original text with Fallback set; only input
// errors are returned as errors.
func (t *Translator) Translate(ctx context.Context, text, targetLang, sourceLang string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	targetLang = strings.ToLower(strings.TrimSpace(targetLang))
	if len(targetLang) < 2 {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidLanguage, targetLang)
	}
	sourceLang = NormalizeSource(sourceLang)

	prompt := buildPrompt(text, targetLang, sourceLang)
	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), nil)
	if err != nil {
		t.logger.Warn("translation failed, returning original text",
			"target_language", targetLang, "error", err)
		return fallbackResult(text, targetLang), nil
	}

	translated := strings.TrimSpace(resp.Text())
	if translated == "" {
		t.logger.Warn("translation returned no text, returning original",
			"target_language", targetLang)
		return fallbackResult(text, targetLang), nil
	}

	source := sourceLang
	if source == "" {
		source = "detected"
	}
	return Result{
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: targetLang,
	}, nil
}

func buildPrompt(text, targetLang, sourceLang string) string {
	var b strings.Builder
	if sourceLang != "" {
		fmt.Fprintf(&b, "Translate the following %s text to %s.", sourceLang, targetLang)
	} else {
		fmt.Fprintf(&b, "Translate the following text to %s, detecting the source language.", targetLang)
	}
	b.WriteString(" This is a medical conversation; keep medical terms accurate and the tone natural. Reply with only the translation, no explanations.\n\n")
	b.WriteString(text)
	return b.String()
}

func fallbackResult(text, targetLang string) Result {
	return Result{
		TranslatedText: text,
		SourceLanguage: "unknown",
		TargetLanguage: targetLang,
		Fallback:       true,
	}
}
