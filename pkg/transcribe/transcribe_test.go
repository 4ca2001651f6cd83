package transcribe_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/terra-femme/MedJournee/pkg/transcribe"
)

func whisperServer(t *testing.T, text string, gotLanguage *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if gotLanguage != nil {
			*gotLanguage = r.FormValue("language")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
}

func newTranscriber(serverURL string) *transcribe.Transcriber {
	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(serverURL),
	)
	return transcribe.New(client)
}

func bigChunk() []byte {
	return make([]byte, 16000)
}

func TestTranscribe(t *testing.T) {
	var language string
	server := whisperServer(t, " The knee has been bothering her at night. ", &language)
	defer server.Close()

	tr := newTranscriber(server.URL)
	chunk, err := tr.Transcribe(context.Background(), bigChunk(), "chunk.wav", "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if chunk.Empty {
		t.Fatalf("chunk unexpectedly empty: %+v", chunk)
	}
	if chunk.Text != "The knee has been bothering her at night." {
		t.Errorf("Text = %q", chunk.Text)
	}
	if chunk.Language != "en" || language != "en" {
		t.Errorf("language = %q (sent %q), want en", chunk.Language, language)
	}
}

func TestTranscribeAutoDetectOmitsLanguage(t *testing.T) {
	var language string
	server := whisperServer(t, "Hola doctor", &language)
	defer server.Close()

	tr := newTranscriber(server.URL)
	chunk, err := tr.Transcribe(context.Background(), bigChunk(), "chunk.wav", "auto")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if language != "" {
		t.Errorf("language param sent as %q, want omitted", language)
	}
	if chunk.Language != "auto-detected" {
		t.Errorf("Language = %q", chunk.Language)
	}
}

func TestTranscribeSmallChunkSkipped(t *testing.T) {
	server := whisperServer(t, "should never be called", nil)
	defer server.Close()

	tr := newTranscriber(server.URL)
	chunk, err := tr.Transcribe(context.Background(), make([]byte, 100), "chunk.wav", "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !chunk.Empty || chunk.Text != "" {
		t.Fatalf("chunk = %+v, want empty skip", chunk)
	}
}

func TestTranscribeFiltersHallucinations(t *testing.T) {
	tests := []struct {
		text  string
		empty bool
	}{
		{"Thank you.", true},
		{"Thanks for watching!", true},
		{"Thank you for coming in today, your blood work looks much better than last visit.", false},
		{"Hm", true},
	}
	for _, tt := range tests {
		server := whisperServer(t, tt.text, nil)
		tr := newTranscriber(server.URL)

		chunk, err := tr.Transcribe(context.Background(), bigChunk(), "chunk.wav", "")
		server.Close()
		if err != nil {
			t.Fatalf("Transcribe(%q): %v", tt.text, err)
		}
		if chunk.Empty != tt.empty {
			t.Errorf("Transcribe(%q).Empty = %v, want %v", tt.text, chunk.Empty, tt.empty)
		}
	}
}
