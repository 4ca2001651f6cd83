package cli

import (
	"strings"

	"github.com/terra-femme/MedJournee/pkg/buffer"
)

// LogWriter implements io.Writer and captures log output for TUI
// display. It keeps the most recent lines in a ring buffer and
// notifies new lines via a channel.
type LogWriter struct {
	buf *buffer.Ring[string]
	ch  chan string
}

// NewLogWriter creates a log writer that keeps at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		buf: buffer.NewRing[string](maxLines),
		ch:  make(chan string, 100),
	}
}

// Write implements io.Writer. Multi-line input is split on newlines.
func (w *LogWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		w.buf.Add(line)

		// Non-blocking send, drop when nobody is listening.
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns all buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.buf.Items()
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
