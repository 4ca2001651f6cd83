package cli_test

import (
	"testing"

	"github.com/terra-femme/MedJournee/pkg/cli"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int
		want string
	}{
		{500, "500ms"},
		{1500, "1.5s"},
		{61500, "1m1.5s"},
	}
	for _, tt := range tests {
		if got := cli.FormatDuration(tt.ms); got != tt.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 << 20, "5.00 MB"},
		{3 << 30, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := cli.FormatBytes(tt.n); got != tt.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
