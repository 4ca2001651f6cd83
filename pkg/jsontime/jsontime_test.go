package jsontime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/terra-femme/MedJournee/pkg/jsontime"
)

func TestDurationMarshalString(t *testing.T) {
	d := jsontime.Duration(90 * time.Minute)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"1h30m0s"` {
		t.Fatalf("Marshal = %s", b)
	}
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"2s"`, 2 * time.Second},
		{`"1h30m"`, 90 * time.Minute},
		{`5000000000`, 5 * time.Second},
		{`null`, 0},
	}
	for _, tt := range tests {
		var d jsontime.Duration
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if d.Duration() != tt.want {
			t.Fatalf("Unmarshal(%s) = %v, want %v", tt.in, d.Duration(), tt.want)
		}
	}
}

func TestDurationUnmarshalBadString(t *testing.T) {
	var d jsontime.Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatal("Unmarshal of bad duration succeeded")
	}
}

func TestUnixRoundTrip(t *testing.T) {
	now := time.Unix(1767225600, 0)
	b, err := json.Marshal(jsontime.FromTime(now))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "1767225600" {
		t.Fatalf("Marshal = %s", b)
	}
	var ep jsontime.Unix
	if err := json.Unmarshal(b, &ep); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !ep.Time().Equal(now) {
		t.Fatalf("round trip = %v, want %v", ep.Time(), now)
	}
}

func TestUnixZeroIsNull(t *testing.T) {
	b, err := json.Marshal(jsontime.Unix{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("Marshal = %s", b)
	}
	var ep jsontime.Unix
	if err := json.Unmarshal([]byte("null"), &ep); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if !ep.IsZero() {
		t.Fatal("Unmarshal null is not zero")
	}
}
