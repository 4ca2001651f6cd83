package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/terra-femme/MedJournee/pkg/kv"
)

func TestBadgerRoundTrip(t *testing.T) {
	s, err := kv.OpenBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	key := kv.Key{"session", "s1", "seg", "0"}

	if err := s.Set(ctx, key, []byte("segment")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "segment" {
		t.Fatalf("Get = %q", got)
	}

	var n int
	for e, err := range s.List(ctx, kv.Key{"session", "s1"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if e.Key.String() != key.String() {
			t.Fatalf("List key = %q, want %q", e.Key, key)
		}
		n++
	}
	if n != 1 {
		t.Fatalf("List returned %d entries, want 1", n)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := kv.OpenBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error for missing Dir")
	}
}
