package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/terra-femme/MedJournee/pkg/kv"
)

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	s := kv.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := kv.Key{"enroll", "fam1", "p1"}

	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get = %q, want %q", got, "hello")
	}

	if err := s.Set(ctx, key, []byte("world")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("Get = %q, want %q", got, "world")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries := map[string]kv.Key{
		"a": {"enroll", "fam1", "p1"},
		"b": {"enroll", "fam1", "p2"},
		"c": {"enroll", "fam2", "p1"},
		"d": {"session", "s1"},
	}
	for v, k := range entries {
		if err := s.Set(ctx, k, []byte(v)); err != nil {
			t.Fatalf("Set %v: %v", k, err)
		}
	}

	var got []string
	for e, err := range s.List(ctx, kv.Key{"enroll", "fam1"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, string(e.Value))
	}
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("List returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Prefix must match whole segments: "fam" does not match "fam1".
	for range s.List(ctx, kv.Key{"enroll", "fam"}) {
		t.Fatal("partial-segment prefix should match nothing")
	}
}

func TestKeyChild(t *testing.T) {
	base := kv.Key{"session", "s1"}
	child := base.Child("seg", "0")
	if child.String() != "session:s1:seg:0" {
		t.Fatalf("Child = %q", child.String())
	}
	if base.String() != "session:s1" {
		t.Fatalf("base mutated: %q", base.String())
	}
}
