// Package kv provides the key-value store abstraction used for persisted
// records (voice enrollments, live sessions, journal references). Keys are
// hierarchical paths represented as string slices, e.g.
// Key{"enroll", familyID, profileID}, encoded with a ':' separator.
//
// A BadgerDB-backed implementation serves production use; an in-memory
// implementation serves tests and ephemeral deployments.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// separator joins key segments in the encoded representation.
const separator = ':'

// Key is a hierarchical path represented as a slice of string segments.
// Segments must not contain the separator character ':'.
type Key []string

// String returns the encoded key, for display and debugging.
func (k Key) String() string {
	return strings.Join(k, string(separator))
}

// Child returns a new key with extra segments appended.
func (k Key) Child(segments ...string) Key {
	child := make(Key, 0, len(k)+len(segments))
	child = append(child, k...)
	child = append(child, segments...)
	return child
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries strictly below the given prefix, in
	// lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases resources held by the store.
	Close() error
}

func encodeKey(k Key) []byte {
	n := 0
	for i, seg := range k {
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, separator)
		}
		buf = append(buf, seg...)
	}
	return buf
}

func decodeKey(b []byte) Key {
	parts := strings.Split(string(b), string(separator))
	return Key(parts)
}

// listPrefix returns the encoded prefix with a trailing separator so that
// listing "a:b" does not match "a:bc". An empty prefix scans everything.
func listPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return append(encodeKey(prefix), separator)
}
