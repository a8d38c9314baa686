// Package kv provides a key-value store interface with hierarchical
// path-based keys. Keys are string slices (e.g. ["transcript", "segment",
// "00171234..."]) encoded with a configurable separator (default ':').
//
// The package includes a BadgerDB-backed implementation for persistence
// and an in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path represented as a slice of string segments.
// Segments must not contain the configured separator character.
type Key []string

// String returns the key joined with ':' for display and debugging.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the interface for a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with the given
	// prefix, in lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// DeletePrefix removes every entry whose key starts with the given
	// prefix. An empty prefix is rejected.
	DeletePrefix(ctx context.Context, prefix Key) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrEmptyPrefix is returned by DeletePrefix for an empty prefix.
var ErrEmptyPrefix = errors.New("kv: empty prefix")

// DefaultSeparator is the default separator byte used to encode key segments.
const DefaultSeparator byte = ':'

// Options configures store behavior.
type Options struct {
	// Separator is the byte used to join key segments when encoding to
	// storage. Default is ':' if zero.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

// encode converts a Key to its byte representation using the separator.
// Panics if a segment contains the separator byte.
func (o *Options) encode(k Key) []byte {
	s := o.sep()
	n := 0
	for i, seg := range k {
		if strings.IndexByte(seg, s) >= 0 {
			panic("kv: key segment " + strconv.Quote(seg) + " contains separator")
		}
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, n)
	pos := 0
	for i, seg := range k {
		if i > 0 {
			buf[pos] = s
			pos++
		}
		pos += copy(buf[pos:], seg)
	}
	return buf
}

// decode converts an encoded key back to a Key using the separator.
func (o *Options) decode(b []byte) Key {
	s := o.sep()
	n := 1
	for _, c := range b {
		if c == s {
			n++
		}
	}
	k := make(Key, 0, n)
	start := 0
	for i, c := range b {
		if c == s {
			k = append(k, string(b[start:i]))
			start = i + 1
		}
	}
	return append(k, string(b[start:]))
}

// listPrefix returns the encoded prefix for List/DeletePrefix scans. A
// trailing separator is appended so ["a","b"] does not match "a:bc".
func (o *Options) listPrefix(prefix Key) []byte {
	p := o.encode(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, o.sep())
}
