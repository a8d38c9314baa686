// Package transcript persists translation segments, token usage and small
// app settings in a kv.Store, so a transcript survives across runs.
//
// Values are msgpack-encoded. Key layout:
//
//	transcript:seg:{ms_padded}:{id} → msgpack TranslationSegment
//	transcript:usage                → msgpack TokenUsage
//	settings:{name}                 → raw string value
//
// The zero-padded millisecond timestamp makes lexicographic key order
// match chronological order; the segment ID suffix keeps keys unique when
// two segments land in the same millisecond.
package transcript

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/kv"
)

// Store persists transcript state in a kv.Store. It implements
// iso.TranscriptStore.
type Store struct {
	store kv.Store
}

// New creates a Store on top of a kv.Store.
func New(store kv.Store) *Store {
	return &Store{store: store}
}

func segmentKey(seg iso.TranslationSegment) kv.Key {
	return kv.Key{"transcript", "seg", fmt.Sprintf("%016d", seg.Timestamp.UnixMilli()), seg.ID}
}

func segmentPrefix() kv.Key {
	return kv.Key{"transcript", "seg"}
}

func usageKey() kv.Key {
	return kv.Key{"transcript", "usage"}
}

func settingKey(name string) kv.Key {
	return kv.Key{"settings", name}
}

// AppendSegment persists one segment.
func (s *Store) AppendSegment(ctx context.Context, seg iso.TranslationSegment) error {
	data, err := msgpack.Marshal(seg)
	if err != nil {
		return fmt.Errorf("transcript: encode segment: %w", err)
	}
	return s.store.Set(ctx, segmentKey(seg), data)
}

// Segments returns all persisted segments in chronological order.
// Malformed entries are skipped.
func (s *Store) Segments(ctx context.Context) ([]iso.TranslationSegment, error) {
	var out []iso.TranslationSegment
	for entry, err := range s.store.List(ctx, segmentPrefix()) {
		if err != nil {
			return nil, err
		}
		var seg iso.TranslationSegment
		if err := msgpack.Unmarshal(entry.Value, &seg); err != nil {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// ClearSegments removes every persisted segment.
func (s *Store) ClearSegments(ctx context.Context) error {
	return s.store.DeletePrefix(ctx, segmentPrefix())
}

// SaveUsage persists the accumulated token usage.
func (s *Store) SaveUsage(ctx context.Context, u iso.TokenUsage) error {
	data, err := msgpack.Marshal(u)
	if err != nil {
		return fmt.Errorf("transcript: encode usage: %w", err)
	}
	return s.store.Set(ctx, usageKey(), data)
}

// Usage returns the persisted token usage, or a zero value when none was
// saved yet.
func (s *Store) Usage(ctx context.Context) (iso.TokenUsage, error) {
	data, err := s.store.Get(ctx, usageKey())
	if errors.Is(err, kv.ErrNotFound) {
		return iso.TokenUsage{}, nil
	}
	if err != nil {
		return iso.TokenUsage{}, err
	}
	var u iso.TokenUsage
	if err := msgpack.Unmarshal(data, &u); err != nil {
		return iso.TokenUsage{}, fmt.Errorf("transcript: decode usage: %w", err)
	}
	return u, nil
}

// ClearUsage removes the persisted token usage.
func (s *Store) ClearUsage(ctx context.Context) error {
	return s.store.Delete(ctx, usageKey())
}

// SetSetting stores a small named setting, such as the selected language
// pair or provider.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	return s.store.Set(ctx, settingKey(name), []byte(value))
}

// Setting returns a stored setting, or the empty string when unset.
func (s *Store) Setting(ctx context.Context, name string) (string, error) {
	data, err := s.store.Get(ctx, settingKey(name))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.store.Close()
}

var _ iso.TranscriptStore = (*Store)(nil)
