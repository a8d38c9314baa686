package iso

import "time"

// DefaultMergeGap is the silence gap beyond which consecutive segments
// from the same speaker are no longer merged.
const DefaultMergeGap = 2500 * time.Millisecond

// Merger compresses a chronological list of raw segments for display.
// The zero value uses DefaultMergeGap.
type Merger struct {
	// Gap is the maximum distance between a merged segment's timestamp
	// and the next raw segment for them to merge.
	Gap time.Duration
}

func (m Merger) gap() time.Duration {
	if m.Gap > 0 {
		return m.Gap
	}
	return DefaultMergeGap
}

// Compress merges consecutive same-speaker segments in one chronological
// pass. A new merged segment starts on the first segment, on a speaker
// change, or when the gap since the last merged segment's timestamp
// exceeds the threshold; otherwise each language text is appended with a
// space separator and the merged segment's timestamp advances to the
// appended segment's. The input is never mutated.
func (m Merger) Compress(segments []TranslationSegment) []TranslationSegment {
	gap := m.gap()

	var out []TranslationSegment
	for _, seg := range segments {
		if len(out) == 0 {
			out = append(out, seg.Clone())
			continue
		}

		last := &out[len(out)-1]
		if seg.Timestamp.Sub(last.Timestamp) > gap || seg.Speaker != last.Speaker {
			out = append(out, seg.Clone())
			continue
		}

		for code, text := range seg.Translations {
			if existing, ok := last.Translations[code]; ok && existing != "" {
				last.Translations[code] = existing + " " + text
			} else {
				last.Translations[code] = text
			}
		}
		last.Timestamp = seg.Timestamp
	}
	return out
}
