package commands

import (
	"fmt"
	"time"

	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/iso"
)

// segmentLines renders segments as indented bilingual text blocks.
func segmentLines(segs []iso.TranslationSegment) []string {
	var lines []string
	for _, seg := range segs {
		lines = append(lines, fmt.Sprintf("[%s] speaker %d",
			seg.Timestamp.Time().Local().Format("15:04:05"), seg.Speaker))
		for _, lang := range []iso.Language{seg.Language1, seg.Language2} {
			if text, ok := seg.Translations[lang.Code]; ok {
				lines = append(lines, fmt.Sprintf("  %s: %s", lang.Code, text))
			}
		}
	}
	return lines
}

// eventLines renders a newest-first event snapshot as chronological
// one-liners with a direction marker.
func eventLines(events []*iso.SessionEvent) []string {
	lines := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		marker := "·"
		switch ev.Direction {
		case iso.DirectionSent:
			marker = "→"
		case iso.DirectionReceived:
			marker = "←"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			ev.Timestamp.Time().Local().Format("15:04:05"), marker, ev.Type))
	}
	return lines
}

// usageLines renders accumulated token usage and its estimated cost.
func usageLines(u iso.TokenUsage) []string {
	if u.TotalTokens == 0 {
		return []string{"No usage recorded."}
	}
	cost := u.Cost()
	lines := []string{
		fmt.Sprintf("Model:          %s", u.Model),
		fmt.Sprintf("Total tokens:   %s", cli.FormatTokens(u.TotalTokens)),
		fmt.Sprintf("Input tokens:   %s (text %s, audio %s, cached %s)",
			cli.FormatTokens(u.InputTokens),
			cli.FormatTokens(u.InputTokenDetails.TextTokens),
			cli.FormatTokens(u.InputTokenDetails.AudioTokens),
			cli.FormatTokens(u.InputTokenDetails.CachedTokens)),
		fmt.Sprintf("Output tokens:  %s (text %s, audio %s)",
			cli.FormatTokens(u.OutputTokens),
			cli.FormatTokens(u.OutputTokenDetails.TextTokens),
			cli.FormatTokens(u.OutputTokenDetails.AudioTokens)),
		fmt.Sprintf("Estimated cost: %s (input %s, output %s)",
			cli.FormatUSD(cost.Total),
			cli.FormatUSD(cost.TextInput+cost.TextCached+cost.AudioInput+cost.AudioCached),
			cli.FormatUSD(cost.TextOutput+cost.AudioOutput)),
	}
	return lines
}

// sessionLogName builds the file name for a session event log.
func sessionLogName(now time.Time) string {
	return "session-" + now.Format("20060102-150405") + ".jsonl"
}
