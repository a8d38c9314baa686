package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/isotranslate/iso/pkg/iso"
)

// ExportText writes a human-readable bilingual transcript to the sink.
// Each segment prints its local time, speaker number and both renderings.
func ExportText(ctx context.Context, sink Sink, name string, segs []iso.TranslationSegment) error {
	wc, err := sink.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", name, err)
	}

	w := bufio.NewWriter(wc)
	for i, seg := range segs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s] speaker %d\n",
			seg.Timestamp.Time().Local().Format(time.DateTime), seg.Speaker)
		for _, lang := range []iso.Language{seg.Language1, seg.Language2} {
			if text, ok := seg.Translations[lang.Code]; ok {
				fmt.Fprintf(w, "  %s: %s\n", lang.Code, text)
			}
		}
	}
	if err := w.Flush(); err != nil {
		wc.Close()
		return fmt.Errorf("archive: write %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", name, err)
	}
	return nil
}

// jsonExport is the machine-readable export document.
type jsonExport struct {
	ExportedAt time.Time                `json:"exported_at"`
	Segments   []iso.TranslationSegment `json:"segments"`
	Usage      *iso.TokenUsage          `json:"usage,omitempty"`
	Cost       *iso.CostBreakdown       `json:"estimated_cost,omitempty"`
}

// ExportJSON writes the transcript and accumulated usage as an indented
// JSON document. Pass a zero usage to omit the usage and cost sections.
func ExportJSON(ctx context.Context, sink Sink, name string, segs []iso.TranslationSegment, usage iso.TokenUsage) error {
	doc := jsonExport{
		ExportedAt: time.Now(),
		Segments:   segs,
	}
	if usage.TotalTokens > 0 {
		cost := usage.Cost()
		doc.Usage = &usage
		doc.Cost = &cost
	}

	wc, err := sink.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", name, err)
	}
	enc := json.NewEncoder(wc)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		wc.Close()
		return fmt.Errorf("archive: encode %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", name, err)
	}
	return nil
}
