// Package archive exports finished transcripts to durable storage. A
// Sink abstracts where exports land so callers can swap between a local
// directory and an S3-compatible object store without changing export
// code.
package archive

import (
	"context"
	"io"
	"time"
)

// Sink is a write-only destination for transcript exports.
//
// Names are forward-slash separated and relative to the sink root.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Create opens the named export for writing. If it already exists it
	// is truncated. The caller must close the returned WriteCloser to
	// flush data.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// DefaultName builds a timestamped export name, e.g.
// "transcript-20250901-150405.txt".
func DefaultName(ext string) string {
	return "transcript-" + time.Now().Format("20060102-150405") + "." + ext
}
