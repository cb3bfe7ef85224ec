// Package storage defines the artifact sink buffered ticks are flushed to
// and the binary layout of a tick artifact.
package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"marketwatcher/internal/memorystore"
)

// Store durably writes one flush of one instrument.
type Store interface {
	// Prepare makes the instrument's location ready. It must be idempotent.
	Prepare(ctx context.Context, instrumentID string) error
	// Write persists ticks, in order, under key. It must not overwrite an
	// existing artifact.
	Write(ctx context.Context, instrumentID, key string, ticks []memorystore.Tick) error
}

// ArtifactExt is the extension of tick artifacts.
const ArtifactExt = ".data"

// ArtifactKey names an instrument's artifact for a flush at t:
// "<instrument>/<yyyyMMdd_hhmmss_zzz>.data".
func ArtifactKey(instrumentID string, t time.Time) string {
	name := fmt.Sprintf("%s_%03d%s", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond), ArtifactExt)
	return path.Join(instrumentID, name)
}
