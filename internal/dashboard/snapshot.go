// Package dashboard assembles the atlas data products behind the HTTP
// API: it loads the selected year's sources concurrently, joins and
// aggregates them, and caches the resulting snapshots.
package dashboard

import (
	"time"

	"github.com/civicatlas/msa-atlas/internal/atlas"
)

// Snapshot is the immutable result of one load for a (year, category)
// selection. A failed load still yields a snapshot: empty results with
// the error recorded, so callers render an empty map instead of dying.
type Snapshot struct {
	LoadID     string            `json:"load_id"`
	Generation uint64            `json:"generation"`
	Year       string            `json:"year"`
	Category   string            `json:"category"`
	LoadedAt   time.Time         `json:"loaded_at"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	Rows       int               `json:"rows"`
	Points     []atlas.Point     `json:"points"`
	Report     *atlas.JoinReport `json:"report"`
	Values     atlas.ValueLookup `json:"values"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether the load behind this snapshot errored.
func (s *Snapshot) Failed() bool {
	return s.Error != ""
}
