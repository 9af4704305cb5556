package rag

import (
	"sync"

	"github.com/matiasleandrokruk/ragline/internal/infra/eventbus"
)

// Stats folds rag.ingested events into running totals for this process.
type Stats struct {
	mu      sync.RWMutex
	added   int
	skipped int
	events  int
}

// NewStats returns empty Stats.
func NewStats() *Stats { return &Stats{} }

// Run consumes events until the channel closes. Start it in its own goroutine.
func (s *Stats) Run(events <-chan eventbus.Event) {
	for evt := range events {
		if p, ok := evt.Payload.(IngestedEvent); ok {
			s.Record(p)
		}
	}
}

// Record adds one ingest outcome.
func (s *Stats) Record(e IngestedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added += e.Added
	s.skipped += e.Skipped
	s.events++
}

// Snapshot returns the totals so far.
func (s *Stats) Snapshot() IngestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IngestResult{Added: s.added, Skipped: s.skipped}
}

// Events returns how many ingests have been recorded.
func (s *Stats) Events() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}
