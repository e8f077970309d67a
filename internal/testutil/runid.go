package testutil

import (
	"sync"
	"time"
)

// FixedRunIDs hands out predetermined run IDs in order, so snapshot
// contents are byte-identical across test runs.
//
// Thread-safety: safe for concurrent use.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs returns a generator yielding ids in order. With no ids it
// yields "test-run-default" forever.
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// NewRunID returns the next ID. It panics once every ID has been used, to
// catch a test that writes more runs than it declared.
func (g *FixedRunIDs) NewRunID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return "test-run-default"
	}
	if g.idx >= len(g.ids) {
		panic("FixedRunIDs: all run IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// Epoch is the instant FixedClock{} reports when At is zero.
var Epoch = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// Now returns At, or Epoch when At is zero.
func (c FixedClock) Now() time.Time {
	if c.At.IsZero() {
		return Epoch
	}
	return c.At
}
