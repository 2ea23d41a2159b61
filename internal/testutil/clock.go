package testutil

import (
	"strconv"
	"sync/atomic"
	"time"

	"stash-go/internal/stash"
)

// FixedTime is the instant reported by FixedClock: 2024-01-15 10:30:00 UTC.
var FixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock always reports the same instant, so catalog timestamps are
// predictable in tests.
type StubClock struct {
	now time.Time
}

var _ stash.Clock = StubClock{}

func NewStubClock(t time.Time) StubClock {
	return StubClock{now: t}
}

// FixedClock returns a StubClock set to FixedTime.
func FixedClock() StubClock {
	return NewStubClock(FixedTime)
}

func (c StubClock) Now() time.Time { return c.now }

// StubIDGenerator hands out "id-1", "id-2", ... in call order, which keeps
// maildir file names in dump tests deterministic.
type StubIDGenerator struct {
	n atomic.Int64
}

var _ stash.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "id-" + strconv.FormatInt(g.n.Add(1), 10)
}
