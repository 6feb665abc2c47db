// internal/common/clock/clock.go
// Injectable time source so timeout and window checks stay deterministic in tests

package clock

import "time"

// Clock supplies the current instant. Session timeouts, undo windows and
// daily quota boundaries all compare against an injected Clock rather than
// calling time.Now directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall-clock implementation used in production.
func System() Clock { return systemClock{} }

// Mock is a manually-advanced clock for tests.
type Mock struct {
	current time.Time
}

// NewMock returns a Mock pinned to t.
func NewMock(t time.Time) *Mock { return &Mock{current: t} }

func (m *Mock) Now() time.Time { return m.current }

// Set pins the mock to t.
func (m *Mock) Set(t time.Time) { m.current = t }

// Advance moves the mock forward by d.
func (m *Mock) Advance(d time.Duration) { m.current = m.current.Add(d) }
