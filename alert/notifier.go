package alert

import (
	"sync"

	"github.com/arloliu/go-gasera/internal/util"
)

// Notifier plays a named alert pattern without blocking the caller.
type Notifier interface {
	Notify(pattern string)
}

// Nop is a Notifier that discards every pattern.
type Nop struct{}

var _ Notifier = Nop{}

// Notify implements Notifier.
func (Nop) Notify(string) {}

// Recorder is a Notifier that remembers every pattern it was asked to play.
type Recorder struct {
	mu       sync.Mutex
	patterns []string
}

var _ Notifier = (*Recorder)(nil)

// Notify implements Notifier.
func (r *Recorder) Notify(pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patterns = append(r.patterns, pattern)
}

// Patterns returns a copy of the recorded pattern names in call order.
func (r *Recorder) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return util.CloneSlice(r.patterns)
}

// Contains reports whether pattern was recorded at least once.
func (r *Recorder) Contains(pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.patterns {
		if p == pattern {
			return true
		}
	}

	return false
}

// Reset forgets the recorded patterns.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patterns = nil
}
