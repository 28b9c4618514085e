// Package resource holds the expensive, lazily built services shared by
// rules: the type catalogue and the spelling dictionary.
//
// Resources are owned by whoever constructs them and are passed to rule
// construction explicitly. They are read-mostly: after the first build,
// reads take no locks. Builds are serialized so only one initializer runs
// under concurrent first use, and nothing is invalidated except through
// Reset.
package resource

import (
	"sync"
	"sync/atomic"
)

// Resettable is implemented by resources whose memoized state can be
// dropped explicitly, for example between tests.
type Resettable interface {
	Reset()
}

type lazyState[T any] struct {
	val T
	err error
}

// Lazy memoizes the result of an expensive build function.
type Lazy[T any] struct {
	mu    sync.Mutex
	state atomic.Pointer[lazyState[T]]
	build func() (T, error)
}

// NewLazy returns a Lazy that calls build on first use.
func NewLazy[T any](build func() (T, error)) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get returns the memoized value, building it on first use. A build error
// is memoized as well.
func (l *Lazy[T]) Get() (T, error) {
	if s := l.state.Load(); s != nil {
		return s.val, s.err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s := l.state.Load(); s != nil {
		return s.val, s.err
	}
	val, err := l.build()
	l.state.Store(&lazyState[T]{val: val, err: err})
	return val, err
}

// Built reports whether a value is currently memoized.
func (l *Lazy[T]) Built() bool {
	return l.state.Load() != nil
}

// Reset drops the memoized value; the next Get builds again.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Store(nil)
}
