package weft

import "fmt"

// ReportFunc is a scope-level error sink: err is the failure, sc the owning
// scope and context a short human description of where it happened.
type ReportFunc func(err error, sc *Scope, context string)

// Scope is the owner context watchers are created against: it keeps the
// registry used for wholesale disposal, the root value dotted-path watchers
// resolve against, and the error sink user-facing watchers report to.
type Scope struct {
	sys  *System
	root any

	watchers   []*Watcher
	destroying bool
	destroyed  bool

	onError ReportFunc

	// primary is the watcher the rendering collaborator designates as the
	// scope's main computation; post-flush hooks key off it.
	primary *Watcher

	// OnActivated and OnUpdated fire after a flush in which the primary
	// watcher ran, in flush order across scopes.
	OnActivated func()
	OnUpdated   func()
}

// NewScope creates a scope. root may be nil when no path watchers are used.
func NewScope(sys *System, root any) *Scope {
	return &Scope{sys: sys, root: root}
}

// WithErrorSink installs a scope-local sink for user-facing watcher errors
// and returns the scope. Without one, reports fall through to the system
// sink.
func (sc *Scope) WithErrorSink(fn ReportFunc) *Scope {
	sc.onError = fn
	return sc
}

// System returns the engine this scope belongs to.
func (sc *Scope) System() *System {
	return sc.sys
}

// Root returns the value dotted-path expressions resolve against.
func (sc *Scope) Root() any {
	return sc.root
}

// Primary returns the scope's primary watcher, if one was designated.
func (sc *Scope) Primary() *Watcher {
	return sc.primary
}

// Watchers returns a copy of the registry.
func (sc *Scope) Watchers() []*Watcher {
	ws := make([]*Watcher, len(sc.watchers))
	copy(ws, sc.watchers)
	return ws
}

// Destroyed reports whether Destroy has completed.
func (sc *Scope) Destroyed() bool {
	return sc.destroyed
}

// Report delivers an error to the scope sink, or to the system sink when no
// scope sink is installed.
func (sc *Scope) Report(err error, context string) {
	if sc.onError != nil {
		sc.onError(err, sc, context)
		return
	}
	sc.sys.reportError(nil, fmt.Errorf("%s: %w", context, err))
}

// Destroy tears down every watcher in the registry, newest first, and marks
// the scope unusable. Idempotent.
func (sc *Scope) Destroy() {
	if sc.destroying || sc.destroyed {
		return
	}
	sc.destroying = true
	for i := len(sc.watchers) - 1; i >= 0; i-- {
		sc.watchers[i].Teardown()
	}
	sc.watchers = nil
	sc.primary = nil
	sc.destroying = false
	sc.destroyed = true
}

func (sc *Scope) register(w *Watcher) {
	sc.watchers = append(sc.watchers, w)
}

func (sc *Scope) remove(w *Watcher) {
	for i, cur := range sc.watchers {
		if cur == w {
			sc.watchers = append(sc.watchers[:i], sc.watchers[i+1:]...)
			return
		}
	}
}
