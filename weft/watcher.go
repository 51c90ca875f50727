package weft

import (
	"fmt"
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
)

// Policy fixes when a watcher re-evaluates after a dependency changes. It is
// decided at construction and never changes.
type Policy uint8

const (
	// PolicyDeferred enqueues the watcher on the flush scheduler; N changes
	// before the next flush produce at most one run.
	PolicyDeferred Policy = iota
	// PolicySync re-runs the watcher immediately, before Notify returns.
	PolicySync
	// PolicyLazy only marks the cached value stale; recomputation waits for
	// an explicit read.
	PolicyLazy
)

// Getter is a tracked computation. Subjects read while it executes become
// the watcher's dependencies for the round.
type Getter func() (any, error)

// Callback is invoked with the new and previous value after a run that is
// considered a change.
type Callback func(newVal, oldVal any) error

// WatchOptions carries the construction-time configuration recognized by
// NewWatcher. The zero value means a deferred, shallow, internal watcher.
type WatchOptions struct {
	// Deep force-registers a dependency on every nested field of the value
	// returned by the getter.
	Deep bool
	// UserFacing routes getter and callback failures to the scope's error
	// sink instead of propagating them.
	UserFacing bool
	// Lazy defers evaluation until the value is explicitly read.
	Lazy bool
	// Sync bypasses the scheduler and runs synchronously inside Notify.
	Sync bool
	// Primary marks this as the scope's primary watcher; the scope's
	// post-flush hooks fire when it runs in a flush.
	Primary bool
	// Before is invoked immediately before a batched run.
	Before func()
}

// Watcher is a tracked computation: it evaluates its getter under the
// active-watcher context, re-collecting its subject subscriptions on every
// evaluation, and re-runs according to its policy when any of them notify.
type Watcher struct {
	id    uint64
	sys   *System
	scope *Scope

	expression string
	getter     Getter
	cb         Callback
	before     func()

	policy     Policy
	deep       bool
	userFacing bool

	active bool
	dirty  bool
	value  any

	// deps holds the subjects read during the previous completed evaluation,
	// newDeps the ones read so far in the current one. The id sets give O(1)
	// duplicate checks; both pairs swap in cleanupDeps.
	deps      []*Subject
	newDeps   []*Subject
	depIDs    mapset.Set[uint64]
	newDepIDs mapset.Set[uint64]
}

func noopGetter() (any, error) { return nil, nil }

// NewWatcher creates a watcher owned by scope. expr is either a Getter (or a
// plain func() (any, error)) or a dotted-path string resolved against the
// scope root. A path that fails to compile downgrades to a no-op getter and
// a reported warning; construction itself never fails for that reason.
//
// Unless the Lazy option is set the watcher evaluates immediately. The
// returned error is the initial evaluation failure of a non-user-facing
// watcher, and nil otherwise.
func NewWatcher(scope *Scope, expr any, cb Callback, opts WatchOptions) (*Watcher, error) {
	sys := scope.sys
	w := &Watcher{
		id:         sys.nextID(),
		sys:        sys,
		scope:      scope,
		cb:         cb,
		deep:       opts.Deep,
		userFacing: opts.UserFacing,
		before:     opts.Before,
		active:     true,
		depIDs:     mapset.NewThreadUnsafeSet[uint64](),
		newDepIDs:  mapset.NewThreadUnsafeSet[uint64](),
	}
	switch {
	case opts.Lazy:
		w.policy = PolicyLazy
	case opts.Sync:
		w.policy = PolicySync
	default:
		w.policy = PolicyDeferred
	}

	switch g := expr.(type) {
	case Getter:
		w.getter = g
	case func() (any, error):
		w.getter = g
	case string:
		w.expression = g
		pg, err := sys.compilePath(g)
		if err != nil {
			w.getter = noopGetter
			scope.Report(err, fmt.Sprintf("compiling path for watcher %q", g))
		} else {
			root := scope.root
			w.getter = func() (any, error) { return pg(root) }
		}
	default:
		w.getter = noopGetter
		scope.Report(&PathError{Path: fmt.Sprintf("%T", expr), Reason: "unsupported expression type"},
			"resolving watcher expression")
	}

	scope.register(w)
	if opts.Primary {
		scope.primary = w
	}

	if w.policy == PolicyLazy {
		w.dirty = true
		return w, nil
	}
	value, err := w.get()
	if err != nil {
		return w, err
	}
	w.value = value
	return w, nil
}

// ID returns the watcher's unique monotonic identifier. Flush order is
// ascending id, i.e. creation order.
func (w *Watcher) ID() uint64 {
	return w.id
}

// Expression returns the description used in diagnostics: the dotted path
// for path watchers, empty for direct getters.
func (w *Watcher) Expression() string {
	return w.expression
}

// Active reports whether the watcher still participates in the graph.
func (w *Watcher) Active() bool {
	return w.active
}

// Dirty reports whether a lazy watcher's cached value may be stale.
func (w *Watcher) Dirty() bool {
	return w.dirty
}

// Deps returns a copy of the subjects recorded by the most recent completed
// evaluation.
func (w *Watcher) Deps() []*Subject {
	deps := make([]*Subject, len(w.deps))
	copy(deps, w.deps)
	return deps
}

// get is the core evaluation protocol: evaluate the getter with this watcher
// as the active target, deep-touch the result if requested, then prune stale
// subscriptions. The target pop and the pruning are guaranteed even when the
// getter panics.
func (w *Watcher) get() (any, error) {
	w.sys.pushTarget(w)
	defer func() {
		w.sys.popTarget()
		w.cleanupDeps()
	}()

	value, err := w.getter()
	if err != nil {
		if !w.userFacing {
			return nil, &GetterError{Expression: w.expression, Err: err}
		}
		w.scope.Report(err, fmt.Sprintf("getter for watcher %q", w.expression))
		value = w.value // degraded: previous value, nil before the first run
	}
	if w.deep {
		Traverse(value)
	}
	return value, nil
}

// AddDep records subject as a dependency of the evaluation in progress.
// Idempotent within one evaluation; the watcher subscribes to the subject
// only if it was not already subscribed by the previous evaluation.
func (w *Watcher) AddDep(s *Subject) {
	id := s.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, s)
	if !w.depIDs.Contains(id) {
		s.addSub(w)
	}
}

// cleanupDeps unsubscribes from every subject the latest evaluation no
// longer read, then promotes newDeps to deps for the next round.
func (w *Watcher) cleanupDeps() {
	for _, dep := range w.deps {
		if !w.newDepIDs.Contains(dep.id) {
			dep.removeSub(w)
		}
	}
	w.deps, w.newDeps = w.newDeps, w.deps[:0]
	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()
}

// Update is the notification entry point, dispatched by policy.
func (w *Watcher) Update() {
	switch w.policy {
	case PolicyLazy:
		w.dirty = true
	case PolicySync:
		if err := w.Run(); err != nil {
			w.sys.reportError(w, err)
		}
	default:
		w.sys.sched.Schedule(w)
	}
}

// Run re-evaluates the watcher and fires the callback when the result
// counts as a change: a different value by shallow equality, a composite
// value (internal mutation is invisible to an identity check), or any value
// on a deep watcher. Torn-down watchers are a no-op.
func (w *Watcher) Run() error {
	if !w.active {
		return nil
	}
	value, err := w.get()
	if err != nil {
		return err
	}
	if !shallowEqual(value, w.value) || isComposite(value) || w.deep {
		oldValue := w.value
		w.value = value
		if w.cb == nil {
			return nil
		}
		if err := w.cb(value, oldValue); err != nil {
			if !w.userFacing {
				return &CallbackError{Expression: w.expression, Err: err}
			}
			w.scope.Report(err, fmt.Sprintf("callback for watcher %q", w.expression))
		}
	}
	return nil
}

// Evaluate forces recomputation of a lazy watcher and clears the dirty flag.
func (w *Watcher) Evaluate() error {
	value, err := w.get()
	if err != nil {
		return err
	}
	w.value = value
	w.dirty = false
	return nil
}

// Value reads the watcher's cached result, recomputing first when it is
// stale. When another watcher is evaluating, it transitively inherits this
// watcher's subjects, so derived-value readers re-trigger correctly.
func (w *Watcher) Value() (any, error) {
	if w.dirty {
		if err := w.Evaluate(); err != nil {
			return nil, err
		}
	}
	if w.sys.active != nil {
		w.Depend()
	}
	return w.value, nil
}

// Depend makes the currently evaluating watcher depend on every subject this
// watcher has recorded.
func (w *Watcher) Depend() {
	for _, dep := range w.deps {
		dep.Depend()
	}
}

// Teardown removes the watcher from the graph. Idempotent. A watcher still
// sitting in the flush queue is skipped there via the active check in Run
// rather than removed eagerly.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	// The registry is discarded wholesale when the whole scope is going
	// away, so skip the O(n) removal in that case.
	if !w.scope.destroying {
		w.scope.remove(w)
	}
	for _, dep := range w.deps {
		dep.removeSub(w)
	}
	w.deps = nil
	w.newDeps = nil
	w.depIDs.Clear()
	w.newDepIDs.Clear()
	w.active = false
}

// shallowEqual compares by value for comparable types and by identity
// (shared backing pointer) for maps, slices and funcs. It never compares
// contents of composites; Run treats those as always-changed anyway.
func shallowEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// isComposite reports whether a value can mutate internally without its
// identity changing.
func isComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return true
	}
	return false
}
