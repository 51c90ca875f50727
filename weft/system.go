package weft

import (
	"github.com/cespare/xxhash/v2"
)

// OnErrorFunc receives failures that cannot be returned to a caller: errors
// raised while the scheduler or a notify pass is driving a watcher. from may
// be nil when the failure is not tied to a single watcher.
type OnErrorFunc func(from *Watcher, err error)

// System owns all shared engine state: the active-watcher stack used for
// dependency discovery, monotonic id allocation, the flush scheduler and the
// cooperative tick queue. A System and everything attached to it is confined
// to a single goroutine.
type System struct {
	onError OnErrorFunc

	idCounter uint64

	// active is the watcher currently evaluating, if any. targetStack holds
	// the watchers displaced by nested evaluations so the outer one is
	// restored when the inner finishes.
	active      *Watcher
	targetStack []*Watcher

	sched *scheduler

	// pathCache memoizes compiled dotted-path getters keyed by the xxhash of
	// the expression.
	pathCache map[uint64]pathGetter

	ticks []func()
}

// NewSystem creates an engine instance. onError may be nil, in which case
// undeliverable errors are dropped.
func NewSystem(onError OnErrorFunc) *System {
	s := &System{
		onError:   onError,
		pathCache: map[uint64]pathGetter{},
	}
	s.sched = newScheduler(s)
	return s
}

func (s *System) nextID() uint64 {
	s.idCounter++
	return s.idCounter
}

// ActiveWatcher returns the watcher currently evaluating, or nil when no
// tracked evaluation is in progress.
func (s *System) ActiveWatcher() *Watcher {
	return s.active
}

func (s *System) pushTarget(w *Watcher) {
	s.targetStack = append(s.targetStack, s.active)
	s.active = w
}

func (s *System) popTarget() {
	lastIdx := len(s.targetStack) - 1
	s.active = s.targetStack[lastIdx]
	s.targetStack = s.targetStack[:lastIdx]
}

// Untracked runs fn with dependency collection suspended: subjects read
// inside fn are not recorded against the watcher that is currently
// evaluating. The previous tracking state is restored on every exit path.
func (s *System) Untracked(fn func()) {
	s.pushTarget(nil)
	defer s.popTarget()
	fn()
}

// NextTick defers fn to the next cooperative scheduling point.
func (s *System) NextTick(fn func()) {
	s.ticks = append(s.ticks, fn)
}

// Tick is the cooperative scheduling point: it drains the deferred task
// queue, including tasks queued by the tasks themselves (a flush that
// re-arms a follow-up flush runs within the same Tick call).
func (s *System) Tick() {
	for len(s.ticks) > 0 {
		pending := s.ticks
		s.ticks = nil
		for _, fn := range pending {
			fn()
		}
	}
}

// HasPendingTicks reports whether a deferred task is waiting for Tick.
func (s *System) HasPendingTicks() bool {
	return len(s.ticks) > 0
}

func (s *System) reportError(from *Watcher, err error) {
	if s.onError != nil {
		s.onError(from, err)
	}
}

func (s *System) compilePath(expr string) (pathGetter, error) {
	key := xxhash.Sum64String(expr)
	if pg, ok := s.pathCache[key]; ok {
		return pg, nil
	}
	pg, err := parsePath(expr)
	if err != nil {
		return nil, err
	}
	s.pathCache[key] = pg
	return pg, nil
}
