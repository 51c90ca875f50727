package weft

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// maxFlushPasses bounds how many times a single watcher may be re-queued
// within one flush before it is reported as a circular update and dropped
// for the remainder of that flush.
const maxFlushPasses = 100

// scheduler collects watchers signaled dirty, deduplicates them and flushes
// them once per tick in ascending-id order.
type scheduler struct {
	sys *System

	queue   []*Watcher
	pending mapset.Set[uint64]

	// deferred holds watchers scheduled mid-flush whose id falls before the
	// scan position; they become eligible for the next flush.
	deferred []*Watcher

	// banned holds watchers dropped from the current flush after tripping
	// the circular-update cap.
	banned mapset.Set[uint64]

	circular map[uint64]int

	flushing bool
	armed    bool
	index    int
}

func newScheduler(sys *System) *scheduler {
	return &scheduler{
		sys:      sys,
		pending:  mapset.NewThreadUnsafeSet[uint64](),
		banned:   mapset.NewThreadUnsafeSet[uint64](),
		circular: map[uint64]int{},
	}
}

// Schedule enqueues w for the next flush. Watchers already pending are
// skipped, so N changes before a flush cost at most one run. During a flush
// the insertion keeps the unprocessed tail sorted by id: a watcher whose id
// is not less than the current scan position still runs in this flush,
// anything earlier waits for the next one.
func (q *scheduler) Schedule(w *Watcher) {
	if q.pending.Contains(w.id) {
		return
	}
	if q.flushing && q.banned.Contains(w.id) {
		return
	}
	q.pending.Add(w.id)

	if !q.flushing {
		q.queue = append(q.queue, w)
	} else if w.id < q.queue[q.index].id {
		q.deferred = append(q.deferred, w)
	} else {
		i := len(q.queue) - 1
		for i > q.index && q.queue[i].id > w.id {
			i--
		}
		q.queue = append(q.queue, nil)
		copy(q.queue[i+2:], q.queue[i+1:])
		q.queue[i+1] = w
	}

	if !q.armed {
		q.armed = true
		q.sys.NextTick(q.flush)
	}
}

// flush runs every queued watcher once in ascending-id order, tolerating
// growth of the queue while it iterates. Afterwards the post-flush hooks of
// the scopes whose primary watchers ran fire in flush order, and anything
// deferred mid-flush is re-scheduled for a fresh flush.
func (q *scheduler) flush() {
	q.flushing = true
	sort.Slice(q.queue, func(i, j int) bool { return q.queue[i].id < q.queue[j].id })

	// The loop re-reads len(q.queue): callbacks may grow the tail.
	for q.index = 0; q.index < len(q.queue); q.index++ {
		w := q.queue[q.index]
		if w.before != nil {
			w.before()
		}
		q.pending.Remove(w.id)
		if err := w.Run(); err != nil {
			q.sys.reportError(w, err)
		}
		// Re-queued while running means its own callback dirtied it again.
		if q.pending.Contains(w.id) {
			q.circular[w.id]++
			if q.circular[w.id] > maxFlushPasses {
				q.sys.reportError(w, &CircularUpdateError{WatcherID: w.id, Expression: w.expression})
				q.banned.Add(w.id)
				q.unqueueTail(w.id)
			}
		}
	}

	processed := q.queue
	deferred := q.deferred
	q.reset()

	callPostFlushHooks(processed)

	for _, w := range deferred {
		q.Schedule(w)
	}
}

// unqueueTail removes a watcher from the unprocessed part of the queue and
// clears its pending mark.
func (q *scheduler) unqueueTail(id uint64) {
	for i := len(q.queue) - 1; i > q.index; i-- {
		if q.queue[i].id == id {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			break
		}
	}
	q.pending.Remove(id)
}

func (q *scheduler) reset() {
	q.queue = nil
	q.deferred = nil
	q.pending.Clear()
	q.banned.Clear()
	q.circular = map[uint64]int{}
	q.index = 0
	q.flushing = false
	q.armed = false
}

// callPostFlushHooks fires OnActivated then OnUpdated for each scope whose
// primary watcher ran, in flush order.
func callPostFlushHooks(processed []*Watcher) {
	for _, w := range processed {
		if !w.active || w.scope == nil || w.scope.primary != w {
			continue
		}
		if w.scope.OnActivated != nil {
			w.scope.OnActivated()
		}
		if w.scope.OnUpdated != nil {
			w.scope.OnUpdated()
		}
	}
}
