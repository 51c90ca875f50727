package weft

// Subject is the subscription registry for one reactive value. The layer
// that makes a value observable (a Box, or an external interception layer)
// holds a Subject and calls Depend on reads and Notify on writes.
//
// A watcher appears in subs exactly when this subject appears in that
// watcher's dependency list. Subscription order is insertion order and is
// preserved by removal.
type Subject struct {
	id   uint64
	sys  *System
	subs []*Watcher
}

func NewSubject(sys *System) *Subject {
	return &Subject{id: sys.nextID(), sys: sys}
}

// ID returns the unique monotonic identifier for this subject.
func (s *Subject) ID() uint64 {
	return s.id
}

// Depend records this subject as a dependency of the currently evaluating
// watcher. Reads outside any tracked evaluation are a no-op.
func (s *Subject) Depend() {
	if w := s.sys.active; w != nil {
		w.AddDep(s)
	}
}

// Notify updates every subscriber, in subscription order. The subscriber
// list is snapshotted first so teardown or re-subscription from inside a
// callback cannot disturb this pass.
func (s *Subject) Notify() {
	snapshot := make([]*Watcher, len(s.subs))
	copy(snapshot, s.subs)
	for _, w := range snapshot {
		w.Update()
	}
}

// Subscribers returns a copy of the current subscriber list.
func (s *Subject) Subscribers() []*Watcher {
	snapshot := make([]*Watcher, len(s.subs))
	copy(snapshot, s.subs)
	return snapshot
}

func (s *Subject) addSub(w *Watcher) {
	s.subs = append(s.subs, w)
}

func (s *Subject) removeSub(w *Watcher) {
	for i, sub := range s.subs {
		if sub == w {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
