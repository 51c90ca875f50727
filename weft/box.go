package weft

// Box is the minimal reactive value container: a value paired with a
// Subject. Reading through Value registers the active watcher; SetValue
// notifies subscribers. Interception layers with richer semantics only need
// to drive the same Subject API.
type Box[T any] struct {
	subject *Subject
	value   T
}

func NewBox[T any](sys *System, initial T) *Box[T] {
	return &Box[T]{
		subject: NewSubject(sys),
		value:   initial,
	}
}

// Subject exposes the box's subscription registry. Implements Reactive.
func (b *Box[T]) Subject() *Subject {
	return b.subject
}

// Value returns the current value and registers the active watcher, if any,
// as a subscriber.
func (b *Box[T]) Value() T {
	b.subject.Depend()
	return b.value
}

// Peek reads the value without creating a dependency.
func (b *Box[T]) Peek() T {
	return b.value
}

// Load is the untyped raw read used by deep traversal and path resolution.
// Implements Loader.
func (b *Box[T]) Load() any {
	return b.value
}

// SetValue stores v and notifies subscribers. Writes of an unchanged
// non-composite value are dropped; composites always notify because their
// contents may have mutated behind the same identity.
func (b *Box[T]) SetValue(v T) {
	if !isComposite(v) && shallowEqual(v, b.value) {
		return
	}
	b.value = v
	b.subject.Notify()
}
