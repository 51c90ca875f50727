package weft

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
)

// Reactive is implemented by containers that expose their Subject, letting
// deep traversal and path resolution force dependency registration on them.
type Reactive interface {
	Subject() *Subject
}

// Loader is the untyped raw read a Reactive container may offer so traversal
// can continue into the held value. It must not register dependencies
// itself; Traverse handles that through the Subject.
type Loader interface {
	Load() any
}

// Traverse force-registers a dependency on every reactive container nested
// anywhere inside value, so a deep watcher notices internal mutation that an
// identity comparison at the top level would miss.
//
// The walk is iterative with an explicit work stack, and cyclic structures
// terminate through two seen sets: subject ids for reactive containers and
// backing pointers for plain maps, slices and pointers.
func Traverse(value any) {
	if value == nil {
		return
	}
	seenSubjects := mapset.NewThreadUnsafeSet[uint64]()
	seenPtrs := mapset.NewThreadUnsafeSet[uintptr]()

	stack := []reflect.Value{reflect.ValueOf(value)}
	for len(stack) > 0 {
		lastIdx := len(stack) - 1
		cur := stack[lastIdx]
		stack = stack[:lastIdx]

		if !cur.IsValid() {
			continue
		}

		if cur.CanInterface() {
			if r, ok := cur.Interface().(Reactive); ok {
				subj := r.Subject()
				if seenSubjects.Contains(subj.id) {
					continue
				}
				seenSubjects.Add(subj.id)
				subj.Depend()
				if l, ok := cur.Interface().(Loader); ok {
					stack = append(stack, reflect.ValueOf(l.Load()))
					continue
				}
			}
		}

		switch cur.Kind() {
		case reflect.Interface:
			if !cur.IsNil() {
				stack = append(stack, cur.Elem())
			}
		case reflect.Pointer:
			if cur.IsNil() || seenPtrs.Contains(cur.Pointer()) {
				continue
			}
			seenPtrs.Add(cur.Pointer())
			stack = append(stack, cur.Elem())
		case reflect.Map:
			if cur.IsNil() || seenPtrs.Contains(cur.Pointer()) {
				continue
			}
			seenPtrs.Add(cur.Pointer())
			iter := cur.MapRange()
			for iter.Next() {
				stack = append(stack, iter.Value())
			}
		case reflect.Slice:
			if cur.IsNil() || seenPtrs.Contains(cur.Pointer()) {
				continue
			}
			seenPtrs.Add(cur.Pointer())
			for i := 0; i < cur.Len(); i++ {
				stack = append(stack, cur.Index(i))
			}
		case reflect.Array:
			for i := 0; i < cur.Len(); i++ {
				stack = append(stack, cur.Index(i))
			}
		case reflect.Struct:
			for i := 0; i < cur.NumField(); i++ {
				if cur.Field(i).CanInterface() {
					stack = append(stack, cur.Field(i))
				}
			}
		}
	}
}
