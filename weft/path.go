package weft

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// pathGetter resolves a compiled dotted path against a root value. Missing
// segments resolve to nil rather than failing, matching the forgiving read
// semantics watch expressions need across re-evaluations.
type pathGetter func(root any) (any, error)

var invalidPathRE = regexp.MustCompile(`[^\w.$]`)

// parsePath compiles a dotted-path expression like "user.address.city" into
// an accessor. Only word characters, '.' and '$' are accepted; anything else
// is a resolution failure reported at construction time.
func parsePath(expr string) (pathGetter, error) {
	if expr == "" {
		return nil, &PathError{Path: expr, Reason: "empty expression"}
	}
	if loc := invalidPathRE.FindString(expr); loc != "" {
		return nil, &PathError{Path: expr, Reason: fmt.Sprintf("unsupported character %q", loc)}
	}
	segments := strings.Split(expr, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, &PathError{Path: expr, Reason: "empty path segment"}
		}
	}

	return func(root any) (any, error) {
		cur := root
		for _, seg := range segments {
			if cur == nil {
				return nil, nil
			}
			// Reactive containers on the path register as dependencies and
			// are read through.
			if r, ok := cur.(Reactive); ok {
				r.Subject().Depend()
				if l, ok := cur.(Loader); ok {
					cur = l.Load()
					if cur == nil {
						return nil, nil
					}
				}
			}
			next, ok := step(cur, seg)
			if !ok {
				return nil, nil
			}
			cur = next
		}
		if r, ok := cur.(Reactive); ok {
			r.Subject().Depend()
			if l, ok := cur.(Loader); ok {
				cur = l.Load()
			}
		}
		return cur, nil
	}, nil
}

// step resolves one path segment against maps with string keys, structs and
// anything reachable through pointers.
func step(v any, seg string) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(seg))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		fv := rv.FieldByName(seg)
		if !fv.IsValid() || !fv.CanInterface() {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}
