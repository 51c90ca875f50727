package weft

import "fmt"

// GetterError wraps a failure thrown by a watcher's getter during a tracked
// evaluation of a non-user-facing watcher.
type GetterError struct {
	Expression string
	Err        error
}

func (e *GetterError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("getter for watcher %q: %v", e.Expression, e.Err)
	}
	return fmt.Sprintf("watcher getter: %v", e.Err)
}

func (e *GetterError) Unwrap() error { return e.Err }

// CallbackError wraps a failure thrown by a watcher's change callback.
type CallbackError struct {
	Expression string
	Err        error
}

func (e *CallbackError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("callback for watcher %q: %v", e.Expression, e.Err)
	}
	return fmt.Sprintf("watcher callback: %v", e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// PathError reports a watch expression that could not be compiled into an
// accessor. It is non-fatal: the watcher is constructed with a no-op getter.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("failed watching path %q: %s", e.Path, e.Reason)
}

// CircularUpdateError reports a watcher that kept re-triggering itself past
// the per-flush cap. Only the offending watcher is dropped from the rest of
// that flush.
type CircularUpdateError struct {
	WatcherID  uint64
	Expression string
}

func (e *CircularUpdateError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("possible infinite update loop in watcher with expression %q", e.Expression)
	}
	return fmt.Sprintf("possible infinite update loop in watcher %d", e.WatcherID)
}
