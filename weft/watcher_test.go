package weft_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom/weft"
)

// changing a watched value should fire the callback exactly once per flush
// with the new and previous values
func TestWatcherBasicChange(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	name := weft.NewBox(sys, "A")

	type change struct{ newVal, oldVal any }
	var changes []change

	_, err := weft.NewWatcher(sc, func() (any, error) {
		return name.Value(), nil
	}, func(newVal, oldVal any) error {
		changes = append(changes, change{newVal, oldVal})
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	name.SetValue("B")
	assert.Empty(t, changes, "deferred watcher must not run before the flush")

	sys.Tick()
	assert.Equal(t, []change{{"B", "A"}}, changes)
}

// a lazy watcher should not evaluate until read, and repeated writes while
// stale should cost nothing
func TestWatcherLazyGating(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 0)

	evals := 0
	w, err := weft.NewWatcher(sc, func() (any, error) {
		evals++
		return a.Value() * 2, nil
	}, nil, weft.WatchOptions{Lazy: true})
	assert.NoError(t, err)

	assert.Equal(t, 0, evals)
	assert.True(t, w.Dirty())

	v, err := w.Value()
	assert.NoError(t, err)
	assert.Equal(t, 0, v)
	assert.Equal(t, 1, evals)
	assert.False(t, w.Dirty())

	for i := 1; i <= 5; i++ {
		a.SetValue(i)
	}
	assert.Equal(t, 1, evals)
	assert.True(t, w.Dirty())

	v, err = w.Value()
	assert.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, evals)
}

// a sync watcher should run before the write that triggered it returns
func TestWatcherSyncRunsInsideNotify(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	var events []string
	_, err := weft.NewWatcher(sc, func() (any, error) {
		return a.Value(), nil
	}, func(newVal, oldVal any) error {
		events = append(events, "cb")
		return nil
	}, weft.WatchOptions{Sync: true})
	assert.NoError(t, err)

	a.SetValue(2)
	events = append(events, "after-set")
	assert.Equal(t, []string{"cb", "after-set"}, events)
}

// reads inside Untracked must not become dependencies
func TestWatcherUntracked(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)
	b := weft.NewBox(sys, 10)

	runs := 0
	_, err := weft.NewWatcher(sc, func() (any, error) {
		runs++
		v := a.Value()
		sys.Untracked(func() {
			v += b.Value()
		})
		return v, nil
	}, nil, weft.WatchOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.Len(t, b.Subject().Subscribers(), 0)

	b.SetValue(20)
	sys.Tick()
	assert.Equal(t, 1, runs)

	a.SetValue(2)
	sys.Tick()
	assert.Equal(t, 2, runs)
}

// an unchanged non-composite result should not fire the callback
func TestWatcherUnchangedValueSkipsCallback(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	trigger := weft.NewBox(sys, 1)

	cbRuns := 0
	_, err := weft.NewWatcher(sc, func() (any, error) {
		trigger.Value()
		return "constant", nil
	}, func(newVal, oldVal any) error {
		cbRuns++
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	trigger.SetValue(2)
	sys.Tick()
	assert.Equal(t, 0, cbRuns)
}

// a composite result fires the callback even when its identity is unchanged,
// since its contents may have mutated in place
func TestWatcherCompositeAlwaysFires(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)

	items := []string{"x"}
	box := weft.NewBox(sys, items)

	cbRuns := 0
	_, err := weft.NewWatcher(sc, func() (any, error) {
		return box.Value(), nil
	}, func(newVal, oldVal any) error {
		cbRuns++
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	items[0] = "y"
	box.SetValue(items)
	sys.Tick()
	assert.Equal(t, 1, cbRuns)
}

// getter failures of a user-facing watcher go to the scope sink and the
// cached value degrades to the previous one
func TestWatcherUserFacingGetterError(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	var reports []error
	sc := weft.NewScope(sys, nil).WithErrorSink(func(err error, sc *weft.Scope, context string) {
		reports = append(reports, err)
	})
	a := weft.NewBox(sys, 1)

	cbRuns := 0
	w, err := weft.NewWatcher(sc, func() (any, error) {
		v := a.Value()
		if v == 13 {
			return nil, errors.New("unlucky")
		}
		return v, nil
	}, func(newVal, oldVal any) error {
		cbRuns++
		return nil
	}, weft.WatchOptions{UserFacing: true})
	assert.NoError(t, err)

	a.SetValue(2)
	sys.Tick()
	assert.Equal(t, 1, cbRuns)
	assert.Empty(t, reports)

	a.SetValue(13)
	sys.Tick()
	assert.Len(t, reports, 1)
	assert.Equal(t, 1, cbRuns, "degraded value equals the previous one, no change to report")

	v, err := w.Value()
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
}

// getter failures of an internal watcher propagate: at construction to the
// caller, during a flush to the system error handler
func TestWatcherInternalGetterError(t *testing.T) {
	var sysErrs []error
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		sysErrs = append(sysErrs, err)
	})
	sc := weft.NewScope(sys, nil)

	_, err := weft.NewWatcher(sc, func() (any, error) {
		return nil, errors.New("boom")
	}, nil, weft.WatchOptions{})
	var ge *weft.GetterError
	assert.ErrorAs(t, err, &ge)

	a := weft.NewBox(sys, 1)
	_, err = weft.NewWatcher(sc, func() (any, error) {
		if a.Value() > 1 {
			return nil, errors.New("boom")
		}
		return a.Value(), nil
	}, nil, weft.WatchOptions{})
	assert.NoError(t, err)

	a.SetValue(2)
	sys.Tick()
	assert.Len(t, sysErrs, 1)
	assert.ErrorAs(t, sysErrs[0], &ge)
}

// callback failures of an internal watcher reach the system error handler
// wrapped as a callback error
func TestWatcherCallbackError(t *testing.T) {
	var sysErrs []error
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		sysErrs = append(sysErrs, err)
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	_, err := weft.NewWatcher(sc, func() (any, error) {
		return a.Value(), nil
	}, func(newVal, oldVal any) error {
		return errors.New("cb boom")
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	a.SetValue(2)
	sys.Tick()
	assert.Len(t, sysErrs, 1)
	var ce *weft.CallbackError
	assert.ErrorAs(t, sysErrs[0], &ce)
}

// a torn down watcher never runs again, and teardown is idempotent
func TestWatcherTeardown(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	runs := 0
	w, err := weft.NewWatcher(sc, func() (any, error) {
		runs++
		return a.Value(), nil
	}, nil, weft.WatchOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, runs)

	w.Teardown()
	w.Teardown()
	assert.False(t, w.Active())
	assert.Len(t, a.Subject().Subscribers(), 0)
	assert.Len(t, sc.Watchers(), 0)

	a.SetValue(2)
	sys.Tick()
	assert.Equal(t, 1, runs)
}

// tearing down a watcher that is already queued skips its run
func TestWatcherTeardownWhileQueued(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	cbRuns := 0
	w, err := weft.NewWatcher(sc, func() (any, error) {
		return a.Value(), nil
	}, func(newVal, oldVal any) error {
		cbRuns++
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	a.SetValue(2)
	w.Teardown()
	sys.Tick()
	assert.Equal(t, 0, cbRuns)
}

// the before hook fires immediately before a batched run
func TestWatcherBeforeHook(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	var events []string
	_, err := weft.NewWatcher(sc, func() (any, error) {
		return a.Value(), nil
	}, func(newVal, oldVal any) error {
		events = append(events, "cb")
		return nil
	}, weft.WatchOptions{
		Before: func() { events = append(events, "before") },
	})
	assert.NoError(t, err)

	a.SetValue(2)
	sys.Tick()
	assert.Equal(t, []string{"before", "cb"}, events)
}

// reading a lazy watcher from inside another evaluation makes the reader
// depend on the lazy watcher's own dependencies
func TestWatcherDerivedDependencies(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 1)

	doubled, err := weft.NewWatcher(sc, func() (any, error) {
		return a.Value() * 2, nil
	}, nil, weft.WatchOptions{Lazy: true})
	assert.NoError(t, err)

	var seen []any
	_, err = weft.NewWatcher(sc, func() (any, error) {
		return doubled.Value()
	}, func(newVal, oldVal any) error {
		seen = append(seen, newVal)
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	a.SetValue(5)
	sys.Tick()
	assert.Equal(t, []any{10}, seen)
}

// typed helpers convert to and from the untyped watcher API
func TestWatcherTypedHelpers(t *testing.T) {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
	sc := weft.NewScope(sys, nil)
	a := weft.NewBox(sys, 2)

	var got, prev int
	_, err := weft.WatchInt(sc, func() (int, error) {
		return a.Value() * a.Value(), nil
	}, func(newVal, oldVal int) error {
		got, prev = newVal, oldVal
		return nil
	}, weft.WatchOptions{})
	assert.NoError(t, err)

	a.SetValue(3)
	sys.Tick()
	assert.Equal(t, 9, got)
	assert.Equal(t, 4, prev)
}
