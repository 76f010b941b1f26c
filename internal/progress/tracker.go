// Package progress manages the lifecycle of the concurrent progress
// indicators reported by a build invocation. Each emitter id owns at most
// one live indicator; indicators are created on first use and retired on
// completion, teardown, or cancellation.
package progress

import "sync"

// Surface is the UI-facing handle for one indicator. Implementations
// render however they like (terminal bar, plain log line, test recorder).
type Surface interface {
	// Report updates the indicator. increment is the delta of work since
	// the last report, in percent; it is never negative.
	Report(message string, increment float64)
	// Done retires the indicator.
	Done()
}

// Factory creates a Surface for a newly seen emitter id.
type Factory interface {
	NewSurface(id string) Surface
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(id string) Surface

func (f FactoryFunc) NewSurface(id string) Surface { return f(id) }

// Indicator is one live progress stream. It is owned exclusively by the
// tracker's active map and must not be used after disposal.
type Indicator struct {
	id       string
	surface  Surface
	percent  float64
	message  string
	disposed bool
	cancel   chan struct{}
}

// ID returns the owning emitter id.
func (in *Indicator) ID() string { return in.id }

// Percent returns the highest percentage reported so far.
func (in *Indicator) Percent() float64 { return in.percent }

// Message returns the last reported message.
func (in *Indicator) Message() string { return in.message }

// Cancelled is closed when cancellation has been requested for this
// indicator.
func (in *Indicator) Cancelled() <-chan struct{} { return in.cancel }

// Tracker maps emitter ids to live indicators. All state transitions are
// serialized through a mutex so that the line-routing loop and the
// cancellation path cannot interleave partial updates.
type Tracker struct {
	mu        sync.Mutex
	factory   Factory
	active    map[string]*Indicator
	cancel    chan struct{}
	cancelled bool
	onCancel  []func()
}

// NewTracker returns an empty tracker creating surfaces through factory.
func NewTracker(factory Factory) *Tracker {
	return &Tracker{
		factory: factory,
		active:  make(map[string]*Indicator),
		cancel:  make(chan struct{}),
	}
}

// Get returns the live indicator for id, creating one on first use.
// Repeated calls without an intervening disposal return the same
// indicator. After disposal the same id gets a fresh indicator; ids are
// never permanently retired.
func (t *Tracker) Get(id string) *Indicator {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(id)
}

func (t *Tracker) get(id string) *Indicator {
	if in, ok := t.active[id]; ok {
		return in
	}
	in := &Indicator{
		id:      id,
		surface: t.factory.NewSurface(id),
		cancel:  make(chan struct{}),
	}
	if t.cancelled {
		// Cancellation already requested: indicators created afterwards
		// start out cancelled.
		close(in.cancel)
	}
	t.active[id] = in
	return in
}

// Report updates id's message and, if percent is non-negative, its
// percentage. The increment handed to the surface is the delta from the
// last reported percentage; regressions are suppressed (the baseline keeps
// the maximum seen) so the surface never receives negative work. Reaching
// 100 percent disposes the indicator.
func (t *Tracker) Report(id string, percent float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in := t.get(id)
	in.message = message

	if percent < 0 {
		in.surface.Report(message, 0)
		return
	}

	increment := percent - in.percent
	if increment < 0 {
		increment = 0
	} else {
		in.percent = percent
	}
	in.surface.Report(message, increment)

	if in.percent >= 100 {
		t.dispose(in)
	}
}

// Clear disposes id's indicator regardless of its percentage. Unknown ids
// are ignored.
func (t *Tracker) Clear(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if in, ok := t.active[id]; ok {
		t.dispose(in)
	}
}

// DisposeAll retires every live indicator. Called unconditionally at
// invocation teardown so indicators cannot leak across invocations.
func (t *Tracker) DisposeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, in := range t.active {
		t.dispose(in)
	}
}

// Live returns the number of currently live indicators.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// OnCancellationRequested registers a callback fired once when
// cancellation is triggered. If cancellation has already been requested,
// the callback fires immediately.
func (t *Tracker) OnCancellationRequested(fn func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return
	}
	t.onCancel = append(t.onCancel, fn)
	t.mu.Unlock()
}

// CancelAll propagates one upstream cancellation trigger to every live
// indicator, to every indicator created afterwards, and to the registered
// callbacks. Subsequent calls are no-ops.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	close(t.cancel)
	for _, in := range t.active {
		close(in.cancel)
	}
	callbacks := t.onCancel
	t.onCancel = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Cancelled is closed once CancelAll has been called.
func (t *Tracker) Cancelled() <-chan struct{} { return t.cancel }

// dispose retires an indicator. Caller holds the lock.
func (t *Tracker) dispose(in *Indicator) {
	if in.disposed {
		return
	}
	in.disposed = true
	delete(t.active, in.id)
	in.surface.Done()
}
