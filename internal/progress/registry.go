package progress

import "sync"

// Registry is the process-wide table of run progress state. All snapshot
// mutation, observer registration, and fan-out happen under one mutex so a
// subscriber can never miss an event between snapshot capture and stream
// attachment, and no observer set changes mid fan-out.
type Registry struct {
	mu     sync.Mutex
	runs   map[string]*run
	buffer int
}

type run struct {
	order     []string
	statuses  map[string]StepStatus
	metas     map[string]map[string]string
	terminal  *Event
	cancelled bool
	active    int
	observers map[*Subscription]struct{}
}

// Subscription is one observer's attachment to a run's event stream. The
// events channel is closed when the subscription is detached or when the run
// was already terminal at subscribe time.
type Subscription struct {
	registry *Registry
	runID    string
	events   chan Event
	closed   bool
}

// NewRegistry constructs a registry whose observers buffer up to buffer
// events each. Events beyond a full buffer are dropped for that observer only.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	return &Registry{
		runs:   make(map[string]*run),
		buffer: buffer,
	}
}

func (r *Registry) ensureLocked(runID string) *run {
	entry, ok := r.runs[runID]
	if !ok {
		entry = &run{
			statuses:  make(map[string]StepStatus),
			metas:     make(map[string]map[string]string),
			observers: make(map[*Subscription]struct{}),
		}
		r.runs[runID] = entry
	}
	return entry
}

// Begin marks a run as actively executing so its state survives periods with
// zero observers. Pair with End once the run settles. Marks nest: the run
// lifecycle owner and the step executor may each hold one.
func (r *Registry) Begin(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(runID).active++
}

// End releases one active mark and prunes the run once no mark remains and
// nobody is watching.
func (r *Registry) End(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	if !ok {
		return
	}
	if entry.active > 0 {
		entry.active--
	}
	if entry.active == 0 && len(entry.observers) == 0 {
		delete(r.runs, runID)
	}
}

// Publish merges an event into the run's snapshot and fans it out to all
// current observers. Keep-alive pings are rejected here; they belong to the
// transport layer. Publish never fails the caller.
func (r *Registry) Publish(runID string, event Event) {
	if event.Type == EventPing || event.Type == EventConnected {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.ensureLocked(runID)
	entry.merge(event)
	for sub := range entry.observers {
		sub.deliverLocked(event)
	}
}

// merge applies the snapshot rule: last write wins per step, the first
// terminal event freezes the snapshot for future replay.
func (entry *run) merge(event Event) {
	if entry.terminal != nil {
		return
	}
	if event.Terminal() {
		terminal := event
		entry.terminal = &terminal
		return
	}
	if event.Type != EventStep || event.Step == "" {
		return
	}
	if _, seen := entry.statuses[event.Step]; !seen {
		entry.order = append(entry.order, event.Step)
	}
	entry.statuses[event.Step] = event.Status
	if event.Meta != nil {
		entry.metas[event.Step] = event.Meta
	}
}

// Subscribe attaches an observer to a run and returns the replay event
// sequence: a connected acknowledgement, the last-known step statuses, and
// the terminal event when the run has already finished. Snapshot capture and
// stream registration are atomic with respect to Publish. For a terminal run
// the returned subscription is already closed, so its channel yields no live
// events.
func (r *Registry) Subscribe(runID string) ([]Event, *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.ensureLocked(runID)

	replay := make([]Event, 0, len(entry.order)+2)
	replay = append(replay, Connected())
	for _, step := range entry.order {
		replay = append(replay, Event{
			Type:   EventStep,
			Step:   step,
			Status: entry.statuses[step],
			Meta:   entry.metas[step],
		})
	}

	sub := &Subscription{
		registry: r,
		runID:    runID,
		events:   make(chan Event, r.buffer),
	}

	if entry.terminal != nil {
		replay = append(replay, *entry.terminal)
		sub.closed = true
		close(sub.events)
		if entry.active == 0 && len(entry.observers) == 0 {
			delete(r.runs, runID)
		}
		return replay, sub
	}

	entry.observers[sub] = struct{}{}
	return replay, sub
}

// Cancel records a cancellation request for the run and synthesizes the
// distinguished terminal error event. Calling it again, or calling it for a
// finished run, is a harmless no-op acknowledgement. A run the registry is
// not tracking (never begun, or already pruned) is ignored outright so the
// request leaves no state behind.
func (r *Registry) Cancel(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[runID]
	if !ok {
		return
	}
	if entry.cancelled {
		return
	}
	entry.cancelled = true
	if entry.terminal != nil {
		return
	}
	event := Cancelled()
	entry.merge(event)
	for sub := range entry.observers {
		sub.deliverLocked(event)
	}
}

// Cancelled is a non-blocking point-in-time read of the cancellation flag.
func (r *Registry) Cancelled(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	return ok && entry.cancelled
}

// Watched reports whether any observer is currently attached to the run.
func (r *Registry) Watched(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	return ok && len(entry.observers) > 0
}

// Events is the live stream for this subscription. It preserves publish
// order for the run and is closed on detach.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the observer. Safe to call more than once. When the last
// observer leaves a run that is no longer executing, the run's in-memory
// state is pruned.
func (s *Subscription) Close() {
	r := s.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)

	entry, ok := r.runs[s.runID]
	if !ok {
		return
	}
	delete(entry.observers, s)
	if len(entry.observers) == 0 && entry.active == 0 {
		delete(r.runs, s.runID)
	}
}

// deliverLocked pushes an event onto the observer's buffer, dropping it for
// this observer when the buffer is full. Callers hold the registry mutex.
func (s *Subscription) deliverLocked(event Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}
