package progress

// EventType distinguishes the closed set of progress event variants.
type EventType string

const (
	// EventConnected acknowledges a new subscription before replay begins.
	EventConnected EventType = "connected"
	// EventStep reports a step status change.
	EventStep EventType = "step"
	// EventDone marks the run finished with every required step succeeded.
	EventDone EventType = "done"
	// EventError marks the run finished with a failure or cancellation.
	EventError EventType = "error"
	// EventPing is a transport keep-alive; it never enters snapshots.
	EventPing EventType = "ping"
)

// StepStatus is the lifecycle of a single pipeline step.
type StepStatus string

const (
	StepStarted StepStatus = "started"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// CancelledDetail is the distinguished reason carried by the terminal error
// event synthesized for a user-initiated cancellation.
const CancelledDetail = "cancelled by user"

// Event is one entry in a run's progress stream.
type Event struct {
	Type   EventType         `json:"event"`
	Step   string            `json:"step,omitempty"`
	Status StepStatus        `json:"status,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Connected builds the subscription acknowledgement event.
func Connected() Event {
	return Event{Type: EventConnected}
}

// Started builds a step-started event.
func Started(step string) Event {
	return Event{Type: EventStep, Step: step, Status: StepStarted}
}

// Done builds a step-done event with optional metadata.
func Done(step string, meta map[string]string) Event {
	return Event{Type: EventStep, Step: step, Status: StepDone, Meta: meta}
}

// Failed builds a step-failed event.
func Failed(step string) Event {
	return Event{Type: EventStep, Step: step, Status: StepFailed}
}

// RunDone builds the successful terminal event.
func RunDone() Event {
	return Event{Type: EventDone}
}

// RunError builds the failing terminal event. step may be empty when the
// failure is not attributable to a single step.
func RunError(step, detail string) Event {
	return Event{Type: EventError, Step: step, Detail: detail}
}

// Cancelled builds the terminal event synthesized for a cancel request.
func Cancelled() Event {
	return Event{Type: EventError, Detail: CancelledDetail}
}

// Ping builds a transport keep-alive event.
func Ping() Event {
	return Event{Type: EventPing}
}
