package assistant

import "time"

// EventKind identifies the stage an Event reports on.
type EventKind string

const (
	// KindListen follows every Listen call. Text is the transcript.
	KindListen EventKind = "listen"
	// KindChat follows every generation request. Text is the reply.
	KindChat EventKind = "chat"
	// KindSpeak follows every attempt to voice a reply.
	KindSpeak EventKind = "speak"
	// KindTurn closes a turn. Outcome is set.
	KindTurn EventKind = "turn"
)

// Outcome classifies a finished turn.
type Outcome string

const (
	// OutcomeEmpty means nothing was heard; the model was not called.
	OutcomeEmpty Outcome = "empty"
	// OutcomeOK means the model replied.
	OutcomeOK Outcome = "ok"
	// OutcomeFailed means generation failed.
	OutcomeFailed Outcome = "failed"
)

// Event is emitted to observers as a turn progresses.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Text    string        `json:"text,omitempty"`
	Err     error         `json:"-"`
	Latency time.Duration `json:"latency"`
	Time    time.Time     `json:"time"`

	// History is the number of turns persisted after a chat.
	History int `json:"history,omitempty"`

	// Outcome is set on KindTurn.
	Outcome Outcome `json:"outcome,omitempty"`
}

// Error returns the event error message, or "".
func (e Event) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Observer receives events. Observe is called synchronously from the loop
// and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
