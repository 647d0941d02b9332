package events

import "context"

// Publisher is the outbound notification port. Emission is explicit
// and injected; dispatch is fire-and-forget with no delivery guarantee.
type Publisher interface {
	Publish(ctx context.Context, event Envelope)
}

// Nop discards every event. Used in tests and when no broker is
// configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) {}

// Recorder collects published events for assertions in tests.
type Recorder struct {
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, event Envelope) {
	r.Events = append(r.Events, event)
}
