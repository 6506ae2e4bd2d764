package controller

import (
	"encoding/json"
	"io"

	"upscaled/pkg/types"
)

// EventPublisher receives session events from the controller. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(types.Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(types.Event) {}

// WriterPublisher streams events as NDJSON lines, one event per line. It is
// what the /process endpoint hands to the controller.
type WriterPublisher struct {
	w     io.Writer
	flush func()
}

func NewWriterPublisher(w io.Writer, flush func()) *WriterPublisher {
	return &WriterPublisher{w: w, flush: flush}
}

func (p *WriterPublisher) Publish(e types.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if _, err := p.w.Write(append(b, '\n')); err != nil {
		return
	}
	if p.flush != nil {
		p.flush()
	}
}
