// Package events implements the scan event emitter: a broadcast Hub
// generalized from the teacher's websocket client-broadcast Hub to a
// typed scanmodel.Event carried over a bounded channel, fanned out to
// any number of pluggable Sinks (a websocket broadcaster is one Sink,
// used by cmd/scanner; a test recorder is another).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/fathomsec/urlscan-engine/internal/logging"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// bufferSize bounds the Hub's internal channel, per spec §5's "the
// event emitter uses a bounded buffer" back-pressure rule.
const bufferSize = 256

// Sink receives every emitted event. A Sink must not block: Hub.Run
// calls Send synchronously, one sink after another, so a blocking sink
// stalls delivery to every sink. Buffering is the sink's own job (the
// websocket sink keeps its own bounded queue).
type Sink interface {
	Send(scanmodel.Event)
}

// Hub fans out scan events to every attached sink without ever
// blocking the scan goroutine that emits them.
type Hub struct {
	broadcast chan scanmodel.Event
	mu        sync.Mutex
	sinks     map[Sink]bool
}

// NewHub builds a Hub. Call Run in a background goroutine before
// emitting.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan scanmodel.Event, bufferSize),
		sinks:     make(map[Sink]bool),
	}
}

// Run drains the broadcast channel and fans each event out to every
// attached sink. It returns when the Hub's channel is closed.
func (h *Hub) Run() {
	for evt := range h.broadcast {
		h.mu.Lock()
		for sink := range h.sinks {
			sink.Send(evt)
		}
		h.mu.Unlock()
	}
}

// Attach registers a sink to receive future events.
func (h *Hub) Attach(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[s] = true
}

// Detach removes a previously attached sink.
func (h *Hub) Detach(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sinks, s)
}

// Emit enqueues an event for broadcast. Emission never blocks the
// scan: a full buffer drops the event and logs it rather than
// backpressuring the caller, per spec §4.13's "emission never blocks
// the scan" contract.
func (h *Hub) Emit(evt scanmodel.Event) {
	if evt.Ts.IsZero() {
		evt.Ts = time.Now()
	}
	select {
	case h.broadcast <- evt:
	default:
		logging.FromContext(context.Background()).Warn().Str("scanId", evt.ScanID).Str("type", string(evt.Type)).Msg("event dropped: hub buffer full")
	}
}

// Close stops Run once all pending events have been drained by closing
// the broadcast channel.
func (h *Hub) Close() {
	close(h.broadcast)
}
