package events

import (
	"sync"
	"testing"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

type recordingSink struct {
	mu     sync.Mutex
	events []scanmodel.Event
}

func (r *recordingSink) Send(evt scanmodel.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestHubFansOutToAllAttachedSinks(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	a, b := &recordingSink{}, &recordingSink{}
	hub.Attach(a)
	hub.Attach(b)

	hub.Emit(scanmodel.Event{Type: scanmodel.EventScanStart, ScanID: "s1"})

	waitFor(t, func() bool { return a.count() == 1 && b.count() == 1 })
}

func TestHubStampsTimestampWhenMissing(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	sink := &recordingSink{}
	hub.Attach(sink)
	hub.Emit(scanmodel.Event{Type: scanmodel.EventLog})

	waitFor(t, func() bool { return sink.count() == 1 })
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.events[0].Ts.IsZero() {
		t.Error("expected Ts to be stamped when Emit receives a zero-value timestamp")
	}
}

func TestHubDetachStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	sink := &recordingSink{}
	hub.Attach(sink)
	hub.Detach(sink)
	hub.Emit(scanmodel.Event{Type: scanmodel.EventScanComplete})

	time.Sleep(20 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("count = %d, want 0 after detach", sink.count())
	}
}

func TestHubEmitDoesNotBlockWhenBufferFull(t *testing.T) {
	hub := NewHub()
	// Deliberately don't run the hub: the channel fills and Emit must
	// still return instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize+10; i++ {
			hub.Emit(scanmodel.Event{Type: scanmodel.EventProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with a full, undrained buffer")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
