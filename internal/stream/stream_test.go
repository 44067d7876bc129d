package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza/scanhub/internal/models"
)

func collect(ch <-chan models.StatusEvent) []models.StatusEvent {
	var events []models.StatusEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestHubDeliversInOrder(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("run-1")
	defer cancel()

	h.Publish("run-1", models.InitEvent(nil))
	h.Publish("run-1", models.OutputChunkEvent("a"))
	h.Publish("run-1", models.OutputChunkEvent("b"))
	h.Publish("run-1", models.CompletedEvent(nil))

	events := collect(ch)
	require.Len(t, events, 4)
	assert.Equal(t, models.EventInit, events[0].Type)
	assert.Equal(t, models.EventOutputChunk, events[1].Type)
	assert.Equal(t, models.OutputChunkData{Chunk: "a"}, events[1].Data)
	assert.Equal(t, models.OutputChunkData{Chunk: "b"}, events[2].Data)
	assert.Equal(t, models.EventCompleted, events[3].Type)
}

func TestHubTerminalEventExactlyOnce(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("run-1")
	defer cancel()

	h.Publish("run-1", models.CompletedEvent(nil))
	h.Publish("run-1", models.CompletedEvent(nil))
	h.Publish("run-1", models.OutputChunkEvent("late"))

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventCompleted, events[0].Type)
}

func TestHubSubscribeAfterTerminalReturnsClosedChannel(t *testing.T) {
	h := NewHub(nil)
	h.Publish("run-1", models.FailedEvent("boom"))

	ch, cancel := h.Subscribe("run-1")
	defer cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestHubIndependentKeys(t *testing.T) {
	h := NewHub(nil)
	a, cancelA := h.Subscribe("a")
	defer cancelA()
	b, cancelB := h.Subscribe("b")
	defer cancelB()

	h.Publish("a", models.CompletedEvent(nil))
	h.Publish("b", models.OutputChunkEvent("x"))
	h.Publish("b", models.FailedEvent("boom"))

	assert.Len(t, collect(a), 1)
	assert.Len(t, collect(b), 2)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("run-1")
	cancel()

	// Publishing after cancel must not panic or block.
	h.Publish("run-1", models.OutputChunkEvent("x"))

	_, open := <-ch
	assert.False(t, open)
}

func TestHubConcurrentPublishSingleTerminal(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("run-1")
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Publish("run-1", models.CompletedEvent(nil))
		}()
	}
	wg.Wait()

	events := collect(ch)
	assert.Len(t, events, 1, "concurrent publishers still produce exactly one terminal event")
}

func TestPollerSynthesizesEvents(t *testing.T) {
	snapshots := []*Snapshot{
		{Status: "running", Phase: "port-discovery", Tool: "nmap", Target: "h", Progress: 0},
		{Status: "running", Phase: "port-discovery", Tool: "nmap", Target: "h", Progress: 0, Output: "80/tcp open\n"},
		{Status: "running", Phase: "service-probe", Tool: "httpx", Target: "h", Progress: 50, Output: "80/tcp open\n"},
		{Status: "completed", Phase: "service-probe", Progress: 100, Output: "80/tcp open\nhttp 200\n", Terminal: true},
	}

	i := 0
	fetch := func(ctx context.Context) (*Snapshot, error) {
		s := snapshots[i]
		if i < len(snapshots)-1 {
			i++
		}
		return s, nil
	}

	p := &Poller{Fetch: fetch, Interval: time.Millisecond}
	out := make(chan models.StatusEvent, 32)

	err := p.Run(context.Background(), out)
	require.NoError(t, err)

	events := collect(out)
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventInit, events[0].Type)

	var types []models.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, models.EventOutputChunk)
	assert.Contains(t, types, models.EventToolStart)
	assert.Contains(t, types, models.EventProgress)
	assert.Equal(t, models.EventCompleted, events[len(events)-1].Type)

	// Output growth synthesizes deltas: concatenated chunks reconstruct
	// the final output without duplication.
	var joined string
	for _, ev := range events {
		if ev.Type == models.EventOutputChunk {
			joined += ev.Data.(models.OutputChunkData).Chunk
		}
	}
	assert.Equal(t, "80/tcp open\nhttp 200\n", joined)
}

func TestPollerTerminalSnapshotOnFirstFetch(t *testing.T) {
	fetch := func(ctx context.Context) (*Snapshot, error) {
		return &Snapshot{Status: "failed", Error: "target unreachable", Terminal: true}, nil
	}

	p := &Poller{Fetch: fetch, Interval: time.Millisecond}
	out := make(chan models.StatusEvent, 8)

	require.NoError(t, p.Run(context.Background(), out))

	events := collect(out)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventInit, events[0].Type)
	assert.Equal(t, models.EventFailed, events[1].Type)
	assert.Equal(t, models.FailedData{Reason: "target unreachable"}, events[1].Data)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	fetch := func(ctx context.Context) (*Snapshot, error) {
		return &Snapshot{Status: "running"}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := &Poller{Fetch: fetch, Interval: 5 * time.Millisecond}
	out := make(chan models.StatusEvent, 64)

	err := p.Run(ctx, out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
