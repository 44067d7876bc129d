package stream

import (
	"context"
	"strings"
	"time"

	"github.com/hamza/scanhub/internal/models"
)

// Snapshot is the minimal status view the polling fallback compares
// between intervals to synthesize events.
type Snapshot struct {
	Status   string
	Progress int
	Phase    string
	Tool     string
	Target   string
	Output   string
	Error    string
	Terminal bool
}

// SnapshotFunc fetches the current status snapshot for the polled entity.
type SnapshotFunc func(ctx context.Context) (*Snapshot, error)

// DefaultPollInterval matches the documented ~1 second fallback cadence.
const DefaultPollInterval = time.Second

// Poller degrades to interval polling when the push channel is
// unavailable, diffing consecutive snapshots into the same StatusEvent
// vocabulary the hub emits so consumers never branch on transport.
type Poller struct {
	Fetch    SnapshotFunc
	Interval time.Duration
}

// NewPoller returns a poller with the default interval.
func NewPoller(fetch SnapshotFunc) *Poller {
	return &Poller{Fetch: fetch, Interval: DefaultPollInterval}
}

// Run polls until a terminal state is observed or ctx is cancelled,
// sending synthesized events to out. It emits init from the first
// snapshot, output-chunk for growth in captured output, tool-start on
// phase changes, progress on progress changes, and completed/failed once.
// The out channel is closed when Run returns.
func (p *Poller) Run(ctx context.Context, out chan<- models.StatusEvent) error {
	defer close(out)

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	prev, err := p.Fetch(ctx)
	if err != nil {
		return err
	}
	out <- models.InitEvent(prev)
	if done := p.emitTerminal(prev, out); done {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		curr, err := p.Fetch(ctx)
		if err != nil {
			return err
		}

		p.diff(prev, curr, out)
		if done := p.emitTerminal(curr, out); done {
			return nil
		}
		prev = curr
	}
}

// diff emits the non-terminal events implied by the delta between two
// snapshots, in a fixed order: phase change, output growth, progress.
func (p *Poller) diff(prev, curr *Snapshot, out chan<- models.StatusEvent) {
	if curr.Phase != prev.Phase && curr.Phase != "" {
		out <- models.ToolStartEvent(curr.Tool, curr.Target, curr.Phase, 0)
	}
	if len(curr.Output) > len(prev.Output) && strings.HasPrefix(curr.Output, prev.Output) {
		out <- models.OutputChunkEvent(curr.Output[len(prev.Output):])
	} else if len(curr.Output) > len(prev.Output) {
		// Output was rewritten rather than appended; forward it whole.
		out <- models.OutputChunkEvent(curr.Output)
	}
	if curr.Progress != prev.Progress {
		out <- models.ProgressEvent(curr.Progress, curr.Phase)
	}
}

// emitTerminal sends the single closing event when the snapshot is
// terminal and reports whether polling should stop.
func (p *Poller) emitTerminal(s *Snapshot, out chan<- models.StatusEvent) bool {
	if !s.Terminal {
		return false
	}
	if s.Error != "" {
		out <- models.FailedEvent(s.Error)
	} else {
		out <- models.CompletedEvent(s)
	}
	return true
}
