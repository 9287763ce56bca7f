package watcher

import (
	"context"
	"time"

	"github.com/ritzau/crossbar-heterograph/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive rebuilds
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic. A batch is emitted once
// the input has been quiet for quietPeriod, or maxWait after its first event.
func (d *Debouncer) run(ctx context.Context) {
	var (
		quiet       = stoppedTimer()
		deadline    = stoppedTimer()
		pending     bool
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet.Stop()
		deadline.Stop()
		pending = false
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Schema changes first: they redefine which tables are read
		for _, t := range []ChangeType{ChangeTypeSchema, ChangeTypeTable} {
			if paths := accumulated[t]; len(paths) > 0 {
				d.output <- ChangeEvent{
					Type:      t,
					Paths:     paths,
					Timestamp: time.Now(),
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	defer close(d.output)

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			resetTimer(quiet, d.quietPeriod)
			if !pending {
				resetTimer(deadline, d.maxWait)
				pending = true
			}

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

// resetTimer restarts t, draining a stale fire first
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
