package viz

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rigsim/internal/sim"
)

// Feed is a sim observer that hands every n-th sample to the monitor
// without blocking the step loop. A sample arriving while the previous one
// is still queued is dropped.
type Feed struct {
	every   int
	samples chan sim.Sample
	done    chan struct{}
	once    sync.Once
	result  *sim.Result
	dropped atomic.Uint64
}

func NewFeed(every int) *Feed {
	if every < 1 {
		every = 1
	}
	return &Feed{
		every:   every,
		samples: make(chan sim.Sample, 1),
		done:    make(chan struct{}),
	}
}

func (f *Feed) OnStep(s *sim.Sample) {
	if s.Step%f.every != 0 {
		return
	}
	select {
	case f.samples <- *s:
	default:
		f.dropped.Add(1)
	}
}

// Close records the run result and stops the pump after it has been
// delivered.
func (f *Feed) Close(res *sim.Result) error {
	f.once.Do(func() {
		f.result = res
		close(f.done)
	})
	return nil
}

func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

// Pump forwards queued samples to send until the run closes the feed or
// ctx is done. send is typically (*tea.Program).Send.
func (f *Feed) Pump(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case s := <-f.samples:
			send(SampleMsg{Sample: s, Dropped: f.Dropped()})
		case <-f.done:
			select {
			case s := <-f.samples:
				send(SampleMsg{Sample: s, Dropped: f.Dropped()})
			default:
			}
			send(DoneMsg{Result: f.result})
			return
		case <-ctx.Done():
			return
		}
	}
}
