package sim

import (
	"context"
	"time"
)

// Pacer holds simulated time at or behind wall-clock time. It never speeds
// the loop up; a slow peer simply lets simulated time fall behind.
type Pacer struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	start time.Time
}

func NewPacer() *Pacer {
	return &Pacer{now: time.Now, sleep: sleepContext}
}

func (p *Pacer) Start() { p.start = p.now() }

// Wait blocks until wall-clock time since Start reaches simTime seconds.
func (p *Pacer) Wait(ctx context.Context, simTime float64) error {
	ahead := time.Duration(simTime*float64(time.Second)) - p.now().Sub(p.start)
	if ahead <= 0 {
		return nil
	}
	return p.sleep(ctx, ahead)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
