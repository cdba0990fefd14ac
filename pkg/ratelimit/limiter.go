package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DelayStrategy decides how long to pause before the next download
type DelayStrategy interface {
	NextDelay() time.Duration
}

// FixedDelay always pauses for the same duration
type FixedDelay struct {
	Delay time.Duration
}

// NextDelay returns the configured delay
func (f *FixedDelay) NextDelay() time.Duration {
	if f.Delay < 0 {
		return 0
	}
	return f.Delay
}

// RandomDelay pauses for a uniformly random duration in [Min, Max]
type RandomDelay struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelay creates a RandomDelay. Bounds are swapped if given in the wrong order.
func NewRandomDelay(min, max time.Duration) *RandomDelay {
	if max < min {
		min, max = max, min
	}
	return &RandomDelay{
		Min: min,
		Max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay returns a random delay within the bounds
func (r *RandomDelay) NextDelay() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.Min + time.Duration(r.rng.Int63n(int64(r.Max-r.Min)+1))
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer spaces out sequential downloads. The first call to Wait returns
// immediately; every later call pauses for the strategy's next delay.
type Pacer struct {
	strategy DelayStrategy
	sleep    SleepFunc

	started bool
	waits   int
	waited  time.Duration
}

// NewPacer creates a pacer using the given strategy
func NewPacer(strategy DelayStrategy) *Pacer {
	if strategy == nil {
		strategy = &FixedDelay{}
	}
	return &Pacer{
		strategy: strategy,
		sleep:    Sleep,
	}
}

// WithSleep replaces the sleep function, mostly for tests
func (p *Pacer) WithSleep(sleep SleepFunc) *Pacer {
	p.sleep = sleep
	return p
}

// Wait is called right before each download attempt
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.started {
		p.started = true
		return ctx.Err()
	}

	delay := p.strategy.NextDelay()
	if err := p.sleep(ctx, delay); err != nil {
		return err
	}
	p.waits++
	p.waited += delay
	return nil
}

// Waits returns how many pauses have been taken
func (p *Pacer) Waits() int {
	return p.waits
}

// Waited returns the total time spent pausing
func (p *Pacer) Waited() time.Duration {
	return p.waited
}

// Sleep waits for the specified duration or until context is cancelled
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
