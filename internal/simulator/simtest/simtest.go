// Package simtest provides deterministic clocks and random sources for tests
// of code built on the simulator.
package simtest

import (
	"sync"
	"time"
)

// Clock is a virtual clock. Sleep returns immediately after advancing Now by
// the requested duration and recording it.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewClock returns a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
}

// Advance moves the clock forward without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleeps returns every duration passed to Sleep, in order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Total returns the sum of all sleeps.
func (c *Clock) Total() time.Duration {
	var sum time.Duration
	for _, d := range c.Sleeps() {
		sum += d
	}
	return sum
}

// Rand returns scripted draws. Float64 cycles through Floats and IntN through
// Ints (each taken modulo n); an empty list yields 0.
type Rand struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// Always returns a Rand whose Float64 always yields f and IntN always yields i.
func Always(f float64, i int) *Rand {
	return &Rand{Floats: []float64{f}, Ints: []int{i}}
}

// Succeed forces every outcome draw to the success branch.
func Succeed() *Rand { return Always(0, 0) }

// Fail forces every outcome draw to the failure branch and picks the canned
// error at errIndex.
func Fail(errIndex int) *Rand { return Always(0.999, errIndex) }

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Floats) == 0 {
		return 0
	}
	f := r.Floats[r.fi%len(r.Floats)]
	r.fi++
	return f
}

func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Ints) == 0 || n <= 0 {
		return 0
	}
	i := r.Ints[r.ii%len(r.Ints)]
	r.ii++
	return ((i % n) + n) % n
}
