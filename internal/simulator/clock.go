package simulator

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current time and the simulated delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Rand supplies the random draws that decide outcomes.
type Rand interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// RealClock uses wall-clock time.
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// GlobalRand draws from the goroutine-safe top-level math/rand/v2 source.
type GlobalRand struct{}

func (GlobalRand) Float64() float64 { return rand.Float64() }
func (GlobalRand) IntN(n int) int   { return rand.IntN(n) }
