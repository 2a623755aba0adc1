// Package simulator fabricates the console output of a script run. The code
// text is only echoed, never executed.
package simulator

import (
	"strings"
	"time"
)

// DefaultSuccessRate is the probability that a simulated run succeeds.
const DefaultSuccessRate = 0.8

// MaxEchoLines caps how many code lines are echoed per run.
const MaxEchoLines = 5

// LinePrefix marks every emitted console line.
const LinePrefix = ">> "

// Delays between emitted lines.
const (
	StartupDelay    = 1000 * time.Millisecond
	InitDelay       = 500 * time.Millisecond
	LineDelay       = 300 * time.Millisecond
	VerdictDelay    = 1000 * time.Millisecond
	CloseDelay      = 500 * time.Millisecond
	FailureEndDelay = 300 * time.Millisecond
)

// Console text. Preamble lines are emitted before anything from the script.
var (
	Preamble = []string{
		"Starting Selenium WebDriver...",
		"WebDriver initialized",
	}
	ExecHeader = "Executing Python script..."

	SuccessEpilogue = []string{
		"Test completed successfully",
		"All assertions passed",
		"Closing browser...",
	}
	SuccessTrailer = "Selenium session ended"

	// CannedErrors holds the failure reasons, one of which is reported per
	// failed run.
	CannedErrors = []string{
		"Error: Element not found: #login-button",
		"Error: Timeout waiting for page load",
		"Error: Session disconnected unexpectedly",
		"Error: WebDriverException: unknown error: net::ERR_CONNECTION_REFUSED",
	}
	FailureEpilogue = []string{
		"Test failed",
		"Closing browser...",
	}
	FailureTrailer = "Selenium session ended with errors"
)

// Result is the outcome of one simulated run.
type Result struct {
	Success bool     `json:"success"`
	Lines   []string `json:"lines"`
	// Error is the canned error line of a failed run.
	Error string `json:"error,omitempty"`
}

// Simulator produces timed console lines and an outcome.
type Simulator struct {
	clock       Clock
	rand        Rand
	successRate float64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(s *Simulator) { s.clock = c } }

// WithRand replaces the random source.
func WithRand(r Rand) Option { return func(s *Simulator) { s.rand = r } }

// WithSuccessRate sets the success probability.
func WithSuccessRate(p float64) Option { return func(s *Simulator) { s.successRate = p } }

// New returns a Simulator using wall-clock delays and the global random source.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		clock:       RealClock{},
		rand:        GlobalRand{},
		successRate: DefaultSuccessRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EchoLines returns the code lines a run echoes: non-blank, not starting with
// '#', trimmed, at most MaxEchoLines, in original order.
func EchoLines(code string) []string {
	var out []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		if len(out) == MaxEchoLines {
			break
		}
	}
	return out
}

// Run simulates executing code. emit, if non-nil, receives every line as it
// is produced; the returned Result holds the same lines in the same order.
// Run blocks for the whole simulated duration and cannot be cancelled.
func (s *Simulator) Run(code string, emit func(line string)) Result {
	var res Result
	out := func(text string) {
		line := LinePrefix + text
		res.Lines = append(res.Lines, line)
		if emit != nil {
			emit(line)
		}
	}

	out(Preamble[0])
	s.clock.Sleep(StartupDelay)
	out(Preamble[1])
	s.clock.Sleep(InitDelay)
	out(ExecHeader)

	for _, line := range EchoLines(code) {
		s.clock.Sleep(LineDelay)
		out(line)
	}

	res.Success = s.rand.Float64() < s.successRate
	s.clock.Sleep(VerdictDelay)

	if res.Success {
		for _, line := range SuccessEpilogue {
			out(line)
		}
		s.clock.Sleep(CloseDelay)
		out(SuccessTrailer)
		return res
	}

	res.Error = CannedErrors[s.rand.IntN(len(CannedErrors))]
	out(res.Error)
	out(FailureEpilogue[0])
	s.clock.Sleep(CloseDelay)
	out(FailureEpilogue[1])
	s.clock.Sleep(FailureEndDelay)
	out(FailureTrailer)
	return res
}
