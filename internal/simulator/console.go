package simulator

import "sync"

// Console is the editor's output pane: a log buffer and a running flag that
// a simulated run writes into. It is safe for concurrent use.
type Console struct {
	sim *Simulator

	mu      sync.Mutex
	logs    []string
	running bool
}

// NewConsole returns an empty console backed by sim.
func NewConsole(sim *Simulator) *Console {
	return &Console{sim: sim}
}

// Logs returns a copy of the buffered lines.
func (c *Console) Logs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.logs...)
}

// IsRunning reports whether a simulation is writing to the console.
func (c *Console) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Clear empties the buffer.
func (c *Console) Clear() {
	c.mu.Lock()
	c.logs = nil
	c.mu.Unlock()
}

// AddLog appends a line to the buffer.
func (c *Console) AddLog(line string) {
	c.mu.Lock()
	c.logs = append(c.logs, line)
	c.mu.Unlock()
}

// Simulate clears the buffer, runs the simulator against code and appends
// each line to the buffer before forwarding it to emit.
func (c *Console) Simulate(code string, emit func(line string)) Result {
	return c.Capture(emit, func(out func(string)) Result {
		return c.sim.Run(code, out)
	})
}

// Capture clears the buffer and marks the console running while run executes.
// Every line run passes to its out func is buffered, then forwarded to emit.
func (c *Console) Capture(emit func(line string), run func(out func(line string)) Result) Result {
	c.mu.Lock()
	c.logs = nil
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	return run(func(line string) {
		c.AddLog(line)
		if emit != nil {
			emit(line)
		}
	})
}
