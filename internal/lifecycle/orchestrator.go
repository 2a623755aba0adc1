// Package lifecycle drives a script through a run: idle, running, then a
// terminal success or failure written back in a single update.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/simulator"
	"github.com/zulandar/scriptyard/internal/store"
)

// Default quick-run latency bounds.
const (
	DefaultMinLatency = 2 * time.Second
	DefaultMaxLatency = 5 * time.Second
)

// Opts configures an Orchestrator. Zero values fall back to defaults.
type Opts struct {
	Store     *store.Store
	Simulator *simulator.Simulator
	Clock     simulator.Clock
	Rand      simulator.Rand
	Notifier  notify.Notifier
	Logger    *slog.Logger

	SuccessRate *float64
	MinLatency  time.Duration
	MaxLatency  time.Duration
}

// Orchestrator runs scripts held in a Store.
type Orchestrator struct {
	store       *store.Store
	sim         *simulator.Simulator
	clock       simulator.Clock
	rand        simulator.Rand
	notifier    notify.Notifier
	logger      *slog.Logger
	successRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
}

// New returns an Orchestrator. Store is required.
func New(opts Opts) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("lifecycle: store is required")
	}
	o := &Orchestrator{
		store:       opts.Store,
		sim:         opts.Simulator,
		clock:       opts.Clock,
		rand:        opts.Rand,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		successRate: simulator.DefaultSuccessRate,
		minLatency:  opts.MinLatency,
		maxLatency:  opts.MaxLatency,
	}
	if opts.SuccessRate != nil {
		o.successRate = *opts.SuccessRate
	}
	if o.clock == nil {
		o.clock = simulator.RealClock{}
	}
	if o.rand == nil {
		o.rand = simulator.GlobalRand{}
	}
	if o.sim == nil {
		o.sim = simulator.New(
			simulator.WithClock(o.clock),
			simulator.WithRand(o.rand),
			simulator.WithSuccessRate(o.successRate),
		)
	}
	if o.notifier == nil {
		o.notifier = notify.Nop{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.minLatency == 0 && o.maxLatency == 0 {
		o.minLatency, o.maxLatency = DefaultMinLatency, DefaultMaxLatency
	}
	if o.maxLatency < o.minLatency {
		return nil, fmt.Errorf("lifecycle: max latency %v below min latency %v", o.maxLatency, o.minLatency)
	}
	return o, nil
}

// Simulator returns the simulator used for editor runs.
func (o *Orchestrator) Simulator() *simulator.Simulator {
	return o.sim
}

// Run performs a quick run: mark the script running, wait a random latency,
// draw an outcome and write the terminal state. It returns nil with no error
// when id does not exist. Runs cannot be cancelled; ctx only scopes store
// writes and notifications.
func (o *Orchestrator) Run(ctx context.Context, id string) (*models.Script, error) {
	script, ok, err := o.start(ctx, id)
	if err != nil || !ok {
		return nil, err
	}

	o.clock.Sleep(o.latency())
	success := o.rand.Float64() < o.successRate

	return o.finish(ctx, script, success)
}

// RunWithSimulator performs an editor run: mark the script running, stream the
// simulator's console lines to emit, and write the terminal state using the
// simulator's outcome. The script's stored code is the one simulated.
func (o *Orchestrator) RunWithSimulator(ctx context.Context, id string, emit func(line string)) (*models.Script, simulator.Result, error) {
	script, ok, err := o.start(ctx, id)
	if err != nil || !ok {
		return nil, simulator.Result{}, err
	}

	res := o.sim.Run(script.Code, emit)

	final, err := o.finish(ctx, script, res.Success)
	return final, res, err
}

// start writes isRunning=true. The write is visible to subscribers before
// start returns.
func (o *Orchestrator) start(ctx context.Context, id string) (models.Script, bool, error) {
	running := true
	script, ok, err := o.store.Update(ctx, id, store.Patch{IsRunning: &running})
	if err != nil {
		return models.Script{}, true, fmt.Errorf("lifecycle: mark %s running: %w", id, err)
	}
	if !ok {
		o.logger.Debug("run skipped, script not found", "id", id)
		return models.Script{}, false, nil
	}
	o.logger.Info("run started", "id", id, "name", script.Name)
	return script, true, nil
}

// finish writes isRunning=false together with the outcome, timestamp and
// incremented run count.
func (o *Orchestrator) finish(ctx context.Context, script models.Script, success bool) (*models.Script, error) {
	status := models.StatusFailed
	if success {
		status = models.StatusSuccess
	}
	now := o.clock.Now()

	final, ok, err := o.store.Mutate(ctx, script.ID, func(s *models.Script) {
		s.IsRunning = false
		s.LastRunStatus = status
		s.LastRun = &now
		s.RunCount++
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: record result for %s: %w", script.ID, err)
	}
	if !ok {
		// Deleted while running.
		o.logger.Info("run finished for deleted script", "id", script.ID, "status", status)
		return nil, nil
	}

	o.logger.Info("run finished", "id", final.ID, "status", status, "runs", final.RunCount)
	o.announce(ctx, final)
	return &final, nil
}

func (o *Orchestrator) announce(ctx context.Context, s models.Script) {
	evt := notify.Event{
		Title:    "Script Execution Successful",
		Body:     fmt.Sprintf("Successfully executed %q", s.Name),
		Severity: notify.SeveritySuccess,
	}
	if s.LastRunStatus == models.StatusFailed {
		evt = notify.Event{
			Title:    "Script Execution Failed",
			Body:     fmt.Sprintf("Failed to execute %q", s.Name),
			Severity: notify.SeverityError,
		}
	}
	evt.Fields = []notify.Field{
		{Name: "id", Value: s.ID, Short: true},
		{Name: "runs", Value: fmt.Sprint(s.RunCount), Short: true},
	}
	if err := o.notifier.Notify(ctx, evt); err != nil {
		o.logger.Warn("run notification failed", "id", s.ID, "err", err)
	}
}

// latency draws a quick-run duration uniformly from [minLatency, maxLatency].
func (o *Orchestrator) latency() time.Duration {
	span := o.maxLatency - o.minLatency
	return o.minLatency + time.Duration(o.rand.Float64()*float64(span))
}
