// Package scripts is the operation surface shared by the CLI and the
// dashboard. It owns the script store, the run orchestrator, one console
// buffer per script and the live statistics summary.
package scripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zulandar/scriptyard/internal/lifecycle"
	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/simulator"
	"github.com/zulandar/scriptyard/internal/stats"
	"github.com/zulandar/scriptyard/internal/store"
)

// ErrNameRequired is returned by AddScript for a blank name.
var ErrNameRequired = errors.New("scripts: name is required")

// Opts configures a Service.
type Opts struct {
	Store        *store.Store
	Orchestrator *lifecycle.Orchestrator
	Notifier     notify.Notifier
	Logger       *slog.Logger
}

// Service coordinates script operations.
type Service struct {
	store    *store.Store
	orch     *lifecycle.Orchestrator
	notifier notify.Notifier
	logger   *slog.Logger
	unsub    func()

	mu       sync.Mutex
	summary  stats.Summary
	version  uint64
	consoles map[string]*simulator.Console
}

// New returns a Service. Store and Orchestrator are required.
func New(opts Opts) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("scripts: store is required")
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("scripts: orchestrator is required")
	}
	s := &Service{
		store:    opts.Store,
		orch:     opts.Orchestrator,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		consoles: make(map[string]*simulator.Console),
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.summary = stats.Aggregate(s.store.List())
	s.unsub = s.store.Subscribe(s.onChange)
	return s, nil
}

// onChange recomputes the summary from the snapshot carried by c. Snapshots
// older than the last one applied are dropped.
func (s *Service) onChange(c store.Change) {
	sum := stats.Aggregate(c.Scripts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Version <= s.version {
		return
	}
	s.version = c.Version
	s.summary = sum
	if c.Kind == store.ChangeDeleted {
		delete(s.consoles, c.Script.ID)
	}
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store { return s.store }

// Close detaches the service from the store. It does not close the store.
func (s *Service) Close() {
	s.unsub()
}

func (s *Service) List() []models.Script {
	return s.store.List()
}

func (s *Service) Get(id string) (models.Script, bool) {
	return s.store.Get(id)
}

// Stats returns the summary for the current collection.
func (s *Service) Stats() stats.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// AddScript creates a script with status not_run and a zero run count.
func (s *Service) AddScript(ctx context.Context, name, description, code string) (models.Script, error) {
	if strings.TrimSpace(name) == "" {
		return models.Script{}, ErrNameRequired
	}
	script, err := s.store.Add(ctx, name, description, code)
	if err != nil {
		return models.Script{}, err
	}
	s.logger.Info("script created", "id", script.ID, "name", script.Name)
	s.notify(ctx, notify.Event{
		Title:    "Script Created",
		Body:     fmt.Sprintf("Successfully created %q", script.Name),
		Severity: notify.SeveritySuccess,
	})
	return script, nil
}

// UpdateScript merges patch into the script. ok is false when id is unknown,
// in which case nothing is written.
func (s *Service) UpdateScript(ctx context.Context, id string, patch store.Patch) (models.Script, bool, error) {
	script, ok, err := s.store.Update(ctx, id, patch)
	if err != nil || !ok {
		return script, ok, err
	}
	s.logger.Info("script updated", "id", id)
	s.notify(ctx, notify.Event{
		Title:    "Script Updated",
		Body:     "Your changes have been saved",
		Severity: notify.SeverityInfo,
	})
	return script, true, nil
}

// DeleteScript removes the script. Unknown ids are a no-op.
func (s *Service) DeleteScript(ctx context.Context, id string) (bool, error) {
	removed, ok, err := s.store.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.logger.Info("script deleted", "id", id, "name", removed.Name)
	s.notify(ctx, notify.Event{
		Title:    "Script Deleted",
		Body:     fmt.Sprintf("Successfully deleted %q", removed.Name),
		Severity: notify.SeverityWarning,
	})
	return true, nil
}

// RunScript performs a quick run and blocks until the script reaches a
// terminal state. It returns nil for an unknown id.
func (s *Service) RunScript(ctx context.Context, id string) (*models.Script, error) {
	return s.orch.Run(ctx, id)
}

// SimulateScriptRun is the editor run. A code body that differs from the
// stored one is saved first. Console output goes to the script's console
// buffer and to emit. It returns nil for an unknown id.
func (s *Service) SimulateScriptRun(ctx context.Context, id, code string, emit func(line string)) (*models.Script, simulator.Result, error) {
	current, ok := s.store.Get(id)
	if !ok {
		return nil, simulator.Result{}, nil
	}
	if code != "" && code != current.Code {
		if _, _, err := s.UpdateScript(ctx, id, store.Patch{Code: &code}); err != nil {
			return nil, simulator.Result{}, err
		}
	}

	var (
		final  *models.Script
		runErr error
	)
	res := s.Console(id).Capture(emit, func(out func(string)) simulator.Result {
		var r simulator.Result
		final, r, runErr = s.orch.RunWithSimulator(ctx, id, out)
		return r
	})
	return final, res, runErr
}

// SimulateCode runs the simulator against code without touching any record.
func (s *Service) SimulateCode(code string, emit func(line string)) simulator.Result {
	return s.orch.Simulator().Run(code, emit)
}

// Console returns the console buffer for id, creating it on first use.
func (s *Service) Console(id string) *simulator.Console {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consoles[id]
	if !ok {
		c = simulator.NewConsole(s.orch.Simulator())
		s.consoles[id] = c
	}
	return c
}

func (s *Service) notify(ctx context.Context, evt notify.Event) {
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.logger.Warn("notification failed", "title", evt.Title, "err", err)
	}
}
