// Package schedule fires quick runs of scripts on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/scriptyard/internal/config"
	"github.com/zulandar/scriptyard/internal/models"
)

// parser accepts standard 5-field expressions (minute, hour, dom, month, dow).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Runner performs a quick run. *scripts.Service satisfies it.
type Runner interface {
	RunScript(ctx context.Context, id string) (*models.Script, error)
}

// Scheduler owns a cron instance whose entries each run one script.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	entries []Entry
}

// Entry describes a registered schedule.
type Entry struct {
	ID     cron.EntryID
	Script string
	Spec   string
}

// New builds a Scheduler for the given schedules. Invalid expressions are
// rejected before anything is registered.
func New(runner Runner, schedules []config.ScheduleConfig, logger *slog.Logger, opts ...cron.Option) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	base := []cron.Option{
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	}
	s := &Scheduler{
		cron:   cron.New(append(base, opts...)...),
		runner: runner,
		logger: logger,
	}
	for _, sc := range schedules {
		if _, err := parser.Parse(sc.Cron); err != nil {
			return nil, fmt.Errorf("schedule: script %s: parse %q: %w", sc.Script, sc.Cron, err)
		}
	}
	for _, sc := range schedules {
		id, err := s.cron.AddJob(sc.Cron, s.job(sc.Script))
		if err != nil {
			return nil, fmt.Errorf("schedule: add %s: %w", sc.Script, err)
		}
		s.entries = append(s.entries, Entry{ID: id, Script: sc.Script, Spec: sc.Cron})
	}
	return s, nil
}

// job returns the cron job for one script. Unknown ids are logged and
// otherwise ignored.
func (s *Scheduler) job(scriptID string) cron.Job {
	return cron.FuncJob(func() {
		s.logger.Debug("scheduled run firing", "id", scriptID)
		got, err := s.runner.RunScript(context.Background(), scriptID)
		switch {
		case err != nil:
			s.logger.Error("scheduled run failed", "id", scriptID, "err", err)
		case got == nil:
			s.logger.Warn("scheduled script not found", "id", scriptID)
		default:
			s.logger.Info("scheduled run finished", "id", scriptID, "status", got.LastRunStatus)
		}
	})
}

// Entries returns the registered schedules.
func (s *Scheduler) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Fire runs the job registered under id immediately, through the same
// wrappers as a timed fire.
func (s *Scheduler) Fire(id cron.EntryID) bool {
	e := s.cron.Entry(id)
	if !e.Valid() {
		return false
	}
	e.WrappedJob.Run()
	return true
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the first fire time of expr after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: parse %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
