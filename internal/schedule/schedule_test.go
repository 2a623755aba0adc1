package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/scriptyard/internal/config"
	"github.com/zulandar/scriptyard/internal/models"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeRunner) RunScript(_ context.Context, id string) (*models.Script, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil || id == "missing" {
		return nil, f.err
	}
	return &models.Script{ID: id, LastRunStatus: models.StatusSuccess, RunCount: 1}, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsBadExpression(t *testing.T) {
	_, err := New(&fakeRunner{}, []config.ScheduleConfig{
		{Script: "1", Cron: "*/5 * * * *"},
		{Script: "2", Cron: "every tuesday"},
	}, quiet())
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNew_RegistersEntries(t *testing.T) {
	s, err := New(&fakeRunner{}, []config.ScheduleConfig{
		{Script: "1", Cron: "*/5 * * * *"},
		{Script: "2", Cron: "0 9 * * 1"},
	}, quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := s.Entries()
	if len(entries) != 2 || entries[0].Script != "1" || entries[1].Spec != "0 9 * * 1" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFire_RunsScript(t *testing.T) {
	r := &fakeRunner{}
	s, err := New(r, []config.ScheduleConfig{{Script: "abc", Cron: "@every 1h"}}, quiet())
	if err == nil {
		t.Fatal("descriptor should be rejected by the 5-field parser")
	}

	s, err = New(r, []config.ScheduleConfig{{Script: "abc", Cron: "0 * * * *"}}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if !s.Fire(s.Entries()[0].ID) {
		t.Fatal("Fire returned false for a registered entry")
	}
	if got := r.Calls(); len(got) != 1 || got[0] != "abc" {
		t.Errorf("calls = %v", got)
	}
	if s.Fire(999) {
		t.Error("Fire returned true for an unknown entry")
	}
}

func TestFire_MissingScriptAndErrorsAreSwallowed(t *testing.T) {
	r := &fakeRunner{}
	s, _ := New(r, []config.ScheduleConfig{{Script: "missing", Cron: "0 * * * *"}}, quiet())
	s.Fire(s.Entries()[0].ID)

	r2 := &fakeRunner{err: errors.New("disk full")}
	s2, _ := New(r2, []config.ScheduleConfig{{Script: "x", Cron: "0 * * * *"}}, quiet())
	s2.Fire(s2.Entries()[0].ID)

	if len(r.Calls()) != 1 || len(r2.Calls()) != 1 {
		t.Errorf("calls = %v, %v", r.Calls(), r2.Calls())
	}
}

func TestFire_SkipsWhileStillRunning(t *testing.T) {
	r := &fakeRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	s, err := New(r, []config.ScheduleConfig{{Script: "slow", Cron: "0 * * * *"}}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	id := s.Entries()[0].ID

	done := make(chan struct{})
	go func() {
		s.Fire(id)
		close(done)
	}()
	<-r.started

	s.Fire(id) // overlaps the first fire and is skipped
	close(r.release)
	<-done

	if got := len(r.Calls()); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(&fakeRunner{}, nil, quiet())
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestNext(t *testing.T) {
	from := time.Date(2026, 4, 6, 8, 59, 0, 0, time.UTC) // Monday
	got, err := Next("0 9 * * 1", from)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
	if _, err := Next("nope", from); err == nil {
		t.Error("expected error for bad expression")
	}
}
