package scripts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/scriptyard/internal/lifecycle"
	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/simulator"
	"github.com/zulandar/scriptyard/internal/simulator/simtest"
	"github.com/zulandar/scriptyard/internal/stats"
	"github.com/zulandar/scriptyard/internal/store"
)

var ctx = context.Background()

type harness struct {
	svc   *Service
	store *store.Store
	rec   *notify.Recorder
	clock *simtest.Clock
}

func newHarness(t *testing.T, r simulator.Rand) *harness {
	t.Helper()
	clock := simtest.NewClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(ctx, store.NewMemoryPersister(), store.Options{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	rec := &notify.Recorder{}
	orch, err := lifecycle.New(lifecycle.Opts{Store: st, Clock: clock, Rand: r, Notifier: rec, Logger: logger})
	if err != nil {
		t.Fatalf("lifecycle.New: %v", err)
	}
	svc, err := New(Opts{Store: st, Orchestrator: orch, Notifier: rec, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)
	return &harness{svc: svc, store: st, rec: rec, clock: clock}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Error("expected error without store")
	}
	st, _ := store.Open(ctx, store.NewMemoryPersister(), store.Options{})
	if _, err := New(Opts{Store: st}); err == nil {
		t.Error("expected error without orchestrator")
	}
}

func TestStats_EmptyCollection(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	if diff := cmp.Diff(stats.Summary{}, h.svc.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestAddScript(t *testing.T) {
	h := newHarness(t, simtest.Succeed())

	s, err := h.svc.AddScript(ctx, "Login Test", "checks login", "print(1)")
	if err != nil {
		t.Fatalf("AddScript: %v", err)
	}
	if s.ID == "" || s.LastRunStatus != models.StatusNotRun || s.RunCount != 0 {
		t.Errorf("new script = %+v", s)
	}
	if !s.CreatedAt.Equal(s.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v", s.CreatedAt, s.UpdatedAt)
	}
	if got := len(h.svc.List()); got != 1 {
		t.Errorf("List() has %d scripts, want 1", got)
	}
	if got := h.svc.Stats().TotalScripts; got != 1 {
		t.Errorf("TotalScripts = %d, want 1", got)
	}
	if titles := h.rec.Titles(); len(titles) != 1 || titles[0] != "Script Created" {
		t.Errorf("notifications = %v", titles)
	}
}

func TestAddScript_BlankName(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	if _, err := h.svc.AddScript(ctx, "  ", "", ""); !errors.Is(err, ErrNameRequired) {
		t.Errorf("err = %v, want ErrNameRequired", err)
	}
	if len(h.svc.List()) != 0 {
		t.Error("blank-name script was stored")
	}
}

func TestUpdateScript(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "Before", "", "")
	h.clock.Advance(time.Minute)

	name := "After"
	got, ok, err := h.svc.UpdateScript(ctx, s.ID, store.Patch{Name: &name})
	if err != nil || !ok {
		t.Fatalf("UpdateScript = %v, %v", ok, err)
	}
	if got.Name != "After" || !got.UpdatedAt.After(s.UpdatedAt) {
		t.Errorf("updated = %+v", got)
	}
	if last := h.rec.Titles()[len(h.rec.Titles())-1]; last != "Script Updated" {
		t.Errorf("last notification = %q", last)
	}
}

func TestUpdateScript_UnknownID(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	name := "x"
	_, ok, err := h.svc.UpdateScript(ctx, "nope", store.Patch{Name: &name})
	if err != nil || ok {
		t.Errorf("UpdateScript(unknown) = %v, %v", ok, err)
	}
	if len(h.rec.Events()) != 0 {
		t.Errorf("unexpected notifications %v", h.rec.Titles())
	}
}

func TestDeleteScript(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "Doomed", "", "")

	ok, err := h.svc.DeleteScript(ctx, s.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteScript = %v, %v", ok, err)
	}
	if len(h.svc.List()) != 0 || h.svc.Stats().TotalScripts != 0 {
		t.Error("script still present after delete")
	}
}

func TestDeleteScript_UnknownIDLeavesCollection(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	h.svc.AddScript(ctx, "Keep", "", "")
	before := h.svc.List()

	ok, err := h.svc.DeleteScript(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("DeleteScript(missing) = %v, %v", ok, err)
	}
	if diff := cmp.Diff(before, h.svc.List()); diff != "" {
		t.Errorf("collection changed (-before +after):\n%s", diff)
	}
}

func TestRunScript_StatsFollowOutcome(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "Login Test", "", "")

	got, err := h.svc.RunScript(ctx, s.ID)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if got.RunCount != 1 || got.LastRunStatus != models.StatusSuccess {
		t.Errorf("script = %+v", got)
	}
	want := stats.Summary{TotalScripts: 1, SuccessfulRuns: 1, TotalRuns: 1}
	if diff := cmp.Diff(want, h.svc.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestRunScript_StatsShowRunningState(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "Watched", "", "")

	var mu sync.Mutex
	var running []bool
	unsub := h.store.Subscribe(func(c store.Change) {
		mu.Lock()
		running = append(running, c.Script.IsRunning)
		mu.Unlock()
	})
	defer unsub()

	if _, err := h.svc.RunScript(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]bool{true, false}, running); diff != "" {
		t.Errorf("isRunning writes (-want +got):\n%s", diff)
	}
}

func TestSimulateScriptRun_SavesChangedCode(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "Editor", "", "old = 1")

	var emitted []string
	got, res, err := h.svc.SimulateScriptRun(ctx, s.ID, "new = 2\n# note\nnext = 3", func(l string) {
		emitted = append(emitted, l)
	})
	if err != nil {
		t.Fatalf("SimulateScriptRun: %v", err)
	}
	if got.Code != "new = 2\n# note\nnext = 3" {
		t.Errorf("code not saved: %q", got.Code)
	}
	if !res.Success || got.LastRunStatus != models.StatusSuccess || got.RunCount != 1 {
		t.Errorf("result %+v script %+v", res, got)
	}
	joined := strings.Join(emitted, "\n")
	if !strings.Contains(joined, ">> new = 2") || !strings.Contains(joined, ">> next = 3") || strings.Contains(joined, "# note") {
		t.Errorf("emitted lines:\n%s", joined)
	}
	if diff := cmp.Diff(emitted, h.svc.Console(s.ID).Logs()); diff != "" {
		t.Errorf("console buffer (-emitted +buffer):\n%s", diff)
	}
	if h.svc.Console(s.ID).IsRunning() {
		t.Error("console still running")
	}
	titles := h.rec.Titles()
	if diff := cmp.Diff([]string{"Script Created", "Script Updated", "Script Execution Successful"}, titles); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestSimulateScriptRun_UnchangedCodeNotSaved(t *testing.T) {
	h := newHarness(t, simtest.Fail(1))
	s, _ := h.svc.AddScript(ctx, "Editor", "", "x = 1")

	got, res, err := h.svc.SimulateScriptRun(ctx, s.ID, "x = 1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || got.LastRunStatus != models.StatusFailed {
		t.Errorf("result %+v script %+v", res, got)
	}
	for _, title := range h.rec.Titles() {
		if title == "Script Updated" {
			t.Error("unchanged code triggered an update")
		}
	}
	if h.svc.Stats().FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", h.svc.Stats().FailedRuns)
	}
}

func TestSimulateScriptRun_UnknownID(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	got, res, err := h.svc.SimulateScriptRun(ctx, "nope", "x = 1", nil)
	if err != nil || got != nil || len(res.Lines) != 0 {
		t.Errorf("got %v %+v %v", got, res, err)
	}
}

func TestSimulateCode_EchoesAtMostFiveLines(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	var code []string
	for i := 0; i < 10; i++ {
		code = append(code, "step_"+string(rune('a'+i))+"()")
	}

	res := h.svc.SimulateCode(strings.Join(code, "\n"), nil)

	if res.Lines[0] != ">> Starting Selenium WebDriver..." || res.Lines[1] != ">> WebDriver initialized" {
		t.Fatalf("preamble = %q", res.Lines[:2])
	}
	var echoed []string
	for _, l := range res.Lines {
		if strings.HasPrefix(l, ">> step_") {
			echoed = append(echoed, strings.TrimPrefix(l, ">> "))
		}
	}
	if diff := cmp.Diff(code[:5], echoed); diff != "" {
		t.Errorf("echoed lines (-want +got):\n%s", diff)
	}
	if len(h.svc.List()) != 0 {
		t.Error("SimulateCode touched the store")
	}
}

func TestConsole_DroppedOnDelete(t *testing.T) {
	h := newHarness(t, simtest.Succeed())
	s, _ := h.svc.AddScript(ctx, "C", "", "a = 1")
	h.svc.SimulateScriptRun(ctx, s.ID, "", nil)
	if len(h.svc.Console(s.ID).Logs()) == 0 {
		t.Fatal("console empty after run")
	}

	h.svc.DeleteScript(ctx, s.ID)
	if len(h.svc.Console(s.ID).Logs()) != 0 {
		t.Error("console survived delete")
	}
}
