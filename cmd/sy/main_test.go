package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/scriptyard/internal/simulator"
	"github.com/zulandar/scriptyard/internal/simulator/simtest"
)

// runCmd executes the root command with args and returns combined output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeConfig writes a bolt-backed config with near-zero quick-run latency
// into a temp dir and returns its path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scriptyard.yaml")
	data := fmt.Sprintf(`storage:
  backend: bolt
  path: %s
simulation:
  min_latency: 1ms
  max_latency: 1ms
log:
  level: error
%s`, filepath.Join(dir, "scripts.db"), extra)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fastRuns swaps in a virtual clock and scripted draws for the test.
func fastRuns(t *testing.T, r simulator.Rand) {
	t.Helper()
	origClock, origRand := newClock, newRand
	newClock = func() simulator.Clock { return simtest.NewClock(time.Now()) }
	newRand = func() simulator.Rand { return r }
	t.Cleanup(func() { newClock, newRand = origClock, origRand })
}

var createdID = regexp.MustCompile(`Created script (\S+) `)

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "sy dev") {
		t.Errorf("expected output to contain 'sy dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	for _, want := range []string{"sy 1.0.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCmd(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"serve", "script", "stats", "audit", "template", "db", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help should list %q, got: %s", sub, out)
		}
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"script", "show"})
	if code := execute(cmd); code != 1 {
		t.Errorf("execute = %d, want 1", code)
	}
}
