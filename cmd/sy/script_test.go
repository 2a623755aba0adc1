package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/scriptyard/internal/simulator/simtest"
)

func addScript(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := runCmd(t, append([]string{"script", "add", "-c", cfg}, args...)...)
	if err != nil {
		t.Fatalf("script add: %v\n%s", err, out)
	}
	m := createdID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in output: %s", out)
	}
	return m[1]
}

func TestScriptList_ShowsSamplesOnFirstRun(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := runCmd(t, "script", "list", "-c", cfg)
	if err != nil {
		t.Fatalf("script list: %v", err)
	}
	for _, want := range []string{"Login Automation", "Product Data Scraper", "UI Screenshot Tester", "Not Run", "Failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}
}

func TestScriptAddRunStats(t *testing.T) {
	fastRuns(t, simtest.Succeed())
	cfg := writeConfig(t, "")

	id := addScript(t, cfg, "Login Test", "-t", "login-test")

	out, err := runCmd(t, "script", "run", id, "-c", cfg)
	if err != nil {
		t.Fatalf("script run: %v", err)
	}
	if !strings.Contains(out, "Login Test: Success (run #1)") {
		t.Errorf("run output:\n%s", out)
	}

	out, err = runCmd(t, "stats", "-c", cfg)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// Three samples plus the new script: samples contribute one success,
	// one failure and eight runs.
	for _, want := range []string{"Total scripts:    4", "Successful runs:  2", "Failed runs:      1", "Total executions: 9"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestScriptShowEditRm(t *testing.T) {
	cfg := writeConfig(t, "")
	codeFile := filepath.Join(t.TempDir(), "flow.py")
	if err := os.WriteFile(codeFile, []byte("driver.get('https://example.com')\n"), 0644); err != nil {
		t.Fatal(err)
	}
	id := addScript(t, cfg, "Flow", "-d", "first", "-f", codeFile)

	out, err := runCmd(t, "script", "show", id, "-c", cfg)
	if err != nil || !strings.Contains(out, "driver.get('https://example.com')") || !strings.Contains(out, "Description: first") {
		t.Fatalf("show: %v\n%s", err, out)
	}

	out, err = runCmd(t, "script", "edit", id, "-c", cfg, "--name", "Flow v2")
	if err != nil || !strings.Contains(out, "Updated script "+id+" (Flow v2)") {
		t.Fatalf("edit: %v\n%s", err, out)
	}

	if _, err := runCmd(t, "script", "edit", id, "-c", cfg); err == nil {
		t.Error("edit with no flags should fail")
	}

	out, err = runCmd(t, "script", "rm", id, "-c", cfg)
	if err != nil || !strings.Contains(out, "Deleted script "+id) {
		t.Fatalf("rm: %v\n%s", err, out)
	}
	if _, err := runCmd(t, "script", "show", id, "-c", cfg); err == nil {
		t.Error("show after rm should fail")
	}
}

func TestScriptUnknownIDIsNoop(t *testing.T) {
	fastRuns(t, simtest.Succeed())
	cfg := writeConfig(t, "")
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"script", "rm", "missing"}, "nothing deleted"},
		{[]string{"script", "run", "missing"}, "nothing run"},
		{[]string{"script", "simulate", "missing"}, "nothing run"},
		{[]string{"script", "edit", "missing", "--name", "x"}, "nothing changed"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := runCmd(t, append(tt.args, "-c", cfg)...)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestScriptSimulate_StreamsConsole(t *testing.T) {
	fastRuns(t, simtest.Fail(0))
	cfg := writeConfig(t, "")
	id := addScript(t, cfg, "Sim")

	codeFile := filepath.Join(t.TempDir(), "sim.py")
	os.WriteFile(codeFile, []byte("# comment\nclick()\n"), 0644)

	out, err := runCmd(t, "script", "simulate", id, "-c", cfg, "-f", codeFile)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for _, want := range []string{
		">> Starting Selenium WebDriver...",
		">> click()",
		">> Error: Element not found: #login-button",
		">> Selenium session ended with errors",
		"Sim: Failed (run #1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "# comment") {
		t.Error("comment line echoed")
	}
}

func TestScriptAdd_Validation(t *testing.T) {
	cfg := writeConfig(t, "")
	if _, err := runCmd(t, "script", "add", "x", "-c", cfg, "-t", "nope"); err == nil {
		t.Error("unknown template should fail")
	}
	if _, err := runCmd(t, "script", "add", "x", "-c", cfg, "-f", "/nonexistent/x.py"); err == nil {
		t.Error("missing code file should fail")
	}
	if _, err := runCmd(t, "script", "add", " ", "-c", cfg); err == nil {
		t.Error("blank name should fail")
	}
}

func TestScriptImport_BadRef(t *testing.T) {
	cfg := writeConfig(t, "")
	if _, err := runCmd(t, "script", "import", "just-a-name", "-c", cfg); err == nil {
		t.Error("bad reference should fail")
	}
}

func TestBadConfig(t *testing.T) {
	cfg := writeConfig(t, "schedules:\n  - script: \"1\"\n    cron: nonsense\n")
	if _, err := runCmd(t, "script", "list", "-c", cfg); err == nil {
		t.Error("invalid config should fail")
	}
}
