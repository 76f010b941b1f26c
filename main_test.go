package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Garcia6l20/amake-go/internal/config"
	"github.com/Garcia6l20/amake-go/internal/console"
	"github.com/Garcia6l20/amake-go/internal/diag"
)

func testLog() (*console.Channel, *bytes.Buffer) {
	var buf bytes.Buffer
	return console.NewChannel(&buf, console.NewColors(false), console.LevelInfo), &buf
}

func stubSettings(t *testing.T, script string) *config.Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	s := config.MergeWithDefaults(&config.Settings{Tool: []string{"/bin/sh", path}})
	return &s
}

func TestToolVerb(t *testing.T) {
	if got := toolVerb("build"); got != "code" {
		t.Errorf("build maps to %q, want code", got)
	}
	for _, verb := range []string{"configure", "run", "test", "clean", "scan-toolchains"} {
		if got := toolVerb(verb); got != verb {
			t.Errorf("%s maps to %q, want itself", verb, got)
		}
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	log, buf := testLog()
	settings := config.MergeWithDefaults(nil)

	code := dispatch(context.Background(), log, console.NewColors(false), &settings, "frobnicate", nil)
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(buf.String(), "unknown command") {
		t.Errorf("missing error output: %s", buf.String())
	}
}

func TestRunToolSuccessExitCode(t *testing.T) {
	log, _ := testLog()
	settings := stubSettings(t, `exit 0`)

	code := runTool(context.Background(), log, console.NewColors(false), settings, "build", nil)
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestRunToolFailurePropagatesExitCode(t *testing.T) {
	log, _ := testLog()
	settings := stubSettings(t, `exit 7`)

	code := runTool(context.Background(), log, console.NewColors(false), settings, "build", nil)
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
}

func TestRunToolReportsDiagnostics(t *testing.T) {
	log, buf := testLog()
	settings := stubSettings(t, `
echo 'DIAGNOSTICS: {"/src/a.cpp": [{"message":"missing semicolon","severity":0}]}'
exit 1
`)

	code := runTool(context.Background(), log, console.NewColors(false), settings, "build", nil)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "/src/a.cpp: missing semicolon") {
		t.Errorf("diagnostics not surfaced: %s", buf.String())
	}
}

func TestRunListingTargets(t *testing.T) {
	log, buf := testLog()
	settings := stubSettings(t, `
case "$1" in
get-targets) printf '[{"name":"app","type":"executable"}]' ;;
*) exit 2 ;;
esac
`)

	code := runListing(context.Background(), log, settings, "targets")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(buf.String(), "app (executable)") {
		t.Errorf("listing output = %s", buf.String())
	}
}

func TestRunListingFailure(t *testing.T) {
	log, buf := testLog()
	settings := stubSettings(t, `echo 'no project here' >&2; exit 2`)

	code := runListing(context.Background(), log, settings, "toolchains")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "no project here") {
		t.Errorf("stderr not surfaced: %s", buf.String())
	}
}

func TestReportDiagnosticsSeverityRouting(t *testing.T) {
	log, buf := testLog()

	coll := diag.NewMemoryCollection()
	coll.Set("/a.cpp", []diag.Entry{
		{Severity: diag.SeverityError, Message: "bad"},
		{Severity: diag.SeverityWarning, Message: "iffy"},
		{Severity: diag.SeverityHint, Message: "style"},
	})

	reportDiagnostics(log, coll)

	out := buf.String()
	for _, want := range []string{"[ERROR", "[WARNING", "[INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s line in %s", want, out)
		}
	}
}

func TestSummarizeTests(t *testing.T) {
	log, buf := testLog()

	path := filepath.Join(t.TempDir(), "report.xml")
	xml := `<?xml version="1.0"?>
<testsuite name="t" tests="1"><testcase name="x" time="0.001"/></testsuite>`
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		t.Fatal(err)
	}

	summarizeTests(log, path)
	if !strings.Contains(buf.String(), "1 tests, 1 passed") {
		t.Errorf("summary missing: %s", buf.String())
	}
}
