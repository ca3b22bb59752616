package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fishls/internal/config"
	"fishls/internal/diag"
	"fishls/internal/source"
)

// execute runs rootCmd with fresh flag values, since cobra keeps parsed
// values between Execute calls.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(append([]string{"--color", "off", "--quiet"}, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFish(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiagReportsErrors(t *testing.T) {
	dir := t.TempDir()
	writeFish(t, dir, "conf.d/broken.fish", "echo hi\nend\n")

	out, err := execute(t, "diag", "--format", "json", dir)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("err = %v, want errDiagnostics", err)
	}
	var report struct {
		Count  int `json:"count"`
		Errors int `json:"errors"`
		Files  []struct {
			Diagnostics []struct {
				Code int `json:"code"`
			} `json:"diagnostics"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if report.Errors == 0 || len(report.Files) != 1 {
		t.Fatalf("report = %+v", report)
	}
	found := false
	for _, d := range report.Files[0].Diagnostics {
		found = found || d.Code == int(diag.ExtraEnd)
	}
	if !found {
		t.Errorf("extra end not reported:\n%s", out)
	}
}

func TestDiagCleanFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFish(t, dir, "clean.fish", "set -l greeting hi\necho $greeting\n")

	if _, err := execute(t, "diag", "--format", "short", path); err != nil {
		t.Fatalf("diag on clean file: %v", err)
	}
}

func TestDiagNoFishFiles(t *testing.T) {
	_, err := execute(t, "diag", "--format", "short", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no fish files") {
		t.Fatalf("err = %v", err)
	}
}

func TestDiagRejectsConflictingFlags(t *testing.T) {
	dir := t.TempDir()
	writeFish(t, dir, "a.fish", "echo a\n")
	_, err := execute(t, "diag", "--no-warnings", "--warnings-as-errors", dir)
	if err == nil || !strings.Contains(err.Error(), "cannot be used together") {
		t.Fatalf("err = %v", err)
	}
}

func TestDiagDiskCache(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	dir := t.TempDir()
	writeFish(t, dir, "conf.d/aliases.fish", "alias ll 'ls -l'\n")

	first, err := execute(t, "diag", "--format", "json", "--disk-cache", dir)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	entries, err := filepath.Glob(filepath.Join(cacheHome, "fishls", "diags", "*", "*.mp.zst"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("cache entries = %v (err %v)", entries, err)
	}
	second, err := execute(t, "diag", "--format", "json", "--disk-cache", dir)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != second {
		t.Fatalf("cached output differs:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(second, `"code": 2002`) {
		t.Errorf("alias warning missing:\n%s", second)
	}
}

func TestCodesJSON(t *testing.T) {
	out, err := execute(t, "codes", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var list []codeJSON
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(list) != len(diag.AllCodes()) {
		t.Fatalf("codes = %d, want %d", len(list), len(diag.AllCodes()))
	}
	for _, c := range list {
		if c.Code == int(diag.UsedAlias) && c.Severity != "warning" {
			t.Errorf("2002 severity = %q", c.Severity)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Tool != "fishls" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestSymbolsQuery(t *testing.T) {
	dir := t.TempDir()
	writeFish(t, dir, "functions/greet.fish", "function greet\n  echo hi\nend\n")

	out, err := execute(t, "symbols", "--root", dir, "--format", "json", "gre")
	if err != nil {
		t.Fatal(err)
	}
	var found []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(found) == 0 || found[0].Name != "greet" {
		t.Fatalf("symbols = %+v", found)
	}
}

func TestSymbolsOutline(t *testing.T) {
	dir := t.TempDir()
	path := writeFish(t, dir, "outline.fish", "function outer\n  set -l inner 1\nend\n")

	out, err := execute(t, "symbols", "--document", path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 || !strings.Contains(lines[0], "outer") || !strings.HasPrefix(lines[1], "  ") {
		t.Fatalf("outline:\n%s", out)
	}
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	good := writeFish(t, dir, "good.fish", "echo hi\n")
	bad := writeFish(t, dir, "bad.fish", "echo 'unterminated\n")

	out, err := execute(t, "parse", good)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "(program") {
		t.Errorf("tree = %q", out)
	}
	if _, err := execute(t, "parse", bad); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := execute(t, "parse", "--parser", "awk", good); err == nil {
		t.Error("expected unknown parser error")
	}
}

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{"AUTO", uiModeAuto, false},
		{" on ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("readUIMode(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if shouldUseTUI(uiModeAuto, true) {
		t.Error("quiet runs must not start the TUI")
	}
	if !shouldUseTUI(uiModeOn, true) {
		t.Error("--ui on forces the TUI")
	}
}

func TestFilterSeverity(t *testing.T) {
	r := source.Range{}
	diags := []diag.Diagnostic{
		diag.NewAt(diag.ExtraEnd, r, ""),
		diag.NewAt(diag.UsedAlias, r, ""),
	}

	if got := filterSeverity(diags, diagOptions{}); len(got) != 2 {
		t.Fatalf("unfiltered = %d", len(got))
	}
	got := filterSeverity(diags, diagOptions{noWarnings: true})
	if len(got) != 1 || got[0].Code != diag.ExtraEnd {
		t.Fatalf("no-warnings = %+v", got)
	}
	got = filterSeverity(diags, diagOptions{warningsAsErrors: true})
	if len(got) != 2 || got[1].Severity != diag.SevError {
		t.Fatalf("warnings-as-errors = %+v", got)
	}
	if diags[1].Severity != diag.SevWarning {
		t.Fatal("input slice modified")
	}
}

func TestConfigFingerprint(t *testing.T) {
	a := config.Default()
	b := config.Default()
	if configFingerprint(a) != configFingerprint(b) {
		t.Fatal("equal configs must share a fingerprint")
	}
	b.Diagnostics.StrictConditional = !b.Diagnostics.StrictConditional
	if configFingerprint(a) == configFingerprint(b) {
		t.Fatal("strict conditional must change the fingerprint")
	}
}

func TestStartDirFor(t *testing.T) {
	dir := t.TempDir()
	path := writeFish(t, dir, "x.fish", "echo\n")
	if got := startDirFor(path); got != dir {
		t.Errorf("startDirFor(file) = %q, want %q", got, dir)
	}
	if got := startDirFor(dir); got != dir {
		t.Errorf("startDirFor(dir) = %q, want %q", got, dir)
	}
}

func TestFormatForPath(t *testing.T) {
	if formatForPath("trace.ndjson") != "ndjson" || formatForPath("trace.json") != "ndjson" {
		t.Error("json suffixes must select ndjson")
	}
	if formatForPath("trace.log") != "text" {
		t.Error("default format must be text")
	}
}
