package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"fishls/internal/diag"
	"fishls/internal/source"
)

func sampleFile() File {
	doc := source.NewDocument("file:///home/user/project/conf.d/greet.fish", "set -l x 1\nalias ll 'ls -l'\necho \"é\" ; end\n", 0)
	return File{
		Path: "/home/user/project/conf.d/greet.fish",
		Doc:  doc,
		Diagnostics: []diag.Diagnostic{
			diag.NewAt(diag.UsedAlias, source.Range{
				Start: source.Position{Line: 1, Character: 0},
				End:   source.Position{Line: 1, Character: 16},
			}, ""),
			// "end" starts after a two-byte character
			diag.NewAt(diag.ExtraEnd, source.Range{
				Start: source.Position{Line: 2, Character: 12},
				End:   source.Position{Line: 2, Character: 15},
			}, ""),
		},
	}
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name string
		mode PathMode
		base string
		want string
	}{
		{"absolute", PathModeAbsolute, "", "/home/user/project/conf.d/greet.fish"},
		{"relative", PathModeRelative, "/home/user/project", "conf.d/greet.fish"},
		{"basename", PathModeBasename, "", "greet.fish"},
		{"auto inside base", PathModeAuto, "/home/user/project", "conf.d/greet.fish"},
		{"auto outside base", PathModeAuto, "/srv", "/home/user/project/conf.d/greet.fish"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := displayPath("/home/user/project/conf.d/greet.fish", tt.mode, tt.base)
			if got != tt.want {
				t.Fatalf("displayPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrettyPlain(t *testing.T) {
	var buf bytes.Buffer
	clean := File{Path: "/home/user/project/clean.fish"}
	Pretty(&buf, []File{clean, sampleFile()}, PrettyOpts{PathMode: PathModeBasename})
	out := buf.String()

	if strings.Contains(out, "clean.fish") {
		t.Errorf("clean files must be skipped:\n%s", out)
	}
	for _, want := range []string{
		"== greet.fish ==",
		"greet.fish:2:1: warning[2002] alias used, prefer using functions instead",
		"2 | alias ll 'ls -l'",
		"  | ^~~~~~~~~~~~~~~~",
		"greet.fish:3:12: error[1002]",
		"  |            ^~~",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain output contains escape codes:\n%s", out)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, []File{sampleFile()}, PrettyOpts{Color: true, PathMode: PathModeBasename})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected escape codes:\n%s", buf.String())
	}
}

func TestPrettyContextLines(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, []File{sampleFile()}, PrettyOpts{PathMode: PathModeBasename, Context: 1})
	if !strings.Contains(buf.String(), "1 | set -l x 1") {
		t.Fatalf("missing context line:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	Short(&buf, []File{sampleFile()}, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "warning 2002 greet.fish:2:1 ") {
		t.Errorf("line 0 = %q", lines[0])
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	clean := File{Path: "/home/user/project/clean.fish"}
	if err := JSON(&buf, []File{sampleFile(), clean}, JSONOpts{PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || out.Errors != 1 || len(out.Files) != 2 {
		t.Fatalf("count=%d errors=%d files=%d", out.Count, out.Errors, len(out.Files))
	}
	if out.Files[1].Diagnostics == nil {
		t.Error("clean file must have an empty list, not null")
	}
	d := out.Files[0].Diagnostics[1]
	if d.Code != 1002 || d.Name != "extraEnd" || d.Severity != "ERROR" {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Location.StartLine != 3 || d.Location.StartCol != 12 || d.Location.EndCol != 15 {
		t.Errorf("location = %+v", d.Location)
	}
	if d.Href == "" {
		t.Error("href missing")
	}
}

func TestJSONMax(t *testing.T) {
	out := BuildDiagnosticsOutput([]File{sampleFile()}, JSONOpts{Max: 1})
	if !out.Files[0].Truncated || len(out.Files[0].Diagnostics) != 1 {
		t.Fatalf("files = %+v", out.Files)
	}
}

func TestSarif(t *testing.T) {
	var buf bytes.Buffer
	meta := SarifRunMeta{ToolName: "fishls", ToolVersion: "0.1.0", InvocationArgs: []string{"diag", "."}}
	if err := Sarif(&buf, []File{sampleFile()}, meta); err != nil {
		t.Fatal(err)
	}
	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Invocations []struct {
				ExecutionSuccessful bool `json:"executionSuccessful"`
			} `json:"invocations"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				RuleIndex int    `json:"ruleIndex"`
				Level     string `json:"level"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	if len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "1002" {
		t.Errorf("rules = %+v", run.Tool.Driver.Rules)
	}
	if len(run.Results) != 2 || run.Results[0].Level != "warning" || run.Results[0].RuleIndex != 1 {
		t.Errorf("results = %+v", run.Results)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Errorf("invocations = %+v", run.Invocations)
	}
}

func TestColumnCountsCharacters(t *testing.T) {
	doc := source.NewDocument("file:///x.fish", "echo \"é\" ; end\n", 0)
	if got := column(doc, source.Position{Line: 0, Character: 12}); got != 12 {
		t.Fatalf("column = %d, want 12", got)
	}
	if got := column(nil, source.Position{Character: 12}); got != 13 {
		t.Fatalf("column without doc = %d, want 13", got)
	}
}
