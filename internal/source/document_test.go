package source

import (
	"testing"
)

func TestApplyIncrementalChange(t *testing.T) {
	doc := NewDocument("file:///tmp/a.fish", "echo one\necho two\necho three\n", 1)
	next, span, full := doc.Apply(2, []Change{{
		Range: &Range{Start: Position{Line: 1, Character: 5}, End: Position{Line: 1, Character: 8}},
		Text:  "2\nextra",
	}})
	if full {
		t.Fatalf("expected incremental change")
	}
	if want := "echo one\necho 2\nextra\necho three\n"; next.Text != want {
		t.Fatalf("text = %q, want %q", next.Text, want)
	}
	if span.Start != 1 || span.End != 2 {
		t.Fatalf("span = %+v, want 1..2", span)
	}
	if next.Version != 2 {
		t.Fatalf("version = %d", next.Version)
	}
}

func TestApplyFullReplace(t *testing.T) {
	doc := NewDocument("file:///tmp/a.fish", "old", 1)
	next, span, full := doc.Apply(2, []Change{{Text: "a\nb\n"}})
	if !full {
		t.Fatalf("expected full replace")
	}
	if next.Text != "a\nb\n" || span.Start != 0 || span.End != 2 {
		t.Fatalf("unexpected result %q %+v", next.Text, span)
	}
}

func TestUTF16Conversion(t *testing.T) {
	doc := NewDocument("file:///tmp/a.fish", "echo 😀 $x\n", 1)
	// "echo " is 5 bytes, the emoji is 4 bytes and 2 UTF-16 units.
	byteCol := Position{Line: 0, Character: 10}
	got := doc.ToUTF16(byteCol)
	if got.Character != 8 {
		t.Fatalf("ToUTF16 = %d, want 8", got.Character)
	}
	if back := doc.FromUTF16(got); back != byteCol {
		t.Fatalf("FromUTF16 = %+v, want %+v", back, byteCol)
	}
}

func TestOffsetAndPosition(t *testing.T) {
	doc := NewDocument("file:///tmp/a.fish", "ab\ncd", 0)
	if off := doc.Offset(Position{Line: 1, Character: 1}); off != 4 {
		t.Fatalf("Offset = %d, want 4", off)
	}
	if pos := doc.PositionAt(4); pos != (Position{Line: 1, Character: 1}) {
		t.Fatalf("PositionAt = %+v", pos)
	}
	if doc.LineCount() != 2 || doc.Line(1) != "cd" {
		t.Fatalf("lines = %d %q", doc.LineCount(), doc.Line(1))
	}
}

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		kind AutoloadKind
		name string
	}{
		{"/home/u/.config/fish/functions/foo.fish", AutoloadFunctions, "foo"},
		{"/home/u/.config/fish/conf.d/init.fish", AutoloadConfD, "init"},
		{"/home/u/.config/fish/config.fish", AutoloadConfig, "config"},
		{"/home/u/.config/fish/completions/git.fish", AutoloadCompletions, "git"},
		{"/tmp/script.fish", AutoloadNone, "script"},
	}
	for _, tt := range tests {
		got := ClassifyPath(tt.path)
		if got.Kind != tt.kind || got.Name != tt.name {
			t.Errorf("ClassifyPath(%q) = %+v, want %v %q", tt.path, got, tt.kind, tt.name)
		}
	}
	if !ClassifyPath("/x/conf.d/a.fish").DefinesGlobalFunctions() {
		t.Errorf("conf.d functions should be global")
	}
	if ClassifyPath("/x/script.fish").DefinesGlobalFunctions() {
		t.Errorf("plain script functions should not be global")
	}
}

func TestURIRoundTrip(t *testing.T) {
	path := "/tmp/fish files/a.fish"
	uri := PathToURI(path)
	if uri != "file:///tmp/fish%20files/a.fish" {
		t.Fatalf("PathToURI = %q", uri)
	}
	if got := URIToPath(uri); got != path {
		t.Fatalf("URIToPath = %q", got)
	}
	if URIToPath("untitled:Untitled-1") != "" {
		t.Fatalf("non-file scheme should not map to a path")
	}
}

func TestPathWithinRoot(t *testing.T) {
	if !PathWithinRoot("/a/b", "/a/b/c.fish") {
		t.Fatalf("expected path within root")
	}
	if PathWithinRoot("/a/b", "/a/bc/d.fish") {
		t.Fatalf("sibling prefix must not match")
	}
}

func TestLineSpanOverlaps(t *testing.T) {
	span := LineSpan{Start: 5, End: 6}
	if !span.Overlaps(7, 7, 1) {
		t.Fatalf("line 7 is within padding")
	}
	if span.Overlaps(8, 9, 1) {
		t.Fatalf("line 8 is outside padding")
	}
}

func TestStoreChange(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.fish", "echo", 1)
	doc, _, _, ok := s.Change("file:///a.fish", 2, []Change{{Text: "echo hi"}})
	if !ok || doc.Text != "echo hi" {
		t.Fatalf("change failed: %v %+v", ok, doc)
	}
	if _, _, _, ok := s.Change("file:///missing.fish", 1, nil); ok {
		t.Fatalf("unknown document should not change")
	}
	s.Close("file:///a.fish")
	if _, ok := s.Get("file:///a.fish"); ok {
		t.Fatalf("closed document still present")
	}
}
