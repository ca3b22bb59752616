package diag

import (
	"testing"

	"fishls/internal/source"
	"fishls/internal/syntax"
)

func TestRegistryCodes(t *testing.T) {
	codes := AllCodes()
	if len(codes) != 19 {
		t.Fatalf("expected 19 registered codes, got %d", len(codes))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
	for _, c := range codes {
		if c.Title() == "" || c.Href() == "" || c.Name() == "" {
			t.Errorf("code %d incomplete: %q %q %q", c, c.Name(), c.Title(), c.Href())
		}
	}
}

func TestParseCode(t *testing.T) {
	if c, ok := ParseCode("2002"); !ok || c != UsedAlias {
		t.Fatalf("ParseCode(2002) = %d, %v", c, ok)
	}
	if _, ok := ParseCode("1234"); ok {
		t.Fatalf("1234 should not be valid")
	}
	if _, ok := ParseCode("abc"); ok {
		t.Fatalf("abc should not be valid")
	}
	if UnknownCode.IsValid() {
		t.Fatalf("unknown code must be invalid")
	}
}

func TestNewDiagnosticMessage(t *testing.T) {
	tree := syntax.Parse("alias ll 'ls -l'")
	cmd := syntax.Statements(tree.Root)[0]
	d := New(UsedAlias, cmd, "")
	if d.Message != "alias used, prefer using functions instead" {
		t.Fatalf("message = %q", d.Message)
	}
	if d.Severity != SevWarning || d.Source != Source {
		t.Fatalf("unexpected severity/source %v %q", d.Severity, d.Source)
	}
	withDetail := New(UsedAlias, cmd, "ll")
	if withDetail.Message != "alias used, prefer using functions instead | ll" {
		t.Fatalf("detail message = %q", withDetail.Message)
	}
	if d.Range.End.Character != 16 {
		t.Fatalf("range = %v", d.Range)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	at := func(line int) source.Range {
		return source.Range{Start: source.Position{Line: line}, End: source.Position{Line: line, Character: 1}}
	}
	b := NewBag(3)
	b.Add(NewAt(UsedAlias, at(2), ""))
	b.Add(NewAt(ExtraEnd, at(1), ""))
	b.Add(NewAt(ExtraEnd, at(1), ""))
	if b.Add(NewAt(SyntaxError, at(0), "")) {
		t.Fatalf("bag should be full")
	}
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 || items[0].Code != ExtraEnd || items[1].Code != UsedAlias {
		t.Fatalf("unexpected items %+v", items)
	}
	if !b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("severity helpers wrong")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	d := NewAt(ZeroIndexedArray, source.Range{}, "")
	r.Report(d)
	r.Report(d)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
}

func TestFormatShort(t *testing.T) {
	diags := []Diagnostic{
		NewAt(ExtraEnd, source.Range{Start: source.Position{Line: 1, Character: 0}}, ""),
		NewAt(UsedAlias, source.Range{Start: source.Position{Line: 3, Character: 2}}, "first\nsecond"),
	}
	want := "error 1002 a/b.fish:2:1 extra closing token\n" +
		"warning 2002 a/b.fish:4:3 alias used, prefer using functions instead | first second"
	if got := FormatShort("a/b.fish", diags); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}
