package compiler

import (
	"testing"
)

func TestCompileConditionEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\r\n"} {
		conds, combo, skeleton, err := CompileCondition(text)
		if err != nil {
			t.Fatalf("CompileCondition(%q): %v", text, err)
		}
		if conds != nil || combo != nil || skeleton != "" {
			t.Errorf("CompileCondition(%q) = (%v, %v, %q), want all empty", text, conds, combo, skeleton)
		}
	}
}

func TestCompileConditionSingle(t *testing.T) {
	conds, combo, skeleton, err := CompileCondition("245@@aTitle")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	if len(conds) != 1 {
		t.Fatalf("got %d conditions, want 1", len(conds))
	}
	if conds[0].Label != "245@@a" {
		t.Errorf("label = %q, want %q", conds[0].Label, "245@@a")
	}
	if conds[0].Regex == nil || conds[0].Regex.String() != "Title" {
		t.Errorf("regex = %v, want Title", conds[0].Regex)
	}
	if skeleton != "{}" {
		t.Errorf("skeleton = %q, want {}", skeleton)
	}
	if combo == nil || !combo.Eval([]bool{true}) || combo.Eval([]bool{false}) {
		t.Errorf("combo does not mirror its single placeholder")
	}
}

func TestCompileConditionPresenceOnly(t *testing.T) {
	conds, _, _, err := CompileCondition("100@@a")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	if conds[0].Regex != nil {
		t.Errorf("presence-only condition got regex %v", conds[0].Regex)
	}
}

func TestCompileConditionIndicatorSentinel(t *testing.T) {
	conds, _, _, err := CompileCondition("245#@a")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	if conds[0].Label != "245 @a" {
		t.Errorf("label = %q, want %q", conds[0].Label, "245 @a")
	}
}

func TestCompileConditionEscapes(t *testing.T) {
	conds, _, _, err := CompileCondition(`245@@aNew\ York`)
	if err != nil {
		t.Fatalf("escaped space: %v", err)
	}
	if got := conds[0].Regex.String(); got != "New York" {
		t.Errorf("regex = %q, want %q", got, "New York")
	}

	conds, _, _, err = CompileCondition(`245@@a(Title\)`)
	if err != nil {
		t.Fatalf("escaped paren: %v", err)
	}
	if got := conds[0].Regex.String(); got != "(Title)" {
		t.Errorf("regex = %q, want %q", got, "(Title)")
	}
	if !conds[0].Regex.MatchString("A Title here") {
		t.Errorf("restored regex does not match")
	}
}

func TestCompileConditionCombo(t *testing.T) {
	conds, combo, skeleton, err := CompileCondition("245@@aX and not 100@@aY")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("got %d conditions, want 2", len(conds))
	}
	if skeleton != "{} and not {}" {
		t.Errorf("skeleton = %q", skeleton)
	}
	if !combo.Eval([]bool{true, false}) {
		t.Errorf("Eval(true, false) = false, want true")
	}
	if combo.Eval([]bool{true, true}) {
		t.Errorf("Eval(true, true) = true, want false")
	}
}

func TestCompileConditionUpperCaseConnectives(t *testing.T) {
	_, combo, skeleton, err := CompileCondition("245@@aX OR 100@@aY")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	if skeleton != "{} or {}" {
		t.Errorf("skeleton = %q", skeleton)
	}
	if !combo.Eval([]bool{false, true}) {
		t.Errorf("or combo false")
	}
}

func TestCompileConditionErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"bad regex", "245@@a["},
		{"adjacent tokens", "245@@aX 100@@aY"},
		{"dangling connective", "245@@aX and"},
		{"literal placeholder", "245@@aX {}"},
		{"unbalanced paren", "(245@@aX"},
		{"stray close paren", "245@@aX)"},
	}
	for _, c := range cases {
		if _, _, _, err := CompileCondition(c.text); err == nil {
			t.Errorf("%s: CompileCondition(%q) succeeded, want error", c.name, c.text)
		}
	}
}
