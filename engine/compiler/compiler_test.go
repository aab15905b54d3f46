package compiler

import (
	"testing"
)

func TestCompile(t *testing.T) {
	s, err := Compile("245@@a\t100@@a", "245@@aTitle or 100@@a")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(s.Fields) != 2 {
		t.Errorf("fields = %d, want 2", len(s.Fields))
	}
	if len(s.Conditions) != 2 {
		t.Errorf("conditions = %d, want 2", len(s.Conditions))
	}
	if s.Combo == nil {
		t.Errorf("combo is nil with conditions present")
	}
	if s.ComboText != "{} or {}" {
		t.Errorf("combo text = %q", s.ComboText)
	}
}

func TestCompileNoCondition(t *testing.T) {
	s, err := Compile("245@@a", "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(s.Conditions) != 0 || s.Combo != nil {
		t.Errorf("empty condition produced %d conditions, combo %v", len(s.Conditions), s.Combo)
	}
}

// Compilation is all-or-nothing: a failure in either half yields no scheme.
func TestCompileAtomic(t *testing.T) {
	if s, err := Compile("", "245@@aTitle"); err == nil || s != nil {
		t.Errorf("bad fields: got (%v, %v)", s, err)
	}
	if s, err := Compile("245@@a", "245@@a["); err == nil || s != nil {
		t.Errorf("bad condition: got (%v, %v)", s, err)
	}
	if s, err := Compile("245@@a", "245@@aX and"); err == nil || s != nil {
		t.Errorf("bad combo: got (%v, %v)", s, err)
	}
}
