package calc

import "testing"

func TestEvalFormula_Arithmetic(t *testing.T) {
	a := &Stats{Atk: 30, Matk: 25, Level: 3}
	b := &Stats{Def: 10, Mdef: 6}

	v, err := EvalFormula("a.atk * 2 - b.def", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if v != 50 {
		t.Errorf("got %f, want 50", v)
	}

	v, err = EvalFormula("(a.matk - b.mdef / 2) * a.level", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if v != 66 {
		t.Errorf("got %f, want 66", v)
	}
}

func TestEvalFormula_Functions(t *testing.T) {
	a := &Stats{Atk: 10}
	b := &Stats{Def: 3}
	cases := map[string]float64{
		"floor(a.atk / b.def)":     3,
		"Math.ceil(a.atk / b.def)": 4,
		"max(a.atk, b.def, 12)":    12,
		"min(a.atk, b.def)":        3,
		"abs(b.def - a.atk)":       7,
		"-a.atk + round(2.5)":      -7,
	}
	for f, want := range cases {
		v, err := EvalFormula(f, a, b)
		if err != nil {
			t.Errorf("%s: %v", f, err)
			continue
		}
		if v != want {
			t.Errorf("%s: got %f, want %f", f, v, want)
		}
	}
}

func TestEvalFormula_Errors(t *testing.T) {
	a, b := &Stats{}, &Stats{}
	for _, f := range []string{"a.atk / 0", "a.luck", "foo(1)", "(1 + 2", "1 +", "a.atk ; b.def"} {
		if _, err := EvalFormula(f, a, b); err == nil {
			t.Errorf("%q: expected error", f)
		}
	}
}
