package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Stats holds the values a skill formula can reference.
type Stats struct {
	HP, MaxHP               int
	Atk, Matk, Def, Mdef    int
	Str, Agi, Int, Sta, Spi int
	Speed, Level            int
}

// EvalFormula evaluates a skill damage formula such as "a.atk*1.5 - b.def".
// Variables: a.<field> for the user, b.<field> for the target, fields
// hp maxhp atk matk def mdef str agi int sta spi speed level.
// Operators: + - * / with parentheses.
// Functions: floor ceil round abs max min, optionally prefixed "Math.".
func EvalFormula(formula string, a, b *Stats) (float64, error) {
	p := &exprParser{input: formula, a: a, b: b}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipWS()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("formula: unexpected %q at %d", p.input[p.pos:], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
	a, b  *Stats
}

func (p *exprParser) skipWS() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// expr = term (('+' | '-') term)*
func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return v, nil
		}
		p.pos++
		r, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += r
		} else {
			v -= r
		}
	}
}

// term = factor (('*' | '/') factor)*
func (p *exprParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return v, nil
		}
		p.pos++
		r, err := p.factor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= r
			continue
		}
		if r == 0 {
			return 0, fmt.Errorf("formula: division by zero")
		}
		v /= r
	}
}

// factor = '(' expr ')' | '-' factor | number | a.field | b.field | func(args)
func (p *exprParser) factor() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("formula: expected ')' at %d", p.pos)
		}
		p.pos++
		return v, nil
	case ch == '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case ch == '.' || (ch >= '0' && ch <= '9'):
		return p.number()
	case ch == 0:
		return 0, fmt.Errorf("formula: unexpected end")
	}
	name := p.ident()
	if name == "" {
		return 0, fmt.Errorf("formula: unexpected %q at %d", ch, p.pos)
	}
	if (name == "a" || name == "b") && p.pos < len(p.input) && p.input[p.pos] == '.' {
		p.pos++
		field := p.ident()
		s := p.a
		if name == "b" {
			s = p.b
		}
		return statField(s, field)
	}
	if name == "Math" && p.pos < len(p.input) && p.input[p.pos] == '.' {
		p.pos++
		name = p.ident()
	}
	args, err := p.args()
	if err != nil {
		return 0, err
	}
	return applyFunc(name, args)
}

func (p *exprParser) ident() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && c != '_' && (p.pos == start || !unicode.IsDigit(c)) {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *exprParser) number() (float64, error) {
	p.skipWS()
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] == '.' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
		p.pos++
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *exprParser) args() ([]float64, error) {
	if p.peek() != '(' {
		return nil, fmt.Errorf("formula: expected '(' at %d", p.pos)
	}
	p.pos++
	var out []float64
	for {
		if p.peek() == ')' {
			p.pos++
			return out, nil
		}
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.peek() == ',' {
			p.pos++
		}
	}
}

func statField(s *Stats, field string) (float64, error) {
	if s == nil {
		return 0, fmt.Errorf("formula: no stats for %q", field)
	}
	switch strings.ToLower(field) {
	case "hp":
		return float64(s.HP), nil
	case "maxhp", "mhp":
		return float64(s.MaxHP), nil
	case "atk":
		return float64(s.Atk), nil
	case "matk", "mat":
		return float64(s.Matk), nil
	case "def":
		return float64(s.Def), nil
	case "mdef", "mdf":
		return float64(s.Mdef), nil
	case "str":
		return float64(s.Str), nil
	case "agi":
		return float64(s.Agi), nil
	case "int":
		return float64(s.Int), nil
	case "sta":
		return float64(s.Sta), nil
	case "spi":
		return float64(s.Spi), nil
	case "speed":
		return float64(s.Speed), nil
	case "level":
		return float64(s.Level), nil
	}
	return 0, fmt.Errorf("formula: unknown stat %q", field)
}

func applyFunc(name string, args []float64) (float64, error) {
	unary := func(f func(float64) float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("formula: %s expects 1 argument", name)
		}
		return f(args[0]), nil
	}
	switch name {
	case "floor":
		return unary(math.Floor)
	case "ceil":
		return unary(math.Ceil)
	case "round":
		return unary(math.Round)
	case "abs":
		return unary(math.Abs)
	case "max", "min":
		if len(args) == 0 {
			return 0, fmt.Errorf("formula: %s expects arguments", name)
		}
		v := args[0]
		for _, a := range args[1:] {
			if (name == "max") == (a > v) {
				v = a
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("formula: unknown function %q", name)
}
