// Package check evaluates assertions against the variables of a scenario.
package check

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Assertion modes.
const (
	Equals             = "equals"
	NotEquals          = "not_equals"
	GreaterThan        = "greater_than"
	GreaterThanOrEqual = "greater_than_or_equal"
	LessThan           = "less_than"
	LessThanOrEqual    = "less_than_or_equal"
	Approximately      = "approximately"
	Range              = "range"
	Contains           = "contains"
	NotContains        = "not_contains"
	NotNull            = "not_null"
)

// DefaultTolerance applies to approximately when no tolerance is given.
const DefaultTolerance = 0.01

// Literal is an expected value as written in a suite. A yaml flow
// sequence such as [1, 10] is kept in its "[1, 10]" form.
type Literal string

func (l *Literal) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		parts := lo.Map(n.Content, func(c *yaml.Node, _ int) string { return c.Value })
		*l = Literal("[" + strings.Join(parts, ", ") + "]")
		return nil
	}
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected value must be a scalar or a list", n.Line)
	}
	*l = Literal(n.Value)
	return nil
}

// Assertion compares the value at Target with Expected.
type Assertion struct {
	Type      string  `yaml:"type" json:"type"`
	Target    string  `yaml:"target" json:"target"`
	Expected  Literal `yaml:"expected" json:"expected"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance,omitempty"`
	Message   string  `yaml:"message" json:"message,omitempty"`
}

// Result is the outcome of one assertion.
type Result struct {
	Assertion Assertion `json:"assertion"`
	Actual    any       `json:"actual"`
	Passed    bool      `json:"passed"`
	Error     string    `json:"error,omitempty"`
}

// Evaluate runs a against vars. A failed comparison returns an
// *errs.MismatchError; a bad mode or expected value returns a
// MalformedOperandError.
func Evaluate(vars map[string]any, a Assertion) (Result, error) {
	mode := lo.CoalesceOrEmpty(strings.TrimSpace(a.Type), Equals)
	expected := strings.TrimSpace(string(a.Expected))
	res := Result{Assertion: a}

	actual, lookupErr := Resolve(vars, a.Target)
	res.Actual = actual

	ok, err := compare(vars, mode, actual, lookupErr == nil, expected, a.Tolerance)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	if ok {
		res.Passed = true
		return res, nil
	}

	mis := &errs.MismatchError{
		Path:     a.Target,
		Mode:     mode,
		Expected: expected,
		Actual:   actual,
		Message:  a.Message,
	}
	if lookupErr != nil && mis.Message == "" {
		mis.Message = lookupErr.Error()
	}
	res.Error = mis.Error()
	return res, mis
}

func compare(vars map[string]any, mode string, actual any, found bool, expected string, tol float64) (bool, error) {
	switch mode {
	case NotNull:
		return found && !isEmpty(actual), nil
	case Equals:
		if expected == "null" || expected == "nil" {
			return !found || isEmpty(actual) || fmt.Sprint(actual) == "0", nil
		}
		return found && equal(actual, expectedValue(vars, expected)), nil
	case NotEquals:
		return !found || !equal(actual, expectedValue(vars, expected)), nil
	case Contains:
		if !found {
			return false, nil
		}
		s := fmt.Sprint(actual)
		return lo.SomeBy(strings.Split(expected, "_or_"), func(part string) bool {
			return strings.Contains(s, part)
		}), nil
	case NotContains:
		return !found || !strings.Contains(fmt.Sprint(actual), expected), nil
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Approximately:
		want, err := number(expectedValue(vars, expected))
		if err != nil {
			return false, errs.Malformed("expected", expected)
		}
		if !found {
			return false, nil
		}
		got, err := number(actual)
		if err != nil {
			return false, nil
		}
		switch mode {
		case GreaterThan:
			return got > want, nil
		case GreaterThanOrEqual:
			return got >= want, nil
		case LessThan:
			return got < want, nil
		case LessThanOrEqual:
			return got <= want, nil
		}
		if tol <= 0 {
			tol = DefaultTolerance
		}
		return math.Abs(got-want) <= tol, nil
	case Range:
		lower, upper, err := parseRange(vars, expected)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		got, err := number(actual)
		if err != nil {
			return false, nil
		}
		return got >= lower && got <= upper, nil
	}
	return false, errs.Malformed("type", mode)
}

// expectedValue resolves expected as a variable path when it names one.
func expectedValue(vars map[string]any, expected string) any {
	if isPath(vars, expected) {
		v, _ := Resolve(vars, expected)
		return v
	}
	return expected
}

// equal compares numerically when both sides are numbers and textually
// otherwise.
func equal(actual, expected any) bool {
	a, errA := number(actual)
	b, errB := number(expected)
	if errA == nil && errB == nil {
		return math.Abs(a-b) <= 1e-9
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

var errNotNumber = errors.New("not a number")

func number(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, errNotNumber
}

func parseRange(vars map[string]any, expected string) (float64, float64, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(expected, "["), "]")
	low, high, ok := strings.Cut(body, ",")
	if !ok {
		return 0, 0, errs.Malformed("range", expected)
	}
	lower, err := number(expectedValue(vars, strings.TrimSpace(low)))
	if err != nil {
		return 0, 0, errs.Malformed("range", expected)
	}
	upper, err := number(expectedValue(vars, strings.TrimSpace(high)))
	if err != nil {
		return 0, 0, errs.Malformed("range", expected)
	}
	return lower, upper, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
