package check

import (
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
)

// operators maps the inline form of an assertion to its mode. Longer
// operators come first so ">=" is not read as ">".
var operators = []struct{ op, mode string }{
	{">=", GreaterThanOrEqual},
	{"<=", LessThanOrEqual},
	{"!=", NotEquals},
	{"==", Equals},
	{"~=", Approximately},
	{" not_contains ", NotContains},
	{" contains ", Contains},
	{" in ", Range},
	{">", GreaterThan},
	{"<", LessThan},
	{"=", Equals},
}

// Parse reads an inline assertion such as "character.hp >= 50",
// "damage ~= 30" or "hp in [1, 10]". A bare path means not_null.
func Parse(expr string) (Assertion, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Assertion{}, errs.Malformed("assertion", expr)
	}
	for _, o := range operators {
		target, expected, ok := strings.Cut(expr, o.op)
		if !ok {
			continue
		}
		target, expected = strings.TrimSpace(target), strings.TrimSpace(expected)
		if target == "" || expected == "" {
			return Assertion{}, errs.Malformed("assertion", expr)
		}
		return Assertion{
			Type:     o.mode,
			Target:   target,
			Expected: Literal(strings.Trim(expected, `"'`)),
		}, nil
	}
	if strings.ContainsAny(expr, " \t") {
		return Assertion{}, errs.Malformed("assertion", expr)
	}
	return Assertion{Type: NotNull, Target: expr}, nil
}
