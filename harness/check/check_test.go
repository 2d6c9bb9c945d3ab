package check

import (
	"errors"
	"testing"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func vars() map[string]any {
	return map[string]any{
		"physical_attack":     20,
		"phys_crit_rate":      0.105,
		"battle_state":        "victory",
		"victory":             true,
		"error_message":       "等级不足",
		"empty":               "",
		"turn_order[0].alias": "monster_2",
		"turn_order[0].speed": 80,
		"turn_order[1].speed": 60,
		"drops":               []any{map[string]any{"slot": "main_hand"}, "ring"},
		"character":           map[string]any{"hp": 95, "stats": map[string]any{"speed": 12}},
		"character.id":        "abc",
		"saved_character_id":  "abc",
	}
}

func TestResolve(t *testing.T) {
	v := vars()
	cases := map[string]any{
		"physical_attack":       20,
		"turn_order[0].alias":   "monster_2",
		"drops[0].slot":         "main_hand",
		"drops[1]":              "ring",
		"character.hp":          95,
		"character.stats.speed": 12,
		"character.id":          "abc",
		"42":                    42,
		"1.5":                   1.5,
	}
	for path, want := range cases {
		got, err := Resolve(v, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := Resolve(v, "missing.field")
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
	_, err = Resolve(v, "drops[5]")
	assert.Error(t, err)
}

func TestEvaluateModes(t *testing.T) {
	v := vars()
	pass := []Assertion{
		{Type: Equals, Target: "physical_attack", Expected: "20"},
		{Type: Equals, Target: "physical_attack", Expected: "20.0"},
		{Type: Equals, Target: "battle_state", Expected: "victory"},
		{Type: Equals, Target: "victory", Expected: "true"},
		{Type: Equals, Target: "saved_character_id", Expected: "character.id"},
		{Type: Equals, Target: "empty", Expected: "null"},
		{Type: Equals, Target: "nowhere", Expected: "nil"},
		{Type: "", Target: "physical_attack", Expected: "20"},
		{Type: NotEquals, Target: "physical_attack", Expected: "21"},
		{Type: GreaterThan, Target: "turn_order[0].speed", Expected: "turn_order[1].speed"},
		{Type: GreaterThanOrEqual, Target: "physical_attack", Expected: "20"},
		{Type: LessThan, Target: "physical_attack", Expected: "21"},
		{Type: LessThanOrEqual, Target: "physical_attack", Expected: "20"},
		{Type: Approximately, Target: "phys_crit_rate", Expected: "0.1"},
		{Type: Approximately, Target: "phys_crit_rate", Expected: "0.2", Tolerance: 0.1},
		{Type: Range, Target: "physical_attack", Expected: "[10, 30]"},
		{Type: Contains, Target: "error_message", Expected: "职业_or_等级"},
		{Type: NotContains, Target: "error_message", Expected: "金币"},
		{Type: NotNull, Target: "battle_state"},
	}
	for _, a := range pass {
		res, err := Evaluate(v, a)
		assert.NoError(t, err, "%+v", a)
		assert.True(t, res.Passed, "%+v", a)
	}
}

func TestEvaluateMismatch(t *testing.T) {
	v := vars()
	fail := []Assertion{
		{Type: Equals, Target: "physical_attack", Expected: "25", Message: "attack"},
		{Type: Approximately, Target: "phys_crit_rate", Expected: "0.2"},
		{Type: Range, Target: "physical_attack", Expected: "[21, 30]"},
		{Type: Contains, Target: "error_message", Expected: "职业"},
		{Type: NotNull, Target: "empty"},
		{Type: NotNull, Target: "nowhere"},
		{Type: GreaterThan, Target: "nowhere", Expected: "1"},
	}
	for _, a := range fail {
		res, err := Evaluate(v, a)
		require.Error(t, err, "%+v", a)
		assert.False(t, res.Passed)
		assert.True(t, errors.Is(err, errs.ErrAssertionMismatch), "%+v", a)
	}

	_, err := Evaluate(v, Assertion{Type: Equals, Target: "physical_attack", Expected: "25", Message: "attack"})
	var mis *errs.MismatchError
	require.True(t, errors.As(err, &mis))
	assert.Equal(t, 20, mis.Actual)
	assert.Equal(t, "25", mis.Expected)
	assert.Contains(t, mis.Error(), "attack")
}

func TestEvaluateMalformed(t *testing.T) {
	v := vars()
	_, err := Evaluate(v, Assertion{Type: "roughly", Target: "physical_attack", Expected: "1"})
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))

	_, err = Evaluate(v, Assertion{Type: Range, Target: "physical_attack", Expected: "10-30"})
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))

	_, err = Evaluate(v, Assertion{Type: GreaterThan, Target: "physical_attack", Expected: "lots"})
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))
}

func TestParse(t *testing.T) {
	cases := map[string]Assertion{
		"character.hp >= 50":   {Type: GreaterThanOrEqual, Target: "character.hp", Expected: "50"},
		"damage ~= 30":         {Type: Approximately, Target: "damage", Expected: "30"},
		"state == 'victory'":   {Type: Equals, Target: "state", Expected: "victory"},
		"hp in [1, 10]":        {Type: Range, Target: "hp", Expected: "[1, 10]"},
		"msg contains 不足":      {Type: Contains, Target: "msg", Expected: "不足"},
		"skill_usable = true":  {Type: Equals, Target: "skill_usable", Expected: "true"},
		"turn_order[0].alias":  {Type: NotNull, Target: "turn_order[0].alias"},
		"enemy_alive_count<1":  {Type: LessThan, Target: "enemy_alive_count", Expected: "1"},
		"gold != 0":            {Type: NotEquals, Target: "gold", Expected: "0"},
		"msg not_contains 金币": {Type: NotContains, Target: "msg", Expected: "金币"},
	}
	for expr, want := range cases {
		got, err := Parse(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}

	_, err := Parse("hp is fine")
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))
	_, err = Parse(">= 3")
	assert.Error(t, err)
}

func TestLiteralFromYAML(t *testing.T) {
	var a Assertion
	require.NoError(t, yaml.Unmarshal([]byte("type: range\ntarget: hp\nexpected: [1, 10]\n"), &a))
	assert.Equal(t, Literal("[1, 10]"), a.Expected)

	require.NoError(t, yaml.Unmarshal([]byte("type: equals\ntarget: hp\nexpected: 20\n"), &a))
	assert.Equal(t, Literal("20"), a.Expected)
}
