package battle

import (
	"context"
	"testing"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func learnAll(tc *testctx.Context, ch *entity.Character, defs ...entity.SkillDef) {
	for _, def := range defs {
		tc.SetSkill(def.ID, &def)
		ch.Learn(def)
	}
}

func TestDecideWithoutStrategy(t *testing.T) {
	tc, ch, m := newScene()
	learnAll(tc, ch,
		entity.SkillDef{ID: "b_strike", Kind: entity.SkillDamage, DamageMultiplier: 1},
		entity.SkillDef{ID: "a_strike", Kind: entity.SkillDamage, DamageMultiplier: 1},
	)

	d, err := NewEngine(Config{}).Decide(context.Background(), tc, "")
	require.NoError(t, err)
	require.NotNil(t, d.Action.Skill)
	assert.Equal(t, "a_strike", d.Action.Skill.ID)
	assert.Equal(t, "ready", d.Rule)
	assert.Equal(t, m.Key(), d.Action.Targets[0].Key())
}

func TestDecideSkillPriority(t *testing.T) {
	tc, ch, _ := newScene()
	learnAll(tc, ch,
		entity.SkillDef{ID: "a_strike", Kind: entity.SkillDamage, DamageMultiplier: 1},
		entity.SkillDef{ID: "z_strike", Kind: entity.SkillDamage, DamageMultiplier: 1},
	)
	tc.EnsureStrategy(ch.Alias).SkillPriority = []string{"missing", "z_strike"}

	d, err := NewEngine(Config{}).Decide(context.Background(), tc, "")
	require.NoError(t, err)
	require.NotNil(t, d.Action.Skill)
	assert.Equal(t, "z_strike", d.Action.Skill.ID)
	assert.Equal(t, "priority", d.Rule)
}

func TestDecideStrategyRules(t *testing.T) {
	tc, ch, m := newScene()
	ch.Resource = 50
	learnAll(tc, ch,
		entity.SkillDef{ID: "heal", Kind: entity.SkillHeal, HealAmount: 30},
		entity.SkillDef{ID: "slam", Kind: entity.SkillDamage, Cost: 20, DamageMultiplier: 2},
	)
	tc.EnsureStrategy(ch.Alias).Rules = []entity.StrategyRule{
		{When: entity.Condition{Subject: entity.SubjectSelf, Metric: entity.MetricHPPercent, Op: "<", Value: 30}, SkillID: "heal"},
		{When: entity.Condition{Subject: entity.SubjectTarget, Metric: entity.MetricHPPercent, Op: "<=", Value: 50}},
		{When: entity.Condition{Subject: entity.SubjectSelf, Metric: entity.MetricResource, Op: ">=", Value: 20}, SkillID: "slam"},
	}
	e := NewEngine(Config{})
	ctx := context.Background()

	d, err := e.Decide(ctx, tc, "")
	require.NoError(t, err)
	require.NotNil(t, d.Action.Skill)
	assert.Equal(t, "slam", d.Action.Skill.ID)
	assert.Equal(t, "rule:self.resource>=20", d.Rule)

	ch.HP = ch.MaxHPValue() / 5
	d, err = e.Decide(ctx, tc, "")
	require.NoError(t, err)
	require.NotNil(t, d.Action.Skill)
	assert.Equal(t, "heal", d.Action.Skill.ID)

	ch.HP = ch.MaxHPValue()
	m.HP = m.MaxHP / 2
	d, err = e.Decide(ctx, tc, "")
	require.NoError(t, err)
	assert.Nil(t, d.Action.Skill)
	assert.Equal(t, "rule:target.hp_percent<=50", d.Rule)
}

func TestDecideSkipsUnusableRuleSkill(t *testing.T) {
	tc, ch, _ := newScene()
	learnAll(tc, ch, entity.SkillDef{ID: "slam", Kind: entity.SkillDamage, Cost: 20, DamageMultiplier: 2})
	tc.EnsureStrategy(ch.Alias).Rules = []entity.StrategyRule{{SkillID: "slam"}}

	d, err := NewEngine(Config{}).Decide(context.Background(), tc, "")
	require.NoError(t, err)
	assert.Nil(t, d.Action.Skill)
	assert.Equal(t, "basic", d.Rule)
}

func TestStrategyDrivesRounds(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 10000, 10000
	learnAll(tc, ch, entity.SkillDef{ID: "slam", Kind: entity.SkillDamage, Cooldown: 3, DamageMultiplier: 1})
	tc.EnsureStrategy(ch.Alias).Rules = []entity.StrategyRule{
		{When: entity.Condition{Metric: entity.MetricRound, Op: "<", Value: 2}},
		{When: entity.Condition{Metric: entity.MetricRound, Op: ">=", Value: 2}, SkillID: "slam"},
	}

	require.NoError(t, newSkillEngine(t, 0).RunRounds(context.Background(), tc, 2))
	assert.Equal(t, 2, ch.Skills["slam"].LastUsedRound)
}
