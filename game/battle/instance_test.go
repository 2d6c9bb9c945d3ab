package battle

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/battlerunner/cache"
	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/item"
	"github.com/kasuganosora/battlerunner/game/skill"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHero(alias, class string) *entity.Character {
	ch := entity.NewCharacter(alias, class)
	calc.DefaultConfig().Refresh(ch)
	ch.HP = ch.MaxHPValue()
	return ch
}

// newScene builds a context with one warrior "character" and one default
// monster "monster".
func newScene() (*testctx.Context, *entity.Character, *entity.Monster) {
	tc := testctx.New(7)
	ch := newHero(testctx.PrimaryAlias, entity.ClassWarrior)
	tc.AddCharacter(ch)
	m := entity.NewMonster(testctx.DefaultMonster)
	tc.AddMonster(m)
	return tc, ch, m
}

func newSkillEngine(t *testing.T, maxRounds int) *Engine {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return NewEngine(Config{MaxRounds: maxRounds, Skills: skill.NewService(c, nil)})
}

// ---- victory / defeat ----

func TestCharacterAttackVictory(t *testing.T) {
	tc, ch, m := newScene()
	ch.PhysicalAttack.Override(200)
	e := NewEngine(Config{})
	ctx := context.Background()

	out, err := e.CharacterAttack(ctx, tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, 195, out.Damage)
	assert.True(t, out.Killed)
	assert.Equal(t, 0, m.HP)

	b := tc.Battle
	assert.Equal(t, testctx.PhaseVictory, b.Phase)
	assert.True(t, b.Victory)
	assert.Equal(t, 10, b.ExpGained)
	assert.Equal(t, 20, b.GoldGained)
	assert.Equal(t, 10, ch.Exp)
	assert.Equal(t, 20, ch.Gold)
	assert.Equal(t, []string{"monster"}, b.Defeated)
	assert.Equal(t, 1, b.Count("battle_end"))

	tc.UpdateAssertionContext()
	assert.Equal(t, 1, tc.Variables["team_alive_count"])
	assert.Equal(t, "victory", tc.Variables["battle_state"])
	assert.Equal(t, 195, tc.Variables["damage_dealt"])
	assert.Equal(t, true, tc.Variables["battle_result.is_victory"])
}

func TestMonsterAttackDefeatGivesNoRewards(t *testing.T) {
	tc, ch, m := newScene()
	m.PhysicalAttack = 500
	e := NewEngine(Config{})

	_, err := e.MonsterAttack(context.Background(), tc, "", "")
	require.NoError(t, err)
	assert.False(t, ch.IsAlive())

	b := tc.Battle
	assert.Equal(t, testctx.PhaseDefeat, b.Phase)
	assert.False(t, b.Victory)
	assert.Zero(t, b.ExpGained)
	assert.Zero(t, b.GoldGained)
	assert.Zero(t, ch.Exp)
	assert.Equal(t, true, tc.Variables["character.is_dead"])
	assert.Equal(t, 0, tc.Variables["character.exp_gained"])
}

func TestRewardsSplitAcrossParty(t *testing.T) {
	tc, ch, m := newScene()
	second := newHero("character_2", entity.ClassMage)
	tc.AddCharacter(second)
	m.HP = 1

	require.NoError(t, NewEngine(Config{}).DefeatMonster(context.Background(), tc, ""))

	// 10 exp * 1.1 / 2 = 5, 20 gold / 2 = 10
	assert.Equal(t, 5, tc.Battle.ExpGained)
	assert.Equal(t, 10, tc.Battle.GoldGained)
	assert.Equal(t, 5, ch.Exp)
	assert.Equal(t, 10, second.Gold)
}

func TestZoneScalesRewards(t *testing.T) {
	tc, ch, m := newScene()
	z := entity.NewZone("bonus", "Bonus")
	z.ExpMulti, z.GoldMulti = 2, 1.5
	tc.Zone = z
	m.HP = 1

	require.NoError(t, NewEngine(Config{}).DefeatMonster(context.Background(), tc, ""))

	assert.Equal(t, 20, tc.Battle.ExpGained)
	assert.Equal(t, 30, tc.Battle.GoldGained)
	assert.Equal(t, 20, ch.Exp)
	assert.Equal(t, 30, ch.Gold)
}

func TestLevelUpOnLargeReward(t *testing.T) {
	tc, ch, m := newScene()
	m.ExpReward = 100
	require.NoError(t, NewEngine(Config{}).DefeatMonster(context.Background(), tc, "monster"))

	// 100 >= 30 (lvl 1) and >= 80 (lvl 2), < 150 (lvl 3)
	assert.Equal(t, 3, ch.Level)
	assert.Equal(t, 100, ch.Exp)
	end, ok := tc.Battle.Log[len(tc.Battle.Log)-1].(EventBattleEnd)
	require.True(t, ok)
	assert.Len(t, end.LevelUps, 2)
}

func TestVictoryWaitsForEveryMonster(t *testing.T) {
	tc, _, _ := newScene()
	tc.AddMonster(entity.NewMonster("monster_2"))
	e := NewEngine(Config{})

	require.NoError(t, e.DefeatMonster(context.Background(), tc, "monster"))
	assert.False(t, tc.Battle.Phase.Finished())
	require.NoError(t, e.DefeatMonster(context.Background(), tc, "monster_2"))
	assert.Equal(t, testctx.PhaseVictory, tc.Battle.Phase)
	assert.Equal(t, 20, tc.Battle.ExpGained)
}

// ---- targets ----

func TestAttackDeadMonsterIsInvalidTarget(t *testing.T) {
	tc, ch, m := newScene()
	m.HP = 0
	e := NewEngine(Config{})

	_, err := e.CharacterAttack(context.Background(), tc, "", "monster")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidTarget))
	assert.Equal(t, 0, ch.Resource, "attacker must not gain rage")
	assert.Equal(t, 0, m.HP)
}

func TestAttackMissingMonster(t *testing.T) {
	tc, ch, _ := newScene()
	_, err := NewEngine(Config{}).CharacterAttack(context.Background(), tc, "", "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidTarget))
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
	assert.Equal(t, 0, ch.Resource)
}

func TestAllMonstersAttack(t *testing.T) {
	tc, ch, _ := newScene()
	tc.AddMonster(entity.NewMonster("monster_2"))
	e := NewEngine(Config{})

	require.NoError(t, e.AllMonstersAttack(context.Background(), tc))
	// 10 atk - 6 def = 4 per monster
	assert.Equal(t, 8, tc.Variables["monster_damage_dealt"])
	assert.Equal(t, ch.MaxHPValue()-8, ch.HP)
}

// ---- rage and shields ----

func TestRageGain(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 1000, 1000
	e := NewEngine(Config{})
	ctx := context.Background()

	_, err := e.CharacterAttack(ctx, tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, RageOnAttack, ch.Resource)

	_, err = e.MonsterAttack(ctx, tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, RageOnAttack+RageOnHit, ch.Resource)

	tc.SetVariable("rage_bonus_percent", 50)
	_, err = e.CharacterAttack(ctx, tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, 15+15, ch.Resource)
}

func TestRageResetsOnKill(t *testing.T) {
	tc, ch, m := newScene()
	ch.Resource = 40
	ch.PhysicalAttack.Override(500)
	m.HP = 50
	_, err := NewEngine(Config{}).CharacterAttack(context.Background(), tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, ch.Resource)
}

func TestShieldAbsorbs(t *testing.T) {
	tc, ch, _ := newScene()
	ch.Shield = entity.Shield{Amount: 3, Remaining: 2}
	out, err := NewEngine(Config{}).MonsterAttack(context.Background(), tc, "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Absorbed)
	assert.Equal(t, 1, out.Damage)
	assert.Equal(t, ch.MaxHPValue()-1, ch.HP)
	assert.False(t, ch.Shield.Active())
}

// ---- skills ----

func slamDef(cost int) entity.SkillDef {
	return entity.SkillDef{ID: "slam", Name: "Slam", Kind: entity.SkillDamage, Cost: cost, Cooldown: 3, DamageMultiplier: 1}
}

func TestSkillCooldownAcrossRounds(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 10000, 10000
	def := slamDef(0)
	tc.SetSkill("slam", &def)
	ch.Learn(def)
	tc.SetVariable("skill_id", "slam")

	e := newSkillEngine(t, 0)
	require.NoError(t, e.RunRounds(context.Background(), tc, 4))

	assert.Equal(t, true, tc.Variables["skill_usable_round_1"])
	assert.Equal(t, false, tc.Variables["skill_usable_round_2"])
	assert.Equal(t, 2, tc.Variables["skill_cooldown_round_2"])
	assert.Equal(t, false, tc.Variables["skill_usable_round_3"])
	assert.Equal(t, 1, tc.Variables["skill_cooldown_round_3"])
	assert.Equal(t, true, tc.Variables["skill_usable_round_4"])
	assert.Equal(t, 4, tc.Battle.Round)
	assert.Equal(t, 4, ch.Skills["slam"].LastUsedRound)
}

func TestUseSkillReportsCooldown(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 1000, 1000
	def := slamDef(0)
	tc.SetSkill("slam", &def)
	ch.Learn(def)
	e := newSkillEngine(t, 0)
	ctx := context.Background()

	out, err := e.UseSkill(ctx, tc, "", "slam", "")
	require.NoError(t, err)
	assert.True(t, out.Used)
	hp := m.HP

	out, err = e.UseSkill(ctx, tc, "", "slam", "")
	require.NoError(t, err)
	assert.False(t, out.Used)
	assert.Contains(t, out.Reason, "cooldown")
	assert.Equal(t, hp, m.HP)
	assert.Equal(t, false, tc.Variables["skill_used"])
}

func TestUseSkillWithoutResource(t *testing.T) {
	tc, ch, m := newScene()
	def := slamDef(30)
	tc.SetSkill("slam", &def)
	ch.Learn(def)

	out, err := NewEngine(Config{}).UseSkill(context.Background(), tc, "", "slam", "")
	require.NoError(t, err)
	assert.False(t, out.Used)
	assert.Equal(t, "资源不足", tc.Variables["error_message"])
	assert.Equal(t, m.MaxHP, m.HP)
	assert.Equal(t, 0, ch.Skills["slam"].Remaining)
}

func TestUseSkillNotLearned(t *testing.T) {
	tc, _, _ := newScene()
	def := slamDef(0)
	tc.SetSkill("slam", &def)
	_, err := NewEngine(Config{}).UseSkill(context.Background(), tc, "", "slam", "")
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
}

func TestHealSkill(t *testing.T) {
	tc := testctx.New(1)
	priest := newHero("character", entity.ClassPriest)
	priest.HP = 20
	tc.AddCharacter(priest)
	def := entity.SkillDef{ID: "heal", Kind: entity.SkillHeal, Cost: 10, HealAmount: 50}
	tc.SetSkill("heal", &def)
	priest.Learn(def)

	out, err := NewEngine(Config{}).UseSkill(context.Background(), tc, "", "heal", "")
	require.NoError(t, err)
	require.True(t, out.Used)
	assert.Equal(t, 35, out.Heal.Actual)
	assert.Equal(t, 15, out.Heal.Overheal)
	assert.Equal(t, priest.MaxHPValue(), priest.HP)
	assert.Equal(t, 90, priest.Resource)
	assert.Equal(t, 35, tc.Variables["healing_done"])
}

func TestSilencedCannotCast(t *testing.T) {
	tc, ch, _ := newScene()
	def := slamDef(0)
	tc.SetSkill("slam", &def)
	ch.Learn(def)
	ch.Effects[entity.EffectSilenced] = 2

	out, err := NewEngine(Config{}).UseSkill(context.Background(), tc, "", "slam", "")
	require.NoError(t, err)
	assert.False(t, out.Used)
}

// ---- rounds ----

func TestRoundLimit(t *testing.T) {
	tc, _, m := newScene()
	m.HP, m.MaxHP = 10000, 10000
	m.PhysicalAttack = 1
	e := NewEngine(Config{MaxRounds: 3})

	err := e.RunRounds(context.Background(), tc, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRoundLimitExceeded))
	assert.Equal(t, 3, tc.Battle.Round)

	err = e.RunUntil(context.Background(), tc, UntilBattleEnd)
	assert.True(t, errors.Is(err, errs.ErrRoundLimitExceeded))
}

func TestRunUntilMonsterDead(t *testing.T) {
	tc, ch, m := newScene()
	ch.PhysicalAttack.Override(30)
	e := NewEngine(Config{})

	require.NoError(t, e.RunUntil(context.Background(), tc, UntilMonsterDead))
	assert.False(t, m.IsAlive())
	assert.Equal(t, testctx.PhaseVictory, tc.Battle.Phase)
	assert.Equal(t, tc.Battle.Round, tc.Variables["battle_rounds"])
	assert.Contains(t, tc.Variables, "monster.hp_round_1")
}

func TestRunUntilUnknownCondition(t *testing.T) {
	tc, _, _ := newScene()
	err := NewEngine(Config{}).RunUntil(context.Background(), tc, "forever")
	assert.True(t, errors.Is(err, ErrUnknownUntil))
}

func TestStunnedMonsterSkipsTurn(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 1000, 1000
	m.Effects[entity.EffectStunned] = 2

	require.NoError(t, NewEngine(Config{}).RunRounds(context.Background(), tc, 1))
	assert.Equal(t, ch.MaxHPValue(), ch.HP)
	assert.Equal(t, ch.MaxHPValue(), tc.Variables["character.hp_round_1"])
}

func TestOneRoundStunCostsOneTurn(t *testing.T) {
	tc, ch, m := newScene()
	m.HP, m.MaxHP = 1000, 1000
	m.Effects[entity.EffectStunned] = 1
	e := NewEngine(Config{})
	ctx := context.Background()

	require.NoError(t, e.RunRounds(ctx, tc, 1))
	assert.Equal(t, ch.MaxHPValue(), ch.HP)
	assert.False(t, m.Effects.Has(entity.EffectStunned))
	assert.Equal(t, 1, tc.Battle.Count("turn_end"))

	require.NoError(t, e.RunRounds(ctx, tc, 1))
	acted := 0
	for _, ev := range tc.Battle.Log {
		if r, ok := ev.(EventActionResult); ok && r.Subject.Alias == m.Alias {
			assert.Equal(t, 2, r.Round)
			acted++
		}
	}
	assert.Equal(t, 1, acted)
}

func TestRoundsWithoutMonstersOnlyAdvanceTime(t *testing.T) {
	tc := testctx.New(1)
	ch := newHero("character", entity.ClassWarrior)
	tc.AddCharacter(ch)
	ch.Buffs.Add(entity.Buff{ID: "shout", Stat: entity.StatStrength, Flat: 5, Remaining: 2})

	require.NoError(t, NewEngine(Config{}).RunRounds(context.Background(), tc, 2))
	assert.Equal(t, testctx.PhaseNotStarted, tc.Battle.Phase)
	assert.Equal(t, 2, tc.Battle.Round)
	assert.Zero(t, ch.Buffs.Len())
}

func TestStartNeedsBothSides(t *testing.T) {
	tc := testctx.New(1)
	tc.AddCharacter(newHero("character", entity.ClassWarrior))
	err := NewEngine(Config{}).Start(context.Background(), tc)
	assert.True(t, errors.Is(err, ErrNoParticipants))
}

// ---- rest ----

func TestRestDuringBattle(t *testing.T) {
	tc, _, _ := newScene()
	e := NewEngine(Config{})
	require.NoError(t, e.Start(context.Background(), tc))
	assert.ErrorIs(t, e.EnterRest(context.Background(), tc), ErrInBattle)
}

func TestRestRegenerates(t *testing.T) {
	tc := testctx.New(1)
	mage := newHero("character", entity.ClassMage)
	mage.HP, mage.Resource = 10, 50
	tc.AddCharacter(mage)
	e := NewEngine(Config{})
	ctx := context.Background()

	require.NoError(t, e.EnterRest(ctx, tc))
	assert.True(t, mage.Resting)
	assert.Equal(t, 16, mage.HP)       // +round(55 * 0.1)
	assert.Equal(t, 56, mage.Resource) // +5 + round(10 * 0.1)
	assert.Equal(t, true, tc.Variables["is_resting"])

	// already resting: no second tick
	require.NoError(t, e.EnterRest(ctx, tc))
	assert.Equal(t, 16, mage.HP)

	require.NoError(t, e.FinishRest(ctx, tc))
	assert.False(t, mage.Resting)
	assert.Equal(t, mage.MaxHPValue(), mage.HP)
	assert.Equal(t, mage.MaxResource, mage.Resource)
	assert.Equal(t, false, tc.Variables["is_resting"])
}

func TestRestKeepsRageEmpty(t *testing.T) {
	tc, ch, _ := newScene()
	ch.Resource = 60
	require.NoError(t, NewEngine(Config{}).FinishRest(context.Background(), tc))
	assert.Equal(t, 0, ch.Resource)
	assert.Equal(t, ch.MaxHPValue(), ch.HP)
}

// ---- loot ----

func TestCalculateDrops(t *testing.T) {
	m := entity.NewMonster("monster")
	m.LootIDs = []string{"weapon", "armor"}
	drops, err := CalculateDrops(m, item.NewGenerator(nil), item.QualityCommon)
	require.NoError(t, err)
	require.Len(t, drops, 2)
	assert.Equal(t, entity.SlotMainHand, drops[0].Slot)
	assert.Equal(t, entity.SlotArmor, drops[1].Slot)
	assert.Equal(t, entity.SourceDrop, drops[0].Source)
}

func TestCalculateExp(t *testing.T) {
	cases := []struct {
		base, size, want int
	}{
		{100, 1, 100},
		{100, 2, 55},
		{200, 3, 80},
		{1, 4, 1},
	}
	for _, c := range cases {
		if got := CalculateExp(c.base, c.size); got != c.want {
			t.Errorf("CalculateExp(%d, %d) = %d, want %d", c.base, c.size, got, c.want)
		}
	}
}

func TestExpNeeded(t *testing.T) {
	if got := ExpNeeded(1); got != 30 {
		t.Errorf("ExpNeeded(1) = %d, want 30", got)
	}
	if got := ExpNeeded(2); got != 80 {
		t.Errorf("ExpNeeded(2) = %d, want 80", got)
	}
	if ExpNeeded(5) <= ExpNeeded(4) {
		t.Error("ExpNeeded must grow with level")
	}
}

func TestFormulaStats(t *testing.T) {
	_, ch, m := newScene()
	ch.Level = 4
	m.Level = 2

	a := FormulaStats(ch)
	assert.Equal(t, ch.Strength, a.Str)
	assert.Equal(t, ch.Attack(true), a.Atk)
	assert.Equal(t, ch.Attack(false), a.Matk)
	assert.Equal(t, ch.MaxHPValue(), a.MaxHP)
	assert.Equal(t, 4, a.Level)

	b := FormulaStats(m)
	assert.Equal(t, m.Defense(true), b.Def)
	assert.Equal(t, 2, b.Level)
	assert.Zero(t, b.Str)

	v, err := calc.EvalFormula("a.level*10 + b.level", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 42, v, 1e-9)
}
