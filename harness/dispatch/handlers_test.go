package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/kasuganosora/battlerunner/repo"
	"github.com/kasuganosora/battlerunner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- entities ----

func TestCreateCharactersAliases(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建3个角色,力量=15")

	require.Len(t, tc.Characters, 3)
	for _, alias := range []string{"character_1", "character_2", "character_3"} {
		ch, err := tc.GetCharacter(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, 15, ch.Strength)
		assert.Equal(t, ch.MaxHPValue(), ch.HP)
	}
	assert.Equal(t, 3, tc.Variables["character_count"])

	ch, err := tc.PrimaryCharacter()
	require.NoError(t, err)
	assert.Equal(t, "character_1", ch.Alias)
}

func TestCreateCharacterList(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建多个角色：战士（力量=20），法师（智力=30）")

	war, err := tc.GetCharacter("character_1")
	require.NoError(t, err)
	assert.Equal(t, entity.ClassWarrior, war.Class)
	assert.Equal(t, 20, war.Strength)

	mage, err := tc.GetCharacter("character_2")
	require.NoError(t, err)
	assert.Equal(t, entity.ClassMage, mage.Class)
	assert.Equal(t, 30, mage.Intellect)
}

func TestCreateCharacterAndMonster(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色和一个怪物")
	_, err := tc.PrimaryCharacter()
	assert.NoError(t, err)
	_, err = tc.GetMonster(testctx.DefaultMonster)
	assert.NoError(t, err)
}

func TestTurnOrderBySpeed(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建3个怪物：怪物1速度=40，怪物2速度=80，怪物3速度=60",
		"构建回合顺序",
	)
	assert.Equal(t, 3, tc.Variables["enemy_count"])
	assert.Equal(t, "monster_2", tc.Variables["turn_order[0].alias"])
	assert.Equal(t, "monster_3", tc.Variables["turn_order[1].alias"])
	assert.Equal(t, "monster_1", tc.Variables["turn_order[2].alias"])
	assert.Equal(t, 80, tc.Variables["turn_order[0].speed"])
	assert.Equal(t, 3, tc.Variables["turn_order_length"])
}

func TestMonsterFields(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个怪物,名称=boss,HP=500,攻击=40,闪避=10%,掉落=sword|shield")

	m, err := tc.GetMonster("boss")
	require.NoError(t, err)
	assert.Equal(t, 500, m.HP)
	assert.Equal(t, 500, m.MaxHP)
	assert.Equal(t, 40, m.PhysicalAttack)
	assert.InDelta(t, 0.1, m.DodgeRate, 1e-9)
	assert.Equal(t, []string{"sword", "shield"}, m.LootIDs)
}

func TestBuffShieldAndEffect(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20",
		"创建一个怪物",
		"给角色添加Buff（攻击+20%，持续3回合）",
		"给角色添加50点护盾,持续2回合",
		"给怪物添加眩晕效果,持续2回合",
	)
	assert.Equal(t, 24, tc.Variables["buffed_attack"])
	assert.Equal(t, 3, tc.Variables["buff_duration"])
	assert.Equal(t, 50, tc.Variables["shield_amount"])

	ch, _ := tc.PrimaryCharacter()
	assert.True(t, ch.Shield.Active())
	m, _ := tc.PrimaryMonster()
	assert.Equal(t, 2, m.ActiveEffects()[entity.EffectStunned])
}

func TestOneRoundStun(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色",
		"创建一个怪物,HP=10000",
		"给怪物添加眩晕效果,持续1回合",
		"执行一个回合",
	)
	ch, _ := tc.PrimaryCharacter()
	m, _ := tc.PrimaryMonster()
	assert.Equal(t, ch.MaxHPValue(), ch.HP)
	assert.False(t, m.ActiveEffects().Has(entity.EffectStunned))
}

func TestOverflowingOperands(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色")

	for in, field := range map[string]string{
		"给角色添加攻击Buff(攻击+99999999999999999999,持续2回合)": "Buff数值",
		"角色获得99999999999999999999金币":                  "金币",
		"给角色添加99999999999999999999点护盾":               "护盾值",
	} {
		var err error
		require.NotPanics(t, func() { err = d.Execute(context.Background(), tc, in) }, in)
		var mal *errs.MalformedOperandError
		require.True(t, errors.As(err, &mal), in)
		assert.Equal(t, field, mal.Field, in)
	}
	ch, _ := tc.PrimaryCharacter()
	assert.Zero(t, ch.Gold)
	assert.Zero(t, ch.Buffs.Len())
}

func TestGoldAndPurchase(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色", "获得100金币", "购买物品,物品=药水,价格=150")
	assert.Equal(t, false, tc.Variables["purchase_success"])
	assert.Equal(t, "金币不足", tc.Variables["error_message"])

	run(t, d, tc, "购买物品,物品=药水,价格=60")
	assert.Equal(t, true, tc.Variables["purchase_success"])
	assert.Equal(t, 40, tc.Variables["character_gold"])
}

// ---- teams ----

func TestTeamSlots(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色",
		"创建一个队伍,槽位=5,解锁=3",
		"尝试将角色添加到槽位4",
	)
	assert.Equal(t, false, tc.Variables["operation_success"])
	assert.NotEmpty(t, tc.Variables["error_message"])

	run(t, d, tc, "将角色添加到槽位1")
	assert.Equal(t, true, tc.Variables["operation_success"])
	team, err := tc.GetTeam(testctx.DefaultTeam)
	require.NoError(t, err)
	assert.Equal(t, 1, team.SlotOf(testctx.PrimaryAlias))
}

func TestTeamWithMissingMember(t *testing.T) {
	d, tc := newDispatcher()
	err := d.Execute(context.Background(), tc, "创建一个队伍:ghost")
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
}

func TestTeamCreatesMembers(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个队伍,包含3个角色")
	team, err := tc.GetTeam(testctx.DefaultTeam)
	require.NoError(t, err)
	assert.Equal(t, []string{"character_1", "character_2", "character_3"}, team.Members())
	assert.Len(t, tc.Party(), 3)
}

// ---- equipment ----

func TestEquipWeapon(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20",
		"获得一把武器,攻击=10",
		"穿戴武器",
	)
	assert.Equal(t, 20, tc.Variables["previous_physical_attack"])
	assert.Equal(t, 30, tc.Variables["character_physical_attack"])
	assert.Equal(t, true, tc.Variables["equip_success"])

	run(t, d, tc, "卸下武器")
	assert.Equal(t, 20, tc.Variables["character_physical_attack"])
}

func TestTryEquipBelowLevel(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色",
		"获得一把武器,需要10级才能装备",
		"尝试穿戴武器",
	)
	assert.Equal(t, false, tc.Variables["equip_success"])
	assert.Contains(t, tc.Variables["error_message"], "等级不足")

	ch, _ := tc.PrimaryCharacter()
	assert.Empty(t, ch.Equipped)
}

func TestEquipWithoutItem(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色")
	err := d.Execute(context.Background(), tc, "穿戴武器")
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
}

// ---- calculation ----

func TestDamagePipeline(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20",
		"创建一个怪物,防御=5",
		"计算伤害",
	)
	assert.Equal(t, 15, tc.Variables["final_damage"])
	assert.Equal(t, false, tc.Variables["is_crit"])

	run(t, d, tc, "计算伤害（暴击）")
	assert.Equal(t, true, tc.Variables["is_crit"])
	assert.Greater(t, tc.Variables["final_damage"], 15)

	run(t, d, tc, "计算伤害,防御=100")
	assert.Equal(t, 1, tc.Variables["final_damage"])
}

func TestCritRateIsCapped(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色,敏捷=2000", "计算物理暴击率")
	assert.InDelta(t, 0.4, tc.Variables["phys_crit_rate"], 1e-9)
}

// ---- skills ----

func TestSkillCooldown(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20,怒气=50",
		"创建一个怪物,HP=100,防御=5",
		"创建一个重击技能,伤害倍率=150%,冷却时间=3回合,消耗=20",
		"学习重击技能",
		"使用重击技能",
	)
	assert.Equal(t, "重击", tc.Variables["skill_id"])
	assert.InDelta(t, 1.5, tc.Variables["skill_scaling_ratio"], 1e-9)
	assert.Equal(t, true, tc.Variables["skill_used"])
	m, _ := tc.PrimaryMonster()
	assert.Less(t, m.HP, 100)
	hp := m.HP

	run(t, d, tc, "使用重击技能")
	assert.Equal(t, false, tc.Variables["skill_used"])
	assert.Contains(t, tc.Variables["error_message"], "cooldown")
	assert.Equal(t, hp, m.HP)

	run(t, d, tc, "检查技能冷却")
	assert.Equal(t, 3, tc.Variables["skill_cooldown_left"])
	assert.Equal(t, false, tc.Variables["skill_usable"])
}

func TestParseSkill(t *testing.T) {
	tc := testctx.New(1)

	def, err := parseSkill(tc, Normalize("创建一个火球技能，倍率=2，消耗=30，群体"))
	require.NoError(t, err)
	assert.Equal(t, "火球", def.ID)
	assert.Equal(t, "magic", def.DamageType)
	assert.True(t, def.AOE)
	assert.InDelta(t, 2.0, def.DamageMultiplier, 1e-9)
	assert.Equal(t, 30, def.Cost)

	def, err = parseSkill(tc, "创建一个治疗技能,治疗量=50")
	require.NoError(t, err)
	assert.Equal(t, entity.SkillHeal, def.Kind)
	assert.Equal(t, 50, def.HealAmount)

	def, err = parseSkill(tc, "创建一个战吼Buff技能,攻击+30%,持续2回合")
	require.NoError(t, err)
	assert.Equal(t, entity.SkillBuff, def.Kind)
	assert.Equal(t, entity.StatPhysicalAttack, def.BuffStat)
	assert.InDelta(t, 0.3, def.BuffPercent, 1e-9)
	assert.Equal(t, 2, def.BuffDuration)
}

func TestSkillFormula(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20",
		"创建一个怪物,HP=100,防御=5",
		"创建一个斩击技能,消耗=0,公式=a.atk*2 - b.def",
		"学习斩击技能",
		"使用斩击技能",
	)
	def := tc.Skills["斩击"]
	require.NotNil(t, def)
	assert.Equal(t, "a.atk*2-b.def", def.Formula)
	m, _ := tc.PrimaryMonster()
	assert.Equal(t, 65, m.HP)

	err := d.Execute(context.Background(), tc, "创建一个坏技能,公式=a.atk*(2")
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))
}

func TestSkillFormulaFailureLeavesNoTrace(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20,怒气=50",
		"创建一个怪物,HP=100,防御=0",
		"创建一个斩击技能,消耗=30,冷却=2,公式=a.atk/b.def",
		"学习斩击技能",
	)
	err := d.Execute(context.Background(), tc, "使用斩击技能")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMalformedOperand))

	ch, _ := tc.PrimaryCharacter()
	m, _ := tc.PrimaryMonster()
	assert.Equal(t, 50, ch.Resource)
	assert.Equal(t, 100, m.HP)
	assert.Zero(t, ch.Skills["斩击"].Remaining)
}

func TestSkillOperandsMustParse(t *testing.T) {
	tc := testctx.New(1)
	for in, field := range map[string]string{
		"创建一个斩击技能,冷却=abc":   "冷却",
		"创建一个斩击技能,消耗=xyz":   "消耗",
		"创建一个治疗技能,治疗量=多":   "治疗量",
		"创建一个斩击技能,倍率=很高":   "倍率",
		"创建一个斩击技能,冷却=99999999999": "冷却",
	} {
		_, err := parseSkill(tc, in)
		var mal *errs.MalformedOperandError
		require.True(t, errors.As(err, &mal), in)
		assert.Equal(t, field, mal.Field, in)
	}

	def, err := parseSkill(tc, "创建一个重击技能,冷却3回合,消耗20")
	require.NoError(t, err)
	assert.Equal(t, 3, def.Cooldown)
	assert.Equal(t, 20, def.Cost)
}

func TestUseUnknownSkill(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色", "创建一个怪物")
	err := d.Execute(context.Background(), tc, "使用技能,技能=不存在")
	assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
}

// ---- battle ----

func TestRunUntilMonsterDead(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=200",
		"创建一个怪物",
		"开始战斗",
		"继续战斗直到怪物死亡",
	)
	assert.Equal(t, testctx.PhaseVictory, tc.Battle.Phase)
	m, _ := tc.PrimaryMonster()
	assert.False(t, m.IsAlive())
}

func TestRunUntilStepLimit(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=1",
		"创建一个怪物,HP=100000,攻击=1",
		"设置最大回合=2",
	)
	err := d.Execute(context.Background(), tc, "继续战斗直到怪物死亡")
	assert.True(t, errors.Is(err, errs.ErrRoundLimitExceeded))
}

func TestAttackNamedMonster(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc,
		"创建一个角色,攻击=20",
		"创建2个怪物,防御=0",
		"角色攻击第2个怪物",
	)
	first, _ := tc.GetMonster("monster_1")
	second, _ := tc.GetMonster("monster_2")
	assert.Equal(t, first.MaxHP, first.HP)
	assert.Equal(t, second.MaxHP-20, second.HP)
}

func TestRestBlockedInBattle(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色", "创建一个怪物", "开始战斗")
	err := d.Execute(context.Background(), tc, "进入休息状态")
	assert.Error(t, err)
}

// ---- persistence ----

func TestSaveAndLoadCharacter(t *testing.T) {
	gr := repo.NewGorm(testutil.SetupTestDB(t), zap.NewNop())
	d := New(Options{Repo: gr})
	tc := testctx.New(1)

	run(t, d, tc, "创建一个角色,攻击=20,力量=15", "保存角色")
	assert.Equal(t, true, tc.Variables["operation_success"])
	saved, _ := tc.PrimaryCharacter()
	assert.Equal(t, saved.ID, tc.Variables["saved_character_id"])

	run(t, d, tc, "设置角色,攻击=50,力量=1", "从数据库加载角色")
	assert.Equal(t, true, tc.Variables["character_loaded"])
	ch, err := tc.PrimaryCharacter()
	require.NoError(t, err)
	assert.Equal(t, 20, ch.Effective(entity.StatPhysicalAttack))
	assert.Equal(t, 15, ch.Strength)
	assert.Equal(t, saved.Seq, ch.Seq)
}

func TestPersistenceWithoutRepository(t *testing.T) {
	d, tc := newDispatcher()
	run(t, d, tc, "创建一个角色")
	err := d.Execute(context.Background(), tc, "保存角色")
	assert.ErrorIs(t, err, ErrNoRepository)
}
