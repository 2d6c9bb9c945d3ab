package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Attr ---

func TestAttrRecomputeKeepsExplicit(t *testing.T) {
	a := Explicit(20)
	assert.False(t, a.Recompute(6))
	assert.Equal(t, 20, a.Value())
	assert.True(t, a.IsExplicit())

	a.Release()
	assert.True(t, a.Recompute(6))
	assert.Equal(t, 6, a.Value())
}

func TestAttrComputedFollowsRecompute(t *testing.T) {
	a := Computed(0.1)
	assert.True(t, a.Recompute(0.2))
	assert.InDelta(t, 0.2, a.Value(), 1e-9)
	a.Override(0.3)
	assert.False(t, a.Recompute(0.25))
	assert.InDelta(t, 0.3, a.Value(), 1e-9)
}

// --- Character ---

func TestNewCharacterDefaults(t *testing.T) {
	c := NewCharacter("character", "")
	assert.Equal(t, ClassWarrior, c.Class)
	assert.Equal(t, ResourceRage, c.ResourceType)
	assert.Equal(t, 0, c.Resource)
	assert.Equal(t, 100, c.MaxResource)
	assert.Equal(t, 10, c.Strength)
	assert.Equal(t, 1, c.Level)
	assert.NotEmpty(t, c.ID)

	m := NewCharacter("m", ClassMage)
	assert.Equal(t, ResourceMana, m.ResourceType)
	assert.Equal(t, 100, m.Resource)

	r := NewCharacter("r", ClassRogue)
	assert.Equal(t, ResourceEnergy, r.ResourceType)
}

func TestCharacterEffectiveAppliesEquipmentAndBuffs(t *testing.T) {
	c := NewCharacter("character", ClassWarrior)
	c.PhysicalAttack = Computed(20)

	sword := NewEquipment("sword", SlotMainHand, "rare", 1, SourceExplicit)
	sword.Modifiers = []Modifier{{Stat: StatPhysicalAttack, Flat: 10}}
	c.Equipped[SlotMainHand] = sword
	assert.Equal(t, 30, c.Effective(StatPhysicalAttack))

	c.Buffs.Add(Buff{ID: "rage", Stat: StatPhysicalAttack, Percent: 0.5, Remaining: 2})
	assert.Equal(t, 45, c.Effective(StatPhysicalAttack))
	assert.Equal(t, 20, c.Base(StatPhysicalAttack))
}

func TestCharacterSetHPClamps(t *testing.T) {
	c := NewCharacter("character", ClassWarrior)
	c.MaxHP = Computed(50)
	c.SetHP(80)
	assert.Equal(t, 50, c.HP)
	c.SetHP(-3)
	assert.Equal(t, 0, c.HP)
	assert.False(t, c.IsAlive())
}

func TestCharacterResource(t *testing.T) {
	c := NewCharacter("character", ClassWarrior)
	c.GainResource(150)
	assert.Equal(t, 100, c.Resource)
	assert.True(t, c.SpendResource(30))
	assert.Equal(t, 70, c.Resource)
	assert.False(t, c.SpendResource(80))
	assert.Equal(t, 70, c.Resource)
}

func TestCharacterLearnIsIdempotent(t *testing.T) {
	c := NewCharacter("character", ClassWarrior)
	st := c.Learn(SkillDef{ID: "slam", Cooldown: 3})
	st.Remaining = 2
	again := c.Learn(SkillDef{ID: "slam", Cooldown: 3})
	assert.Same(t, st, again)
	assert.Equal(t, 2, again.Remaining)
}

// --- Monster ---

func TestMonsterRewardsDeriveFromLevel(t *testing.T) {
	m := NewMonster("monster")
	m.Level = 3
	exp, gold := m.Rewards()
	assert.Equal(t, 30, exp)
	assert.Equal(t, 60, gold)

	m.GoldReward = 7
	_, gold = m.Rewards()
	assert.Equal(t, 7, gold)
}

// --- Buffs / shields / effects ---

func TestBuffListTickExpires(t *testing.T) {
	var bl BuffList
	bl.Add(Buff{ID: "a", Stat: StatPhysicalAttack, Percent: 0.1, Remaining: 1})
	bl.Add(Buff{ID: "b", Stat: StatPhysicalDefense, Flat: 5, Remaining: 3})
	expired := bl.Tick()
	require.Len(t, expired, 1)
	assert.Equal(t, "a", expired[0].ID)
	assert.Equal(t, 1, bl.Len())
	assert.Equal(t, 2, bl.Get("b").Remaining)
}

func TestBuffListRefresh(t *testing.T) {
	var bl BuffList
	bl.Add(Buff{ID: "a", Remaining: 2})
	bl.Add(Buff{ID: "a", Remaining: 5})
	assert.Equal(t, 1, bl.Len())
	assert.Equal(t, 5, bl.Get("a").Remaining)
	assert.True(t, bl.Remove("a"))
	assert.False(t, bl.Remove("a"))
}

func TestShieldAbsorbAndExpire(t *testing.T) {
	s := Shield{Amount: 30, Remaining: 2}
	assert.Equal(t, 0, s.Absorb(20))
	assert.Equal(t, 5, s.Absorb(15))
	assert.False(t, s.Active())

	s = Shield{Amount: 30, Remaining: 1}
	assert.True(t, s.Tick())
	assert.Equal(t, 0, s.Amount)
}

func TestEffectsTick(t *testing.T) {
	e := Effects{EffectStunned: 1, EffectFeared: 2}
	e.Tick()
	assert.False(t, e.Has(EffectStunned))
	assert.True(t, e.Has(EffectFeared))
}

// --- Team ---

func TestTeamSlotInvariants(t *testing.T) {
	team := NewTeam("team", 3, 2)
	require.NoError(t, team.Add(1, "character_1"))
	assert.ErrorIs(t, team.Add(1, "character_2"), ErrSlotOccupied)
	assert.ErrorIs(t, team.Add(2, "character_1"), ErrAlreadyInTeam)
	assert.ErrorIs(t, team.Add(3, "character_2"), ErrSlotLocked)
	assert.ErrorIs(t, team.Add(4, "character_2"), ErrSlotOutOfRange)

	require.NoError(t, team.Unlock(3))
	require.NoError(t, team.Add(3, "character_2"))
	assert.Equal(t, []string{"character_1", "character_2"}, team.Members())

	alias, err := team.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "character_1", alias)
	_, err = team.Remove(1)
	assert.ErrorIs(t, err, ErrSlotEmpty)
	assert.Equal(t, 1, team.Count())
	assert.Equal(t, 3, team.UnlockedCount())
}

func TestZoneAccepts(t *testing.T) {
	zones := BuiltinZones()
	ch := NewCharacter("character", ClassWarrior)
	assert.Empty(t, zones["elwynn"].Accepts(ch), "no faction enters anywhere")

	ch.Faction = FactionHorde
	assert.Equal(t, "faction mismatch", zones["elwynn"].Accepts(ch))
	assert.Empty(t, zones["durotar"].Accepts(ch))

	z := NewZone("deep", "Deep")
	z.MinLevel = 5
	assert.Equal(t, "level too low", z.Accepts(ch))
}

func TestZoneScale(t *testing.T) {
	var none *Zone
	exp, gold := none.Scale(10, 7)
	assert.Equal(t, 10, exp)
	assert.Equal(t, 7, gold)

	z := NewZone("z", "Z")
	z.ExpMulti, z.GoldMulti = 1.5, 0.5
	exp, gold = z.Scale(10, 7)
	assert.Equal(t, 15, exp)
	assert.Equal(t, 3, gold)
}

func TestConditionHolds(t *testing.T) {
	assert.True(t, Condition{}.Holds(0))
	c := Condition{Op: "<=", Value: 30}
	assert.True(t, c.Holds(30))
	assert.False(t, c.Holds(31))
	assert.False(t, Condition{Op: "~", Value: 1}.Holds(1))
	assert.Equal(t, "self.hp_percent<30", Condition{Subject: SubjectSelf, Metric: MetricHPPercent, Op: "<", Value: 30}.String())
}
