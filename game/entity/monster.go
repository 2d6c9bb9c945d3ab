package entity

import "github.com/google/uuid"

// Monster defaults.
const (
	DefaultMonsterHP           = 100
	DefaultMonsterAttack       = 10
	DefaultMonsterMagicAttack  = 5
	DefaultMonsterDefense      = 5
	DefaultMonsterMagicDefense = 3
	DefaultMonsterDodge        = 0.05
	DefaultMonsterSpeed        = 10
)

// Monster is an enemy-side combatant.
type Monster struct {
	ID    string
	Alias string
	Name  string
	Level int
	Seq   int

	HP    int
	MaxHP int

	PhysicalAttack  int
	MagicAttack     int
	PhysicalDefense int
	MagicDefense    int
	PhysCritRate    float64
	PhysCritDamage  float64
	SpellCritRate   float64
	DodgeRate       float64
	Speed           int
	Resource        int

	ExpReward  int // 0 = derived from level
	GoldReward int // 0 = derived from level
	LootIDs    []string
	SkillIDs   []string

	Skills  map[string]*SkillState
	Buffs   BuffList
	Effects Effects
}

// NewMonster builds a level-1 monster with default stats.
func NewMonster(alias string) *Monster {
	return &Monster{
		ID:              uuid.New().String(),
		Alias:           alias,
		Name:            alias,
		Level:           1,
		HP:              DefaultMonsterHP,
		MaxHP:           DefaultMonsterHP,
		PhysicalAttack:  DefaultMonsterAttack,
		MagicAttack:     DefaultMonsterMagicAttack,
		PhysicalDefense: DefaultMonsterDefense,
		MagicDefense:    DefaultMonsterMagicDefense,
		PhysCritDamage:  1.5,
		DodgeRate:       DefaultMonsterDodge,
		Speed:           DefaultMonsterSpeed,
		Skills:          make(map[string]*SkillState),
		Effects:         make(Effects),
	}
}

func (m *Monster) Key() string { return m.Alias }
func (m *Monster) Kind() Kind  { return KindMonster }
func (m *Monster) Order() int  { return m.Seq }

func (m *Monster) CurrentHP() int  { return m.HP }
func (m *Monster) MaxHPValue() int { return m.MaxHP }
func (m *Monster) IsAlive() bool   { return m.HP > 0 }

func (m *Monster) SetHP(v int) {
	if v < 0 {
		v = 0
	}
	if m.MaxHP > 0 && v > m.MaxHP {
		v = m.MaxHP
	}
	m.HP = v
}

// Effective returns stat after buff modifiers.
func (m *Monster) Effective(stat Stat) int {
	var base int
	switch stat {
	case StatMaxHP:
		base = m.MaxHP
	case StatPhysicalAttack:
		base = m.PhysicalAttack
	case StatMagicAttack:
		base = m.MagicAttack
	case StatPhysicalDefense:
		base = m.PhysicalDefense
	case StatMagicDefense:
		base = m.MagicDefense
	case StatSpeed:
		base = m.Speed
	}
	return applyModifiers(base, stat, m.Buffs.Modifiers())
}

func (m *Monster) Attack(physical bool) int {
	if physical {
		return m.Effective(StatPhysicalAttack)
	}
	return m.Effective(StatMagicAttack)
}

func (m *Monster) Defense(physical bool) int {
	if physical {
		return m.Effective(StatPhysicalDefense)
	}
	return m.Effective(StatMagicDefense)
}

func (m *Monster) CritRate(physical bool) float64 {
	if physical {
		return m.PhysCritRate
	}
	return m.SpellCritRate
}

func (m *Monster) CritDamage(bool) float64 {
	if m.PhysCritDamage < 1 {
		return 1
	}
	return m.PhysCritDamage
}

func (m *Monster) Dodge() float64 { return m.DodgeRate }

func (m *Monster) BuffList() *BuffList                  { return &m.Buffs }
func (m *Monster) ActiveEffects() Effects               { return m.Effects }
func (m *Monster) SkillStates() map[string]*SkillState { return m.Skills }

// Learn adds def to the monster's skill set.
func (m *Monster) Learn(def SkillDef) *SkillState {
	if m.Skills == nil {
		m.Skills = make(map[string]*SkillState)
	}
	if st, ok := m.Skills[def.ID]; ok {
		return st
	}
	st := &SkillState{SkillID: def.ID, Cooldown: def.Cooldown}
	m.Skills[def.ID] = st
	m.SkillIDs = append(m.SkillIDs, def.ID)
	return st
}

// Rewards returns the exp and gold granted when the monster is defeated.
func (m *Monster) Rewards() (exp, gold int) {
	lvl := m.Level
	if lvl < 1 {
		lvl = 1
	}
	exp, gold = m.ExpReward, m.GoldReward
	if exp <= 0 {
		exp = 10 * lvl
	}
	if gold <= 0 {
		gold = 20 * lvl
	}
	return exp, gold
}
