package entity

// Kind distinguishes the two battle sides.
type Kind string

const (
	KindCharacter Kind = "character"
	KindMonster   Kind = "monster"
)

// Combatant is anything that takes part in a battle.
type Combatant interface {
	Key() string
	Kind() Kind
	// Order is the insertion sequence used to break speed ties.
	Order() int

	CurrentHP() int
	SetHP(v int)
	MaxHPValue() int
	IsAlive() bool

	Effective(stat Stat) int
	Attack(physical bool) int
	Defense(physical bool) int
	CritRate(physical bool) float64
	CritDamage(physical bool) float64
	Dodge() float64

	BuffList() *BuffList
	ActiveEffects() Effects
	SkillStates() map[string]*SkillState
}

var (
	_ Combatant = (*Character)(nil)
	_ Combatant = (*Monster)(nil)
)
