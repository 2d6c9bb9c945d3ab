package entity

import (
	"sort"

	"github.com/google/uuid"
)

// Classes.
const (
	ClassWarrior = "warrior"
	ClassMage    = "mage"
	ClassRogue   = "rogue"
	ClassPriest  = "priest"
)

// Resource types.
const (
	ResourceRage   = "rage"
	ResourceMana   = "mana"
	ResourceEnergy = "energy"
)

// Creation defaults.
const (
	DefaultLevel       = 1
	DefaultPrimaryStat = 10
	DefaultBaseHP      = 35
	DefaultMaxResource = 100
)

// Character is a player-side combatant.
type Character struct {
	ID    string
	Alias string
	Name  string
	Class string
	Level int
	Seq   int // insertion order within a scenario

	Faction string

	ResourceType string
	HP           int
	MaxHP        Attr[int]
	BaseHP       int
	Resource     int
	MaxResource  int

	PhysicalAttack  Attr[int]
	MagicAttack     Attr[int]
	PhysicalDefense Attr[int]
	MagicDefense    Attr[int]
	PhysCritRate    Attr[float64]
	PhysCritDamage  Attr[float64]
	SpellCritRate   Attr[float64]
	SpellCritDamage Attr[float64]
	DodgeRate       Attr[float64]
	Speed           Attr[int]

	Strength  int
	Agility   int
	Intellect int
	Stamina   int
	Spirit    int

	Gold int
	Exp  int

	Equipped map[string]*Equipment // slot -> item
	Buffs    BuffList
	Shield   Shield
	Effects  Effects
	Skills   map[string]*SkillState
	Resting  bool
}

// ResourceFor returns the resource type and starting/max amounts for a class.
// Warriors start with empty rage.
func ResourceFor(class string) (kind string, current, max int) {
	switch class {
	case ClassWarrior:
		return ResourceRage, 0, DefaultMaxResource
	case ClassRogue:
		return ResourceEnergy, DefaultMaxResource, DefaultMaxResource
	default:
		return ResourceMana, DefaultMaxResource, DefaultMaxResource
	}
}

// NewCharacter builds a level-1 character of class with default stats.
// Derived attributes start at zero; callers refresh them through calc.
func NewCharacter(alias, class string) *Character {
	if class == "" {
		class = ClassWarrior
	}
	kind, cur, max := ResourceFor(class)
	return &Character{
		ID:           uuid.New().String(),
		Alias:        alias,
		Name:         alias,
		Class:        class,
		Level:        DefaultLevel,
		ResourceType: kind,
		Resource:     cur,
		MaxResource:  max,
		BaseHP:       DefaultBaseHP,
		Strength:     DefaultPrimaryStat,
		Agility:      DefaultPrimaryStat,
		Intellect:    DefaultPrimaryStat,
		Stamina:      DefaultPrimaryStat,
		Spirit:       DefaultPrimaryStat,
		Equipped:     make(map[string]*Equipment),
		Effects:      make(Effects),
		Skills:       make(map[string]*SkillState),
	}
}

func (c *Character) Key() string { return c.Alias }
func (c *Character) Kind() Kind  { return KindCharacter }
func (c *Character) Order() int  { return c.Seq }

func (c *Character) CurrentHP() int  { return c.HP }
func (c *Character) MaxHPValue() int { return c.Effective(StatMaxHP) }
func (c *Character) IsAlive() bool   { return c.HP > 0 }

// SetHP clamps v to [0, max HP].
func (c *Character) SetHP(v int) {
	if v < 0 {
		v = 0
	}
	if max := c.MaxHPValue(); max > 0 && v > max {
		v = max
	}
	c.HP = v
}

// Base returns the unmodified value of stat.
func (c *Character) Base(stat Stat) int {
	switch stat {
	case StatStrength:
		return c.Strength
	case StatAgility:
		return c.Agility
	case StatIntellect:
		return c.Intellect
	case StatStamina:
		return c.Stamina
	case StatSpirit:
		return c.Spirit
	case StatMaxHP:
		return c.MaxHP.Value()
	case StatPhysicalAttack:
		return c.PhysicalAttack.Value()
	case StatMagicAttack:
		return c.MagicAttack.Value()
	case StatPhysicalDefense:
		return c.PhysicalDefense.Value()
	case StatMagicDefense:
		return c.MagicDefense.Value()
	case StatSpeed:
		return c.Speed.Value()
	}
	return 0
}

// Effective returns stat after equipment and buff modifiers.
func (c *Character) Effective(stat Stat) int {
	return applyModifiers(c.Base(stat), stat, c.EquipmentModifiers(), c.Buffs.Modifiers())
}

// EquipmentModifiers collects the modifiers of every equipped item.
func (c *Character) EquipmentModifiers() []Modifier {
	var mods []Modifier
	for _, slot := range c.EquippedSlots() {
		mods = append(mods, c.Equipped[slot].Modifiers...)
	}
	return mods
}

// EquippedSlots returns the occupied slots in sorted order.
func (c *Character) EquippedSlots() []string {
	slots := make([]string, 0, len(c.Equipped))
	for s := range c.Equipped {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	return slots
}

func (c *Character) Defense(physical bool) int {
	if physical {
		return c.Effective(StatPhysicalDefense)
	}
	return c.Effective(StatMagicDefense)
}

func (c *Character) Attack(physical bool) int {
	if physical {
		return c.Effective(StatPhysicalAttack)
	}
	return c.Effective(StatMagicAttack)
}

func (c *Character) CritRate(physical bool) float64 {
	if physical {
		return c.PhysCritRate.Value()
	}
	return c.SpellCritRate.Value()
}

func (c *Character) CritDamage(physical bool) float64 {
	if physical {
		return c.PhysCritDamage.Value()
	}
	return c.SpellCritDamage.Value()
}

func (c *Character) Dodge() float64 { return c.DodgeRate.Value() }

func (c *Character) BuffList() *BuffList                  { return &c.Buffs }
func (c *Character) ActiveEffects() Effects               { return c.Effects }
func (c *Character) SkillStates() map[string]*SkillState { return c.Skills }

// Learn adds skill to the character. Learning a known skill is a no-op.
func (c *Character) Learn(def SkillDef) *SkillState {
	if c.Skills == nil {
		c.Skills = make(map[string]*SkillState)
	}
	if st, ok := c.Skills[def.ID]; ok {
		return st
	}
	st := &SkillState{SkillID: def.ID, Cooldown: def.Cooldown}
	c.Skills[def.ID] = st
	return st
}

// GainResource adds n resource, capped at MaxResource.
func (c *Character) GainResource(n int) {
	c.Resource += n
	if c.Resource > c.MaxResource {
		c.Resource = c.MaxResource
	}
	if c.Resource < 0 {
		c.Resource = 0
	}
}

// SpendResource deducts n if affordable.
func (c *Character) SpendResource(n int) bool {
	if n <= 0 {
		return true
	}
	if c.Resource < n {
		return false
	}
	c.Resource -= n
	return true
}
