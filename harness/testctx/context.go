// Package testctx is the per-scenario state bag: variables, named entities,
// the equipment pool and the battle in progress. A Context belongs to one
// scenario and is discarded at teardown.
package testctx

import (
	"math/rand/v2"
	"sort"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/item"
)

// Well-known aliases.
const (
	PrimaryAlias   = "character"
	FallbackAlias  = "character_1"
	DefaultTeam    = "team"
	DefaultMonster = "monster"
)

// Context is the aggregate root a scenario mutates.
type Context struct {
	Variables  map[string]any
	Characters map[string]*entity.Character
	Monsters   map[string]*entity.Monster
	Teams      map[string]*entity.Team
	Equipment  *item.Inventory
	// Skills maps a skill alias to the definition created in this scenario.
	Skills map[string]*entity.SkillDef
	// Strategies maps a combatant alias to its action strategy.
	Strategies map[string]*entity.Strategy

	Zones map[string]*entity.Zone
	Zone  *entity.Zone   // current zone; nil = no multipliers
	Shop  map[string]int // item name -> price

	LastInstruction string
	Battle          *BattleState
	LoopDepth       int
	Rand            *rand.Rand

	seed    uint64
	seq     int
	eqAlias map[string]string
}

// New creates an empty Context whose RNG is seeded with seed.
func New(seed uint64) *Context {
	c := &Context{seed: seed}
	c.init()
	return c
}

func (c *Context) init() {
	c.Variables = make(map[string]any)
	c.Characters = make(map[string]*entity.Character)
	c.Monsters = make(map[string]*entity.Monster)
	c.Teams = make(map[string]*entity.Team)
	c.Skills = make(map[string]*entity.SkillDef)
	c.Strategies = make(map[string]*entity.Strategy)
	c.Zones = entity.BuiltinZones()
	c.Zone = nil
	c.Shop = nil
	c.Equipment = item.NewInventory()
	c.eqAlias = make(map[string]string)
	c.Battle = NewBattleState()
	c.Rand = rand.New(rand.NewPCG(c.seed, c.seed^0x9e3779b97f4a7c15))
	c.LoopDepth = 0
	c.LastInstruction = ""
	c.seq = 0
}

// Reset clears all state, as at teardown. The RNG is reseeded.
func (c *Context) Reset() { c.init() }

// ---- variables ----

// GetVariable returns the value stored under key.
func (c *Context) GetVariable(key string) (any, error) {
	v, ok := c.Variables[key]
	if !ok {
		return nil, errs.NotFound("variable", key)
	}
	return v, nil
}

// SetVariable stores v under key.
func (c *Context) SetVariable(key string, v any) {
	if c.Variables == nil {
		c.Variables = make(map[string]any)
	}
	c.Variables[key] = v
}

// DeleteVariable removes key if present.
func (c *Context) DeleteVariable(key string) { delete(c.Variables, key) }

// Int returns the variable as an int, or def when absent or not numeric.
func (c *Context) Int(key string, def int) int {
	switch v := c.Variables[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the variable as a float64, or def when absent or not numeric.
func (c *Context) Float(key string, def float64) float64 {
	switch v := c.Variables[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return def
}

// ---- characters ----

// AddCharacter stores ch under its alias and stamps its insertion order.
// A character already stored under the alias is replaced.
func (c *Context) AddCharacter(ch *entity.Character) {
	if c.Characters == nil {
		c.Characters = make(map[string]*entity.Character)
	}
	c.seq++
	ch.Seq = c.seq
	c.Characters[ch.Alias] = ch
}

// GetCharacter returns the character stored under alias.
func (c *Context) GetCharacter(alias string) (*entity.Character, error) {
	ch, ok := c.Characters[alias]
	if !ok || ch == nil {
		return nil, errs.NotFound("character", alias)
	}
	return ch, nil
}

// PrimaryCharacter resolves "character", falling back to "character_1".
func (c *Context) PrimaryCharacter() (*entity.Character, error) {
	if ch, ok := c.Characters[PrimaryAlias]; ok && ch != nil {
		return ch, nil
	}
	if ch, ok := c.Characters[FallbackAlias]; ok && ch != nil {
		return ch, nil
	}
	return nil, errs.NotFound("character", PrimaryAlias)
}

// RemoveCharacter drops alias from the context and from every team.
func (c *Context) RemoveCharacter(alias string) {
	delete(c.Characters, alias)
	for _, t := range c.Teams {
		if n := t.SlotOf(alias); n > 0 {
			_, _ = t.Remove(n)
		}
	}
}

// CharacterList returns all characters in insertion order.
func (c *Context) CharacterList() []*entity.Character {
	out := make([]*entity.Character, 0, len(c.Characters))
	for _, ch := range c.Characters {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ---- monsters ----

// AddMonster stores m under its alias and stamps its insertion order.
func (c *Context) AddMonster(m *entity.Monster) {
	if c.Monsters == nil {
		c.Monsters = make(map[string]*entity.Monster)
	}
	c.seq++
	m.Seq = c.seq
	c.Monsters[m.Alias] = m
}

// GetMonster returns the monster stored under alias.
func (c *Context) GetMonster(alias string) (*entity.Monster, error) {
	m, ok := c.Monsters[alias]
	if !ok || m == nil {
		return nil, errs.NotFound("monster", alias)
	}
	return m, nil
}

// PrimaryMonster resolves "monster", falling back to the first monster added.
func (c *Context) PrimaryMonster() (*entity.Monster, error) {
	if m, ok := c.Monsters[DefaultMonster]; ok && m != nil {
		return m, nil
	}
	if list := c.MonsterList(); len(list) > 0 {
		return list[0], nil
	}
	return nil, errs.NotFound("monster", DefaultMonster)
}

// MonsterList returns all monsters in insertion order.
func (c *Context) MonsterList() []*entity.Monster {
	out := make([]*entity.Monster, 0, len(c.Monsters))
	for _, m := range c.Monsters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ---- teams ----

// SetTeam stores t under its alias.
func (c *Context) SetTeam(t *entity.Team) {
	if c.Teams == nil {
		c.Teams = make(map[string]*entity.Team)
	}
	c.Teams[t.Alias] = t
}

// GetTeam returns the team stored under alias.
func (c *Context) GetTeam(alias string) (*entity.Team, error) {
	t, ok := c.Teams[alias]
	if !ok || t == nil {
		return nil, errs.NotFound("team", alias)
	}
	return t, nil
}

// Party returns the characters that fight: the members of the default team
// if one has members, otherwise every character.
func (c *Context) Party() []*entity.Character {
	if t, ok := c.Teams[DefaultTeam]; ok && t.Count() > 0 {
		var out []*entity.Character
		for _, alias := range t.Members() {
			if ch, ok := c.Characters[alias]; ok {
				out = append(out, ch)
			}
		}
		return out
	}
	return c.CharacterList()
}

// ---- equipment ----

// AddEquipment registers eq in the pool, optionally under alias.
func (c *Context) AddEquipment(alias string, eq *entity.Equipment) error {
	if c.Equipment == nil {
		c.Equipment = item.NewInventory()
	}
	if err := c.Equipment.Add(eq); err != nil {
		return err
	}
	if alias != "" {
		if c.eqAlias == nil {
			c.eqAlias = make(map[string]string)
		}
		c.eqAlias[alias] = eq.ID
	}
	return nil
}

// GetEquipment resolves ref as an equipment alias, then as an item id.
func (c *Context) GetEquipment(ref string) (*entity.Equipment, error) {
	if c.Equipment == nil {
		return nil, errs.NotFound("equipment", ref)
	}
	if id, ok := c.eqAlias[ref]; ok {
		ref = id
	}
	eq, ok := c.Equipment.Get(ref)
	if !ok {
		return nil, errs.NotFound("equipment", ref)
	}
	return eq, nil
}

// ---- skills ----

// SetSkill records a skill definition created in this scenario.
func (c *Context) SetSkill(alias string, def *entity.SkillDef) {
	if c.Skills == nil {
		c.Skills = make(map[string]*entity.SkillDef)
	}
	c.Skills[alias] = def
}

// GetSkill resolves a skill alias or id.
func (c *Context) GetSkill(ref string) (*entity.SkillDef, error) {
	if def, ok := c.Skills[ref]; ok {
		return def, nil
	}
	for _, def := range c.Skills {
		if def.ID == ref || def.Name == ref {
			return def, nil
		}
	}
	return nil, errs.NotFound("skill", ref)
}

// LastSkill returns the most recently defined skill, if any.
func (c *Context) LastSkill() (*entity.SkillDef, error) {
	if v, ok := c.Variables["skill_id"].(string); ok {
		return c.GetSkill(v)
	}
	return nil, errs.NotFound("skill", "skill")
}

// ---- zones & strategies ----

// GetZone resolves a zone by id or display name.
func (c *Context) GetZone(ref string) (*entity.Zone, error) {
	if z, ok := c.Zones[ref]; ok {
		return z, nil
	}
	for _, z := range c.Zones {
		if z.Name == ref {
			return z, nil
		}
	}
	return nil, errs.NotFound("zone", ref)
}

// Strategy returns the strategy configured for alias, or nil.
func (c *Context) Strategy(alias string) *entity.Strategy {
	return c.Strategies[alias]
}

// EnsureStrategy returns the strategy for alias, creating an empty one.
func (c *Context) EnsureStrategy(alias string) *entity.Strategy {
	if c.Strategies == nil {
		c.Strategies = make(map[string]*entity.Strategy)
	}
	s, ok := c.Strategies[alias]
	if !ok {
		s = &entity.Strategy{}
		c.Strategies[alias] = s
	}
	return s
}
