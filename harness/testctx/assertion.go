package testctx

import (
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/samber/lo"
)

// CharacterFields flattens ch into the values assertions read as
// "<alias>.<field>".
func CharacterFields(ch *entity.Character) map[string]any {
	return map[string]any{
		"id":                ch.ID,
		"name":              ch.Name,
		"class":             ch.Class,
		"level":             ch.Level,
		"faction":           ch.Faction,
		"hp":                ch.HP,
		"max_hp":            ch.MaxHPValue(),
		"resource":          ch.Resource,
		"max_resource":      ch.MaxResource,
		"resource_type":     ch.ResourceType,
		"strength":          ch.Effective(entity.StatStrength),
		"agility":           ch.Effective(entity.StatAgility),
		"intellect":         ch.Effective(entity.StatIntellect),
		"stamina":           ch.Effective(entity.StatStamina),
		"spirit":            ch.Effective(entity.StatSpirit),
		"physical_attack":   ch.Effective(entity.StatPhysicalAttack),
		"magic_attack":      ch.Effective(entity.StatMagicAttack),
		"physical_defense":  ch.Effective(entity.StatPhysicalDefense),
		"magic_defense":     ch.Effective(entity.StatMagicDefense),
		"phys_crit_rate":    ch.PhysCritRate.Value(),
		"phys_crit_damage":  ch.PhysCritDamage.Value(),
		"spell_crit_rate":   ch.SpellCritRate.Value(),
		"spell_crit_damage": ch.SpellCritDamage.Value(),
		"dodge_rate":        ch.DodgeRate.Value(),
		"speed":             ch.Effective(entity.StatSpeed),
		"gold":              ch.Gold,
		"exp":               ch.Exp,
		"alive":             ch.IsAlive(),
		"resting":           ch.Resting,
		"shield":            ch.Shield.Amount,
		"shield_duration":   ch.Shield.Remaining,
		"buff_count":        ch.Buffs.Len(),
		"equipped_count":    len(ch.Equipped),
		"stunned":           ch.Effects.Has(entity.EffectStunned),
	}
}

// MonsterFields flattens m into "<alias>.<field>" values.
func MonsterFields(m *entity.Monster) map[string]any {
	return map[string]any{
		"id":               m.ID,
		"name":             m.Name,
		"level":            m.Level,
		"hp":               m.HP,
		"max_hp":           m.MaxHP,
		"physical_attack":  m.Effective(entity.StatPhysicalAttack),
		"magic_attack":     m.Effective(entity.StatMagicAttack),
		"physical_defense": m.Effective(entity.StatPhysicalDefense),
		"magic_defense":    m.Effective(entity.StatMagicDefense),
		"phys_crit_rate":   m.PhysCritRate,
		"spell_crit_rate":  m.SpellCritRate,
		"dodge_rate":       m.DodgeRate,
		"speed":            m.Effective(entity.StatSpeed),
		"alive":            m.IsAlive(),
		"buff_count":       m.Buffs.Len(),
		"stunned":          m.Effects.Has(entity.EffectStunned),
	}
}

// UpdateAssertionContext recomputes the derived variables assertions read.
// It only reads entities and only writes Variables, so calling it twice in
// a row leaves the same state.
func (c *Context) UpdateAssertionContext() {
	if c.Variables == nil {
		c.Variables = make(map[string]any)
	}
	set := c.SetVariable

	for alias, ch := range c.Characters {
		for k, v := range CharacterFields(ch) {
			set(alias+"."+k, v)
		}
	}
	for alias, m := range c.Monsters {
		for k, v := range MonsterFields(m) {
			set(alias+"."+k, v)
		}
	}

	if ch, err := c.PrimaryCharacter(); err == nil {
		set("character_hp", ch.HP)
		set("character_max_hp", ch.MaxHPValue())
		set("character_resource", ch.Resource)
		set("character_level", ch.Level)
		set("character_exp", ch.Exp)
		set("character_gold", ch.Gold)
	}

	party := c.Party()
	set("team_total_exp", lo.SumBy(party, func(ch *entity.Character) int { return ch.Exp }))
	set("team_total_gold", lo.SumBy(party, func(ch *entity.Character) int { return ch.Gold }))
	set("team_alive_count", lo.CountBy(party, func(ch *entity.Character) bool { return ch.IsAlive() }))

	monsters := c.MonsterList()
	alive := lo.CountBy(monsters, func(m *entity.Monster) bool { return m.IsAlive() })
	set("enemy_alive_count", alive)
	set("enemy_death_count", len(monsters)-alive)
	set("character_count", len(c.Characters))
	set("monster_count", len(monsters))

	if t, ok := c.Teams[DefaultTeam]; ok {
		set("team.character_count", t.Count())
		set("team.unlocked_slots", t.UnlockedCount())
		set("team.capacity", len(t.Slots))
	}

	b := c.Battle
	if b == nil {
		b = NewBattleState()
	}
	set("battle_state", string(b.Phase))
	set("battle_round", b.Round)
	set("battle_log_length", len(b.Log))
	set("turn_order_length", len(b.TurnOrder))
	if b.Phase.Finished() {
		set("victory", b.Victory)
		set("exp_gained", b.ExpGained)
		set("gold_gained", b.GoldGained)
	}
	set("equipment_count", c.Equipment.Len())
	if c.Zone != nil {
		set("current_zone_id", c.Zone.ID)
		set("exp_multiplier", c.Zone.ExpMulti)
		set("gold_multiplier", c.Zone.GoldMulti)
	}
	if c.Shop != nil {
		set("shop.items_count", len(c.Shop))
	}
}
