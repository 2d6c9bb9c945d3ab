package calc

import "github.com/kasuganosora/battlerunner/game/entity"

// Refresh recomputes every derived attribute of ch from its effective
// primary stats. Explicitly set attributes keep their value.
func (c Config) Refresh(ch *entity.Character) {
	str := ch.Effective(entity.StatStrength)
	agi := ch.Effective(entity.StatAgility)
	intl := ch.Effective(entity.StatIntellect)
	sta := ch.Effective(entity.StatStamina)
	spi := ch.Effective(entity.StatSpirit)

	ch.MaxHP.Recompute(c.MaxHP(ch.BaseHP, sta, str, 0))
	ch.PhysicalAttack.Recompute(PhysicalAttack(str, agi))
	ch.MagicAttack.Recompute(MagicAttack(intl, spi))
	ch.PhysicalDefense.Recompute(PhysicalDefense(sta, str))
	ch.MagicDefense.Recompute(MagicDefense(spi, intl))
	ch.PhysCritRate.Recompute(c.PhysCritRate(agi, 0))
	ch.SpellCritRate.Recompute(c.SpellCritRate(spi, 0))
	ch.PhysCritDamage.Recompute(PhysCritDamage(str))
	ch.SpellCritDamage.Recompute(SpellCritDamage(intl))
	ch.DodgeRate.Recompute(c.DodgeRate(agi))
	ch.Speed.Recompute(Speed(agi))
}

// StatsOf snapshots a combatant for formula evaluation.
func StatsOf(cb entity.Combatant) *Stats {
	s := &Stats{
		HP:    cb.CurrentHP(),
		MaxHP: cb.MaxHPValue(),
		Atk:   cb.Attack(true),
		Matk:  cb.Attack(false),
		Def:   cb.Defense(true),
		Mdef:  cb.Defense(false),
		Speed: cb.Effective(entity.StatSpeed),
	}
	switch v := cb.(type) {
	case *entity.Character:
		s.Level = v.Level
		s.Str = v.Effective(entity.StatStrength)
		s.Agi = v.Effective(entity.StatAgility)
		s.Int = v.Effective(entity.StatIntellect)
		s.Sta = v.Effective(entity.StatStamina)
		s.Spi = v.Effective(entity.StatSpirit)
	case *entity.Monster:
		s.Level = v.Level
		s.Agi = v.Speed
	}
	return s
}
