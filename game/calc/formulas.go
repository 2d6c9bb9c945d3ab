// Package calc implements the combat formulas: derived stats, the damage
// pipeline, healing, resource regeneration and cooldown arithmetic.
// Every function is pure; randomness enters only through a Roller.
package calc

import "math"

// Config carries the balance caps. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	CritCap          float64 `mapstructure:"crit_cap"`
	DodgeCap         float64 `mapstructure:"dodge_cap"`
	HPStrengthFactor float64 `mapstructure:"hp_strength_factor"`
}

// DefaultConfig returns the standard balance caps.
func DefaultConfig() Config {
	return Config{CritCap: 0.4, DodgeCap: 0.5}
}

const (
	baseCritRate   = 0.05
	baseCritDamage = 1.5
	baseDodgeRate  = 0.05
	defaultSpeed   = 10
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundInt(v float64) int { return int(math.Round(v)) }

// PhysicalAttack = round(str*0.4 + agi*0.2), at least 1.
func PhysicalAttack(str, agi int) int {
	return max(1, roundInt(float64(str)*0.4+float64(agi)*0.2))
}

// MagicAttack = round(int*1.0 + spi*0.2), at least 1.
func MagicAttack(intellect, spi int) int {
	return max(1, roundInt(float64(intellect)+float64(spi)*0.2))
}

// MaxHP = round((baseHP + sta*2) * (1 + str*HPStrengthFactor + bonus)), at least 1.
func (c Config) MaxHP(baseHP, sta, str int, bonus float64) int {
	if baseHP < 0 {
		baseHP = 0
	}
	scale := 1 + float64(str)*c.HPStrengthFactor + bonus
	return max(1, roundInt(float64(baseHP+sta*2)*scale))
}

// MaxMP = baseMP + spi*2, never negative.
func MaxMP(baseMP, spi int) int {
	return max(0, max(0, baseMP)+spi*2)
}

// PhysicalDefense = round(sta*0.5 + str*0.1).
func PhysicalDefense(sta, str int) int {
	return max(0, roundInt(float64(sta)*0.5+float64(str)*0.1))
}

// MagicDefense = round(spi*0.5 + int*0.1).
func MagicDefense(spi, intellect int) int {
	return max(0, roundInt(float64(spi)*0.5+float64(intellect)*0.1))
}

// ClampCrit bounds a crit rate to [0, CritCap].
func (c Config) ClampCrit(rate float64) float64 {
	return Clamp(rate, 0, c.CritCap)
}

// PhysCritRate = 0.05 + agi/2000 + bonus, clamped.
func (c Config) PhysCritRate(agi int, bonus float64) float64 {
	return c.ClampCrit(baseCritRate + float64(agi)/20/100 + bonus)
}

// SpellCritRate = 0.05 + spi/2000 + bonus, clamped.
func (c Config) SpellCritRate(spi int, bonus float64) float64 {
	return c.ClampCrit(baseCritRate + float64(spi)/20/100 + bonus)
}

// PhysCritDamage = 1.5 + str*0.003, at least 1.
func PhysCritDamage(str int) float64 {
	return math.Max(1, baseCritDamage+float64(str)*0.003)
}

// SpellCritDamage = 1.5 + int*0.003, at least 1.
func SpellCritDamage(intellect int) float64 {
	return math.Max(1, baseCritDamage+float64(intellect)*0.003)
}

// DodgeRate = 0.05 + agi/2000, clamped to [0, DodgeCap].
func (c Config) DodgeRate(agi int) float64 {
	return Clamp(baseDodgeRate+float64(agi)/20/100, 0, c.DodgeCap)
}

// Speed equals agility, at least 1.
func Speed(agi int) int {
	return max(1, agi)
}

// ManaRegen = base + round(spi*0.1).
func ManaRegen(base, spi int) int {
	return max(0, max(0, base)+roundInt(float64(spi)*0.1))
}

// RageGain = round(base * (1 + bonusPercent/100)).
func RageGain(base int, bonusPercent float64) int {
	return max(0, roundInt(float64(max(0, base))*(1+math.Max(0, bonusPercent)/100)))
}

// EnergyRegen is the flat base amount.
func EnergyRegen(base int) int {
	return max(0, base)
}

// HealResult splits a heal into what landed and what overflowed.
type HealResult struct {
	Final    int
	Actual   int
	Overheal int
}

// Healing = round(base * mult * (1 + bonusPercent/100)), capped at missing HP.
func Healing(base int, mult, bonusPercent float64, hp, maxHP int) HealResult {
	final := roundInt(math.Max(0, float64(base)*math.Max(0, mult)*(1+math.Max(0, bonusPercent)/100)))
	missing := max(0, maxHP-hp)
	r := HealResult{Final: final, Actual: final}
	if final > missing {
		r.Actual = missing
		r.Overheal = final - missing
	}
	return r
}

// CooldownLeft = max(0, cooldown - (currentRound - lastUsedRound)).
// A never-used skill (lastUsedRound 0) has no cooldown.
func CooldownLeft(cooldown, lastUsedRound, currentRound int) int {
	if lastUsedRound <= 0 {
		return 0
	}
	return max(0, cooldown-(currentRound-lastUsedRound))
}

// Usable reports whether a skill is off cooldown.
func Usable(cooldown, lastUsedRound, currentRound int) bool {
	return CooldownLeft(cooldown, lastUsedRound, currentRound) <= 0
}
