package calc

import "math"

// DamageType selects which defense and crit stats apply.
type DamageType string

const (
	Physical DamageType = "physical"
	Magic    DamageType = "magic"
)

// Roller supplies uniform rolls in [0, 1). *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

// DamageInput bundles everything needed to resolve one hit.
type DamageInput struct {
	Attack     int
	Multiplier float64 // 0 means 1
	Defense    int
	CritRate   float64
	CritDamage float64
	DodgeRate  float64
	Type       DamageType

	ForceCrit   bool
	NoCrit      bool
	IgnoreDodge bool
}

// DamageResult records every pipeline stage so each can be asserted on.
type DamageResult struct {
	Base         float64
	AfterCrit    float64
	AfterDefense float64
	Final        int
	IsCrit       bool
	IsDodged     bool
}

// BaseDamage = attack * multiplier, never negative.
func BaseDamage(attack int, multiplier float64) float64 {
	return math.Max(0, float64(attack)*multiplier)
}

// ApplyCrit multiplies dmg by critMultiplier (at least 1) when crit is set.
func ApplyCrit(dmg, critMultiplier float64, crit bool) float64 {
	if !crit {
		return dmg
	}
	return dmg * math.Max(1, critMultiplier)
}

// ApplyDefense subtracts defense. Positive damage never drops below 1.
func ApplyDefense(dmg float64, defense int) float64 {
	if dmg <= 0 {
		return 0
	}
	return math.Max(1, dmg-float64(max(0, defense)))
}

// Finalize rounds to an integer hit; positive damage is at least 1.
func Finalize(dmg float64) int {
	if dmg <= 0 {
		return 0
	}
	return max(1, roundInt(dmg))
}

// Resolve runs the pipeline: base -> crit -> defense -> final.
// Crit is rolled first; physical hits then roll dodge. A nil roller
// disables both rolls, leaving only ForceCrit.
func (c Config) Resolve(in DamageInput, r Roller) DamageResult {
	mult := in.Multiplier
	if mult == 0 {
		mult = 1
	}
	res := DamageResult{Base: BaseDamage(in.Attack, mult)}

	switch {
	case in.ForceCrit:
		res.IsCrit = true
	case in.NoCrit || r == nil:
	default:
		res.IsCrit = r.Float64() < c.ClampCrit(in.CritRate)
	}
	res.AfterCrit = ApplyCrit(res.Base, in.CritDamage, res.IsCrit)
	res.AfterDefense = ApplyDefense(res.AfterCrit, in.Defense)

	if !in.IgnoreDodge && in.Type != Magic && r != nil {
		if r.Float64() < Clamp(in.DodgeRate, 0, c.DodgeCap) {
			res.IsDodged = true
			return res
		}
	}
	res.Final = Finalize(res.AfterDefense)
	return res
}
