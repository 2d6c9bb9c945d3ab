package entity

import "math"

// Stat names an attribute that equipment and buffs can modify.
type Stat string

const (
	StatStrength        Stat = "strength"
	StatAgility         Stat = "agility"
	StatIntellect       Stat = "intellect"
	StatStamina         Stat = "stamina"
	StatSpirit          Stat = "spirit"
	StatMaxHP           Stat = "max_hp"
	StatPhysicalAttack  Stat = "physical_attack"
	StatMagicAttack     Stat = "magic_attack"
	StatPhysicalDefense Stat = "physical_defense"
	StatMagicDefense    Stat = "magic_defense"
	StatSpeed           Stat = "speed"
)

// Modifier adjusts one stat. Flat is added to the base, Percent (0.1 = +10%)
// scales the sum.
type Modifier struct {
	Stat    Stat    `json:"stat"`
	Flat    int     `json:"flat,omitempty"`
	Percent float64 `json:"percent,omitempty"`
}

// applyModifiers folds mods for stat over base: (base + Σflat) * (1 + Σpercent).
func applyModifiers(base int, stat Stat, mods ...[]Modifier) int {
	flat, pct := 0, 0.0
	for _, list := range mods {
		for _, m := range list {
			if m.Stat != stat {
				continue
			}
			flat += m.Flat
			pct += m.Percent
		}
	}
	if flat == 0 && pct == 0 {
		return base
	}
	return int(math.Round(float64(base+flat) * (1 + pct)))
}
