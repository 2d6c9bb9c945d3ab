package entity

// Skill effect kinds.
const (
	SkillDamage = "damage"
	SkillHeal   = "heal"
	SkillBuff   = "buff"
)

// SkillDef is the static description of a skill.
type SkillDef struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	Cost             int     `json:"cost"`
	Cooldown         int     `json:"cooldown"`
	DamageMultiplier float64 `json:"damage_multiplier"`
	DamageType       string  `json:"damage_type"`
	HealAmount       int     `json:"heal_amount,omitempty"`
	BuffStat         Stat    `json:"buff_stat,omitempty"`
	BuffPercent      float64 `json:"buff_percent,omitempty"`
	BuffDuration     int     `json:"buff_duration,omitempty"`
	AOE              bool    `json:"aoe,omitempty"`
	// Formula replaces DamageMultiplier when set, e.g. "a.atk*2 - b.def".
	Formula string `json:"formula,omitempty"`
}

// SkillState is an owner's view of one learned skill.
type SkillState struct {
	SkillID       string `json:"skill_id"`
	Cooldown      int    `json:"cooldown"`
	Remaining     int    `json:"remaining"`
	LastUsedRound int    `json:"last_used_round"` // 0 = never used
}

// Ready reports whether the skill is off cooldown.
func (s *SkillState) Ready() bool { return s.Remaining <= 0 }
