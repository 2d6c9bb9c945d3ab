package entity

// Factions.
const (
	FactionAlliance = "alliance"
	FactionHorde    = "horde"
	FactionNeutral  = "neutral"
)

// Zone is a map area. Rewards earned while a zone is current are scaled by
// its multipliers.
type Zone struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	MinLevel  int     `json:"min_level"`
	MaxLevel  int     `json:"max_level"`
	Faction   string  `json:"faction"` // "" or neutral = open to all
	ExpMulti  float64 `json:"exp_multiplier"`
	GoldMulti float64 `json:"gold_multiplier"`
}

// NewZone builds a zone with neutral multipliers and no level cap.
func NewZone(id, name string) *Zone {
	return &Zone{ID: id, Name: name, MinLevel: 1, ExpMulti: 1, GoldMulti: 1}
}

// Accepts reports why ch may not enter z, or "" when entry is allowed.
func (z *Zone) Accepts(ch *Character) string {
	if ch.Level < z.MinLevel {
		return "level too low"
	}
	if z.Faction != "" && z.Faction != FactionNeutral && ch.Faction != "" && ch.Faction != z.Faction {
		return "faction mismatch"
	}
	return ""
}

// Scale applies the zone multipliers to base rewards, truncating.
func (z *Zone) Scale(exp, gold int) (int, int) {
	if z == nil {
		return exp, gold
	}
	return int(float64(exp) * z.ExpMulti), int(float64(gold) * z.GoldMulti)
}

// BuiltinZones returns fresh copies of the starting zones.
func BuiltinZones() map[string]*Zone {
	return map[string]*Zone{
		"elwynn":  {ID: "elwynn", Name: "艾尔文森林", MinLevel: 1, MaxLevel: 10, Faction: FactionAlliance, ExpMulti: 1, GoldMulti: 1},
		"durotar": {ID: "durotar", Name: "杜隆塔尔", MinLevel: 1, MaxLevel: 10, Faction: FactionHorde, ExpMulti: 1, GoldMulti: 1},
	}
}
