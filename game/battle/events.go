package battle

import (
	"github.com/kasuganosora/battlerunner/game/entity"
)

// CombatantRef identifies a combatant in event payloads.
type CombatantRef struct {
	Kind  entity.Kind `json:"kind"`
	Alias string      `json:"alias"`
}

// Snapshot is a full view of a combatant's state.
type Snapshot struct {
	Kind     entity.Kind `json:"kind"`
	Alias    string      `json:"alias"`
	HP       int         `json:"hp"`
	MaxHP    int         `json:"max_hp"`
	Speed    int         `json:"speed"`
	Resource int         `json:"resource,omitempty"`
	Level    int         `json:"level,omitempty"`
}

func SnapshotCombatant(cb entity.Combatant) Snapshot {
	s := Snapshot{
		Kind:  cb.Kind(),
		Alias: cb.Key(),
		HP:    cb.CurrentHP(),
		MaxHP: cb.MaxHPValue(),
		Speed: cb.Effective(entity.StatSpeed),
	}
	switch v := cb.(type) {
	case *entity.Character:
		s.Resource = v.Resource
		s.Level = v.Level
	case *entity.Monster:
		s.Resource = v.Resource
		s.Level = v.Level
	}
	return s
}

func RefCombatant(cb entity.Combatant) CombatantRef {
	return CombatantRef{Kind: cb.Kind(), Alias: cb.Key()}
}

// --- Concrete event types ---

type EventBattleStart struct {
	Characters []Snapshot `json:"characters"`
	Monsters   []Snapshot `json:"monsters"`
}

func (EventBattleStart) EventType() string { return "battle_start" }

type EventTurnStart struct {
	Round int            `json:"round"`
	Order []CombatantRef `json:"order"`
	// Expired maps a combatant alias to the buffs and shields that ran out
	// when the round began.
	Expired map[string][]string `json:"expired,omitempty"`
}

func (EventTurnStart) EventType() string { return "turn_start" }

// EventTurnEnd lists the control effects that ran out after the round.
type EventTurnEnd struct {
	Round   int                 `json:"round"`
	Expired map[string][]string `json:"expired"`
}

func (EventTurnEnd) EventType() string { return "turn_end" }

type ActionResultTarget struct {
	Target   CombatantRef `json:"target"`
	Damage   int          `json:"damage"` // positive=damage, negative=heal
	Absorbed int          `json:"absorbed,omitempty"`
	Critical bool         `json:"critical"`
	Missed   bool         `json:"missed"`
	HPAfter  int          `json:"hp_after"`
	Killed   bool         `json:"killed,omitempty"`
}

type EventActionResult struct {
	Round   int                  `json:"round"`
	Subject CombatantRef         `json:"subject"`
	SkillID string               `json:"skill_id,omitempty"`
	Targets []ActionResultTarget `json:"targets"`
}

func (EventActionResult) EventType() string { return "action_result" }

type EventRest struct {
	Alias    string `json:"alias"`
	HPChange int    `json:"hp_change"`
	Resource int    `json:"resource_change"`
	Finished bool   `json:"finished"`
}

func (EventRest) EventType() string { return "rest" }

type LevelUpEntry struct {
	Alias    string `json:"alias"`
	NewLevel int    `json:"new_level"`
}

type EventBattleEnd struct {
	Victory  bool           `json:"victory"`
	Rounds   int            `json:"rounds"`
	Exp      int            `json:"exp"`
	Gold     int            `json:"gold"`
	LevelUps []LevelUpEntry `json:"level_ups,omitempty"`
}

func (EventBattleEnd) EventType() string { return "battle_end" }
