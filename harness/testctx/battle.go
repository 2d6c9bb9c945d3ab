package testctx

import "github.com/kasuganosora/battlerunner/game/entity"

// Phase is the battle state machine position.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseVictory    Phase = "victory"
	PhaseDefeat     Phase = "defeat"
)

// Finished reports whether p is terminal.
func (p Phase) Finished() bool { return p == PhaseVictory || p == PhaseDefeat }

// TurnEntry is one slot of the turn order.
type TurnEntry struct {
	Kind  entity.Kind
	Alias string
	Speed int
}

// BattleEvent is one entry of the battle log.
type BattleEvent interface {
	EventType() string
}

// BattleState is the single battle a scenario runs.
type BattleState struct {
	Phase     Phase
	Round     int
	TurnOrder []TurnEntry
	Victory   bool
	// Defeated lists monster aliases killed in this battle, in kill order.
	Defeated   []string
	ExpGained  int
	GoldGained int
	Log        []BattleEvent
}

// NewBattleState returns a battle that has not started.
func NewBattleState() *BattleState {
	return &BattleState{Phase: PhaseNotStarted}
}

// Record appends ev to the log.
func (b *BattleState) Record(ev BattleEvent) {
	b.Log = append(b.Log, ev)
}

// Count returns how many logged events have type typ.
func (b *BattleState) Count(typ string) int {
	n := 0
	for _, ev := range b.Log {
		if ev.EventType() == typ {
			n++
		}
	}
	return n
}
