package battle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

// TurnManager determines the action order for a battle round.
type TurnManager interface {
	// MakeActionOrder sorts participants for the round.
	// The returned slice is a new ordering; the input is not modified.
	MakeActionOrder(participants []entity.Combatant) []entity.Combatant
}

// SpeedTurnManager orders by effective speed, fastest first. Equal speeds
// keep their input order, so the result is a total, repeatable order.
type SpeedTurnManager struct{}

func (SpeedTurnManager) MakeActionOrder(participants []entity.Combatant) []entity.Combatant {
	type entry struct {
		cb    entity.Combatant
		speed int
	}
	entries := make([]entry, 0, len(participants))
	for _, cb := range participants {
		if cb.IsAlive() {
			entries = append(entries, entry{cb: cb, speed: cb.Effective(entity.StatSpeed)})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].speed > entries[j].speed
	})

	result := make([]entity.Combatant, len(entries))
	for i, e := range entries {
		result[i] = e.cb
	}
	return result
}

// participants lists the fighting characters then the monsters.
func participants(tc *testctx.Context) []entity.Combatant {
	var all []entity.Combatant
	for _, ch := range tc.Party() {
		all = append(all, ch)
	}
	for _, m := range tc.MonsterList() {
		all = append(all, m)
	}
	return all
}

// BuildTurnOrder computes the turn order of the living participants and
// publishes it as turn_order[i].type/.alias/.speed.
func (e *Engine) BuildTurnOrder(tc *testctx.Context) []entity.Combatant {
	order := e.turnMgr.MakeActionOrder(participants(tc))

	for k := range tc.Variables {
		if strings.HasPrefix(k, "turn_order[") {
			delete(tc.Variables, k)
		}
	}
	entries := make([]testctx.TurnEntry, len(order))
	for i, cb := range order {
		speed := cb.Effective(entity.StatSpeed)
		entries[i] = testctx.TurnEntry{Kind: cb.Kind(), Alias: cb.Key(), Speed: speed}
		prefix := fmt.Sprintf("turn_order[%d].", i)
		tc.SetVariable(prefix+"type", string(cb.Kind()))
		tc.SetVariable(prefix+"alias", cb.Key())
		tc.SetVariable(prefix+"speed", speed)
	}
	battleState(tc).TurnOrder = entries
	tc.SetVariable("turn_order_length", len(entries))
	return order
}
