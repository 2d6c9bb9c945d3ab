package battle

import (
	"context"
	"math"

	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

// Regen bases applied by one rest tick.
const (
	RestManaBase   = 5
	RestEnergyBase = 20
	RestHPFraction = 0.1
)

// EnterRest puts every living party member into the resting state and
// applies one regeneration tick. Members already resting are untouched.
func (e *Engine) EnterRest(ctx context.Context, tc *testctx.Context) error {
	if battleState(tc).Phase == testctx.PhaseInProgress {
		return ErrInBattle
	}
	for _, ch := range aliveParty(tc) {
		if ch.Resting {
			continue
		}
		ch.Resting = true
		hpBefore, resBefore := ch.HP, ch.Resource
		ch.SetHP(ch.HP + max(1, int(math.Round(float64(ch.MaxHPValue())*RestHPFraction))))
		switch ch.ResourceType {
		case entity.ResourceMana:
			ch.GainResource(calc.ManaRegen(tc.Int("mana_base_regen", RestManaBase), ch.Effective(entity.StatSpirit)))
		case entity.ResourceEnergy:
			ch.GainResource(calc.EnergyRegen(tc.Int("energy_base_regen", RestEnergyBase)))
		case entity.ResourceRage:
			ch.Resource = 0
		}
		battleState(tc).Record(EventRest{Alias: ch.Alias, HPChange: ch.HP - hpBefore, Resource: ch.Resource - resBefore})
	}
	tc.SetVariable("is_resting", true)
	return nil
}

// FinishRest completes the rest: HP is full, mana and energy are full and
// rage stays empty. The resting flag is cleared.
func (e *Engine) FinishRest(ctx context.Context, tc *testctx.Context) error {
	if err := e.EnterRest(ctx, tc); err != nil {
		return err
	}
	for _, ch := range aliveParty(tc) {
		hpBefore, resBefore := ch.HP, ch.Resource
		ch.SetHP(ch.MaxHPValue())
		if ch.ResourceType != entity.ResourceRage {
			ch.Resource = ch.MaxResource
		}
		ch.Resting = false
		battleState(tc).Record(EventRest{Alias: ch.Alias, HPChange: ch.HP - hpBefore, Resource: ch.Resource - resBefore, Finished: true})
	}
	tc.SetVariable("is_resting", false)
	return nil
}
