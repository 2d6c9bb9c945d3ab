package battle

import (
	"context"
	"sort"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

// Action is what a combatant does on its turn. A nil Skill is a basic attack.
type Action struct {
	Skill   *entity.SkillDef
	Targets []entity.Combatant
}

// opponents returns the living enemies of cb in targeting order.
func opponents(tc *testctx.Context, cb entity.Combatant) []entity.Combatant {
	var out []entity.Combatant
	if cb.Kind() == entity.KindCharacter {
		for _, m := range aliveMonsters(tc) {
			out = append(out, m)
		}
		return out
	}
	for _, ch := range aliveParty(tc) {
		out = append(out, ch)
	}
	return out
}

// allies returns the living members of cb's side.
func allies(tc *testctx.Context, cb entity.Combatant) []entity.Combatant {
	var out []entity.Combatant
	if cb.Kind() == entity.KindMonster {
		for _, m := range aliveMonsters(tc) {
			out = append(out, m)
		}
		return out
	}
	for _, ch := range aliveParty(tc) {
		out = append(out, ch)
	}
	return out
}

// lookupSkill resolves a skill defined in the scenario, then in the skill
// service.
func (e *Engine) lookupSkill(ctx context.Context, tc *testctx.Context, id string) (*entity.SkillDef, error) {
	def, err := tc.GetSkill(id)
	if err == nil {
		return def, nil
	}
	if e.skills == nil {
		return nil, err
	}
	return e.skills.Lookup(ctx, id)
}

// canAfford reports whether cb has the resource for def. Monsters cast for free.
func canAfford(cb entity.Combatant, def *entity.SkillDef) bool {
	ch, ok := cb.(*entity.Character)
	if !ok {
		return true
	}
	return ch.Resource >= def.Cost
}

// Decision is a chosen action and the reason it was chosen.
type Decision struct {
	Action *Action
	Rule   string // "rule:<cond>", "priority", "ready" or "basic"
}

// chooseAction picks the action for cb's turn.
func (e *Engine) chooseAction(ctx context.Context, tc *testctx.Context, cb entity.Combatant) *Action {
	return e.decide(ctx, tc, cb).Action
}

// decide applies cb's strategy rules in order, then its skill priority, then
// every other ready skill in id order, and falls back to a basic attack on the
// first living opponent. Without a strategy only the last two steps apply.
func (e *Engine) decide(ctx context.Context, tc *testctx.Context, cb entity.Combatant) Decision {
	foes := opponents(tc, cb)
	strat := tc.Strategy(cb.Key())

	if strat != nil {
		for _, r := range strat.Rules {
			if !conditionHolds(tc, cb, foes, r.When) {
				continue
			}
			reason := "rule:" + r.When.String()
			if r.SkillID == "" {
				if len(foes) > 0 {
					return Decision{Action: &Action{Targets: foes[:1]}, Rule: reason}
				}
				continue
			}
			if a := e.trySkill(ctx, tc, cb, r.SkillID, foes); a != nil {
				return Decision{Action: a, Rule: reason}
			}
		}
	}

	tried := make(map[string]bool)
	if strat != nil {
		for _, id := range strat.SkillPriority {
			tried[id] = true
			if a := e.trySkill(ctx, tc, cb, id, foes); a != nil {
				return Decision{Action: a, Rule: "priority"}
			}
		}
	}

	states := cb.SkillStates()
	ids := make([]string, 0, len(states))
	for id := range states {
		if !tried[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if a := e.trySkill(ctx, tc, cb, id, foes); a != nil {
			return Decision{Action: a, Rule: "ready"}
		}
	}

	if len(foes) == 0 {
		return Decision{Rule: "basic"}
	}
	return Decision{Action: &Action{Targets: foes[:1]}, Rule: "basic"}
}

// Decide reports what the combatant alias would do if it acted now.
func (e *Engine) Decide(ctx context.Context, tc *testctx.Context, alias string) (Decision, error) {
	cb, err := e.findCombatant(tc, alias)
	if err != nil {
		return Decision{}, err
	}
	return e.decide(ctx, tc, cb), nil
}

// trySkill returns an action casting id, or nil when cb cannot use it now.
func (e *Engine) trySkill(ctx context.Context, tc *testctx.Context, cb entity.Combatant, id string, foes []entity.Combatant) *Action {
	if cb.ActiveEffects().Has(entity.EffectSilenced) {
		return nil
	}
	st, ok := cb.SkillStates()[id]
	if !ok || !st.Ready() {
		return nil
	}
	def, err := e.lookupSkill(ctx, tc, id)
	if err != nil || !canAfford(cb, def) {
		return nil
	}
	if targets := skillTargets(tc, cb, def, foes); len(targets) > 0 {
		return &Action{Skill: def, Targets: targets}
	}
	return nil
}

func conditionHolds(tc *testctx.Context, cb entity.Combatant, foes []entity.Combatant, c entity.Condition) bool {
	if c.Op == "" {
		return true
	}
	subject := cb
	if c.Subject == entity.SubjectTarget {
		if len(foes) == 0 {
			return false
		}
		subject = foes[0]
	}
	var v float64
	switch c.Metric {
	case entity.MetricHPPercent:
		if subject.MaxHPValue() <= 0 {
			return false
		}
		v = float64(subject.CurrentHP()) * 100 / float64(subject.MaxHPValue())
	case entity.MetricHP:
		v = float64(subject.CurrentHP())
	case entity.MetricResource:
		switch x := subject.(type) {
		case *entity.Character:
			v = float64(x.Resource)
		case *entity.Monster:
			v = float64(x.Resource)
		}
	case entity.MetricEnemies:
		v = float64(len(foes))
	case entity.MetricRound:
		v = float64(tc.Battle.Round)
	default:
		return false
	}
	return c.Holds(v)
}

func skillTargets(tc *testctx.Context, cb entity.Combatant, def *entity.SkillDef, foes []entity.Combatant) []entity.Combatant {
	switch def.Kind {
	case entity.SkillHeal:
		// Most wounded ally by missing HP; nobody hurt means no heal.
		var best entity.Combatant
		bestMissing := 0
		for _, a := range allies(tc, cb) {
			if missing := a.MaxHPValue() - a.CurrentHP(); missing > bestMissing {
				best, bestMissing = a, missing
			}
		}
		if best == nil {
			return nil
		}
		return []entity.Combatant{best}
	case entity.SkillBuff:
		if cb.BuffList().Get(def.ID) != nil {
			return nil
		}
		return []entity.Combatant{cb}
	default:
		if len(foes) == 0 {
			return nil
		}
		if def.AOE {
			return foes
		}
		return foes[:1]
	}
}
