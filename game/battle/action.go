package battle

import (
	"context"
	"fmt"
	"math"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

// Rage rules for rage-based characters.
const (
	RageOnAttack = 10
	RageOnHit    = 5
)

// SkillOutcome reports what a skill use did. Used is false when the skill
// could not be cast; Reason then says why and nothing was changed.
type SkillOutcome struct {
	Used    bool
	Reason  string
	Damage  int
	Heal    calc.HealResult
	Targets []ActionResultTarget
}

func rageGain(tc *testctx.Context, base int) int {
	return calc.RageGain(base, tc.Float("rage_bonus_percent", 0))
}

// strike resolves one hit and applies it: shield absorption, HP loss, rage
// and death bookkeeping. With roll unset no crit or dodge is rolled.
func (e *Engine) strike(tc *testctx.Context, attacker, target entity.Combatant, mult float64, typ calc.DamageType, roll bool) ActionResultTarget {
	return e.hit(tc, attacker, target, damageInput(attacker, target, mult, typ, roll), roll)
}

// formulaBases evaluates a damage skill's formula against every target
// before anything is spent or hit. It returns nil for skills without one.
func formulaBases(cb entity.Combatant, def *entity.SkillDef, targets []entity.Combatant) ([]float64, error) {
	if def.Formula == "" || def.Kind == entity.SkillHeal || def.Kind == entity.SkillBuff {
		return nil, nil
	}
	a := FormulaStats(cb)
	bases := make([]float64, len(targets))
	for i, t := range targets {
		v, err := calc.EvalFormula(def.Formula, a, FormulaStats(t))
		if err != nil {
			return nil, errs.Malformed("公式", fmt.Sprintf("%s (%s: %v)", def.Formula, t.Key(), err))
		}
		bases[i] = v
	}
	return bases, nil
}

// strikeBase is strike with a precomputed base damage. A formula accounts
// for defense itself.
func (e *Engine) strikeBase(tc *testctx.Context, attacker, target entity.Combatant, base float64, typ calc.DamageType, roll bool) ActionResultTarget {
	in := damageInput(attacker, target, 1, typ, roll)
	in.Attack = int(math.Round(base))
	in.Defense = 0
	return e.hit(tc, attacker, target, in, roll)
}

// FormulaStats exposes cb's effective values to skill formulas.
func FormulaStats(cb entity.Combatant) *calc.Stats {
	st := &calc.Stats{
		HP:    cb.CurrentHP(),
		MaxHP: cb.MaxHPValue(),
		Atk:   cb.Attack(true),
		Matk:  cb.Attack(false),
		Def:   cb.Defense(true),
		Mdef:  cb.Defense(false),
		Speed: cb.Effective(entity.StatSpeed),
	}
	switch v := cb.(type) {
	case *entity.Character:
		st.Str, st.Agi, st.Int, st.Sta, st.Spi = v.Strength, v.Agility, v.Intellect, v.Stamina, v.Spirit
		st.Level = v.Level
	case *entity.Monster:
		st.Level = v.Level
	}
	return st
}

func damageInput(attacker, target entity.Combatant, mult float64, typ calc.DamageType, roll bool) calc.DamageInput {
	physical := typ != calc.Magic
	return calc.DamageInput{
		Attack:      attacker.Attack(physical),
		Multiplier:  mult,
		Defense:     target.Defense(physical),
		CritRate:    attacker.CritRate(physical),
		CritDamage:  attacker.CritDamage(physical),
		DodgeRate:   target.Dodge(),
		Type:        typ,
		NoCrit:      !roll,
		IgnoreDodge: !roll,
	}
}

// hit resolves in and applies the result: shield, rage, HP and death.
func (e *Engine) hit(tc *testctx.Context, attacker, target entity.Combatant, in calc.DamageInput, roll bool) ActionResultTarget {
	var roller calc.Roller
	if roll && tc.Rand != nil {
		roller = tc.Rand
	}
	res := e.calc.Resolve(in, roller)

	out := ActionResultTarget{
		Target:   RefCombatant(target),
		Critical: res.IsCrit,
		Missed:   res.IsDodged,
	}
	dmg := res.Final
	if ch, ok := target.(*entity.Character); ok && dmg > 0 {
		left := ch.Shield.Absorb(dmg)
		out.Absorbed = dmg - left
		dmg = left
	}
	out.Damage = dmg

	if a, ok := attacker.(*entity.Character); ok && a.ResourceType == entity.ResourceRage {
		a.GainResource(rageGain(tc, RageOnAttack))
	}
	if dmg > 0 {
		target.SetHP(target.CurrentHP() - dmg)
	}
	out.HPAfter = target.CurrentHP()

	if !target.IsAlive() {
		out.Killed = true
		e.onDeath(tc, attacker, target)
	} else if ch, ok := target.(*entity.Character); ok && ch.ResourceType == entity.ResourceRage && !res.IsDodged {
		ch.GainResource(rageGain(tc, RageOnHit))
	}
	return out
}

func (e *Engine) onDeath(tc *testctx.Context, killer, victim entity.Combatant) {
	b := battleState(tc)
	switch v := victim.(type) {
	case *entity.Monster:
		b.Defeated = append(b.Defeated, v.Alias)
		if k, ok := killer.(*entity.Character); ok && k.ResourceType == entity.ResourceRage {
			k.Resource = 0
		}
	case *entity.Character:
		if v.ResourceType == entity.ResourceRage {
			v.Resource = 0
		}
	}
	e.logger.Debug("combatant died",
		zap.String("victim", victim.Key()),
		zap.String("killer", killer.Key()))
}

// act performs cb's turn inside a round.
func (e *Engine) act(ctx context.Context, tc *testctx.Context, cb entity.Combatant) error {
	action := e.chooseAction(ctx, tc, cb)
	if action == nil {
		return nil
	}
	if action.Skill != nil {
		_, err := e.cast(ctx, tc, cb, action.Skill, action.Targets, true)
		return err
	}
	out := e.strike(tc, cb, action.Targets[0], 1, calc.Physical, true)
	battleState(tc).Record(EventActionResult{
		Round:   battleState(tc).Round,
		Subject: RefCombatant(cb),
		Targets: []ActionResultTarget{out},
	})
	e.checkEnd(tc)
	return nil
}

func invalidTarget(alias, reason string, cause error) error {
	return &errs.InvalidTargetError{Target: alias, Reason: reason, Cause: cause}
}

// resolveMonsterTarget finds the monster to attack: alias, or the first
// living monster when alias is empty.
func resolveMonsterTarget(tc *testctx.Context, alias string) (*entity.Monster, error) {
	if alias == "" {
		alive := aliveMonsters(tc)
		if len(alive) == 0 {
			return nil, invalidTarget("monster", "no living monster", nil)
		}
		return alive[0], nil
	}
	m, err := tc.GetMonster(alias)
	if err != nil {
		return nil, invalidTarget(alias, "not found", err)
	}
	if !m.IsAlive() {
		return nil, invalidTarget(alias, "already dead", nil)
	}
	return m, nil
}

// resolveCharacterTarget finds the character to attack: alias, else the
// primary character if alive, else the first living party member.
func resolveCharacterTarget(tc *testctx.Context, alias string) (*entity.Character, error) {
	if alias == "" {
		if ch, err := tc.PrimaryCharacter(); err == nil && ch.IsAlive() {
			return ch, nil
		}
		alive := aliveParty(tc)
		if len(alive) == 0 {
			return nil, invalidTarget("character", "no living character", nil)
		}
		return alive[0], nil
	}
	ch, err := tc.GetCharacter(alias)
	if err != nil {
		return nil, invalidTarget(alias, "not found", err)
	}
	if !ch.IsAlive() {
		return nil, invalidTarget(alias, "already dead", nil)
	}
	return ch, nil
}

// CharacterAttack makes a character hit a monster with a basic attack.
// Empty aliases pick the primary character and the first living monster.
// The hit never crits or misses.
func (e *Engine) CharacterAttack(ctx context.Context, tc *testctx.Context, attacker, target string) (ActionResultTarget, error) {
	var ch *entity.Character
	var err error
	if attacker == "" {
		ch, err = tc.PrimaryCharacter()
	} else {
		ch, err = tc.GetCharacter(attacker)
	}
	if err != nil {
		return ActionResultTarget{}, err
	}
	if !ch.IsAlive() {
		return ActionResultTarget{}, invalidTarget(ch.Alias, "attacker is dead", nil)
	}
	m, err := resolveMonsterTarget(tc, target)
	if err != nil {
		return ActionResultTarget{}, err
	}

	out := e.strike(tc, ch, m, 1, calc.Physical, false)
	b := battleState(tc)
	b.Record(EventActionResult{Round: b.Round, Subject: RefCombatant(ch), Targets: []ActionResultTarget{out}})
	tc.SetVariable("damage_dealt", out.Damage)
	e.checkEnd(tc)
	return out, nil
}

// MonsterAttack makes a monster hit a character with a basic attack.
func (e *Engine) MonsterAttack(ctx context.Context, tc *testctx.Context, attacker, target string) (ActionResultTarget, error) {
	var m *entity.Monster
	var err error
	if attacker == "" {
		alive := aliveMonsters(tc)
		if len(alive) == 0 {
			return ActionResultTarget{}, errs.NotFound("monster", "monster")
		}
		m = alive[0]
	} else if m, err = tc.GetMonster(attacker); err != nil {
		return ActionResultTarget{}, err
	}
	if !m.IsAlive() {
		return ActionResultTarget{}, invalidTarget(m.Alias, "attacker is dead", nil)
	}
	ch, err := resolveCharacterTarget(tc, target)
	if err != nil {
		return ActionResultTarget{}, err
	}

	out := e.strike(tc, m, ch, 1, calc.Physical, false)
	b := battleState(tc)
	b.Record(EventActionResult{Round: b.Round, Subject: RefCombatant(m), Targets: []ActionResultTarget{out}})
	tc.SetVariable("monster_damage_dealt", out.Damage)
	e.checkEnd(tc)
	return out, nil
}

// AllMonstersAttack has every living monster attack in turn, stopping once
// the party is wiped out.
func (e *Engine) AllMonstersAttack(ctx context.Context, tc *testctx.Context) error {
	monsters := aliveMonsters(tc)
	if len(monsters) == 0 {
		return invalidTarget("monster", "no living monster", nil)
	}
	if len(aliveParty(tc)) == 0 {
		return invalidTarget("character", "no living character", nil)
	}
	total := 0
	for _, m := range monsters {
		if len(aliveParty(tc)) == 0 {
			break
		}
		out, err := e.MonsterAttack(ctx, tc, m.Alias, "")
		if err != nil {
			return err
		}
		total += out.Damage
	}
	tc.SetVariable("monster_damage_dealt", total)
	return nil
}

// DefeatMonster sets a monster's HP to zero as if killed by the primary
// character.
func (e *Engine) DefeatMonster(ctx context.Context, tc *testctx.Context, alias string) error {
	m, err := resolveMonsterTarget(tc, alias)
	if err != nil {
		return err
	}
	m.SetHP(0)
	killer := entity.Combatant(m)
	if ch, err := tc.PrimaryCharacter(); err == nil {
		killer = ch
	}
	e.onDeath(tc, killer, m)
	e.checkEnd(tc)
	return nil
}

// UseSkill casts skillRef from user. An empty target picks the first living
// opponent for damage skills and the caster for heals and buffs. A skill
// that is cooling down, unaffordable or silenced is reported in the
// outcome rather than as an error.
func (e *Engine) UseSkill(ctx context.Context, tc *testctx.Context, user, skillRef, target string) (*SkillOutcome, error) {
	cb, err := e.findCombatant(tc, user)
	if err != nil {
		return nil, err
	}
	if !cb.IsAlive() {
		return nil, invalidTarget(cb.Key(), "caster is dead", nil)
	}
	def, err := e.lookupSkill(ctx, tc, skillRef)
	if err != nil {
		return nil, errs.NotFound("skill", skillRef)
	}
	if _, ok := cb.SkillStates()[def.ID]; !ok {
		return nil, errs.NotFound("learned skill", def.ID)
	}

	var targets []entity.Combatant
	switch {
	case target != "":
		t, err := e.findCombatant(tc, target)
		if err != nil {
			return nil, invalidTarget(target, "not found", err)
		}
		if !t.IsAlive() {
			return nil, invalidTarget(target, "already dead", nil)
		}
		targets = []entity.Combatant{t}
	case def.Kind == entity.SkillHeal || def.Kind == entity.SkillBuff:
		targets = []entity.Combatant{cb}
	default:
		foes := opponents(tc, cb)
		if len(foes) == 0 {
			return nil, invalidTarget("", "no living opponent", nil)
		}
		targets = foes[:1]
		if def.AOE {
			targets = foes
		}
	}
	return e.cast(ctx, tc, cb, def, targets, false)
}

func (e *Engine) findCombatant(tc *testctx.Context, alias string) (entity.Combatant, error) {
	if alias == "" {
		return tc.PrimaryCharacter()
	}
	if ch, err := tc.GetCharacter(alias); err == nil {
		return ch, nil
	}
	if m, err := tc.GetMonster(alias); err == nil {
		return m, nil
	}
	return nil, errs.NotFound("combatant", alias)
}

// LearnSkill teaches def to owner, registering it with the skill service
// when one is configured.
func (e *Engine) LearnSkill(ctx context.Context, tc *testctx.Context, owner string, def entity.SkillDef) error {
	cb, err := e.findCombatant(tc, owner)
	if err != nil {
		return err
	}
	if e.skills != nil {
		if err := e.skills.Learn(ctx, ownerID(cb), def.ID); err != nil {
			return err
		}
	}
	switch v := cb.(type) {
	case *entity.Character:
		v.Learn(def)
	case *entity.Monster:
		v.Learn(def)
	}
	return nil
}

// CooldownLeft reports how many rounds remain before owner can use skillID
// again.
func (e *Engine) CooldownLeft(ctx context.Context, tc *testctx.Context, owner, skillID string) (int, error) {
	cb, err := e.findCombatant(tc, owner)
	if err != nil {
		return 0, err
	}
	st, ok := cb.SkillStates()[skillID]
	if !ok {
		return 0, errs.NotFound("learned skill", skillID)
	}
	return e.remaining(ctx, cb, st)
}

func (e *Engine) remaining(ctx context.Context, cb entity.Combatant, st *entity.SkillState) (int, error) {
	if e.skills == nil {
		return st.Remaining, nil
	}
	return e.skills.Remaining(ctx, ownerID(cb), st.SkillID)
}

// cast applies def from cb to targets and starts the cooldown.
func (e *Engine) cast(ctx context.Context, tc *testctx.Context, cb entity.Combatant, def *entity.SkillDef, targets []entity.Combatant, roll bool) (*SkillOutcome, error) {
	st := cb.SkillStates()[def.ID]
	left, err := e.remaining(ctx, cb, st)
	if err != nil {
		return nil, err
	}
	outcome := &SkillOutcome{}
	switch {
	case left > 0:
		outcome.Reason = fmt.Sprintf("skill on cooldown: %d turns left", left)
	case cb.ActiveEffects().Has(entity.EffectSilenced):
		outcome.Reason = "沉默中，无法使用技能"
	case !canAfford(cb, def):
		outcome.Reason = "资源不足"
	}
	if outcome.Reason != "" {
		tc.SetVariable("skill_used", false)
		tc.SetVariable("error_message", outcome.Reason)
		return outcome, nil
	}

	bases, err := formulaBases(cb, def, targets)
	if err != nil {
		return nil, err
	}
	if ch, ok := cb.(*entity.Character); ok {
		ch.SpendResource(def.Cost)
	}
	b := battleState(tc)
	for i, t := range targets {
		switch def.Kind {
		case entity.SkillHeal:
			h := calc.Healing(def.HealAmount, 1, tc.Float("heal_bonus_percent", 0), t.CurrentHP(), t.MaxHPValue())
			t.SetHP(t.CurrentHP() + h.Actual)
			outcome.Heal.Final += h.Final
			outcome.Heal.Actual += h.Actual
			outcome.Heal.Overheal += h.Overheal
			outcome.Targets = append(outcome.Targets, ActionResultTarget{
				Target: RefCombatant(t), Damage: -h.Actual, HPAfter: t.CurrentHP(),
			})
		case entity.SkillBuff:
			t.BuffList().Add(entity.Buff{
				ID:        def.ID,
				Stat:      def.BuffStat,
				Percent:   def.BuffPercent,
				Remaining: def.BuffDuration,
			})
			outcome.Targets = append(outcome.Targets, ActionResultTarget{Target: RefCombatant(t), HPAfter: t.CurrentHP()})
		default:
			typ := calc.Physical
			if def.DamageType == string(calc.Magic) {
				typ = calc.Magic
			}
			var out ActionResultTarget
			if bases != nil {
				out = e.strikeBase(tc, cb, t, bases[i], typ, roll)
			} else {
				out = e.strike(tc, cb, t, def.DamageMultiplier, typ, roll)
			}
			outcome.Damage += out.Damage
			outcome.Targets = append(outcome.Targets, out)
		}
	}

	round := max(b.Round, 1)
	st.LastUsedRound = round
	st.Remaining = def.Cooldown
	if e.skills != nil {
		if err := e.skills.StartCooldown(ctx, ownerID(cb), def.ID, def.Cooldown); err != nil {
			return nil, err
		}
	}
	outcome.Used = true
	b.Record(EventActionResult{Round: b.Round, Subject: RefCombatant(cb), SkillID: def.ID, Targets: outcome.Targets})

	tc.SetVariable("skill_used", true)
	tc.SetVariable("skill_damage_dealt", outcome.Damage)
	if def.Kind == entity.SkillHeal {
		tc.SetVariable("healing_done", outcome.Heal.Actual)
		tc.SetVariable("overhealing", outcome.Heal.Overheal)
	}
	e.logger.Debug("skill used",
		zap.String("caster", cb.Key()),
		zap.String("skill", def.ID),
		zap.Int("round", round))
	e.checkEnd(tc)
	return outcome, nil
}
