package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/skill"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultMaxRounds bounds a battle when the config leaves MaxRounds at 0.
const DefaultMaxRounds = 100

// Conditions accepted by RunUntil.
const (
	UntilMonsterDead   = "monster_dead"
	UntilCharacterDead = "character_dead"
	UntilBattleEnd     = "battle_end"
)

var (
	ErrNoParticipants = errors.New("battle needs a living character and a living monster")
	ErrInBattle       = errors.New("battle in progress")
	ErrUnknownUntil   = errors.New("unknown battle condition")
)

// Config configures an Engine.
type Config struct {
	MaxRounds int
	Calc      calc.Config
	Skills    *skill.Service // nil = cooldowns tracked on SkillState only
	Logger    *zap.Logger
	TurnMgr   TurnManager // nil = SpeedTurnManager
}

// Engine runs the battle of a Context. It holds no per-battle state; all
// of that lives in the Context it is handed.
type Engine struct {
	maxRounds int
	calc      calc.Config
	skills    *skill.Service
	logger    *zap.Logger
	turnMgr   TurnManager
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.TurnMgr == nil {
		cfg.TurnMgr = SpeedTurnManager{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Calc.CritCap == 0 && cfg.Calc.DodgeCap == 0 {
		cfg.Calc = calc.DefaultConfig()
	}
	return &Engine{
		maxRounds: cfg.MaxRounds,
		calc:      cfg.Calc,
		skills:    cfg.Skills,
		logger:    cfg.Logger,
		turnMgr:   cfg.TurnMgr,
	}
}

func (e *Engine) MaxRounds() int         { return e.maxRounds }
func (e *Engine) Calc() calc.Config      { return e.calc }
func (e *Engine) Skills() *skill.Service { return e.skills }

func battleState(tc *testctx.Context) *testctx.BattleState {
	if tc.Battle == nil {
		tc.Battle = testctx.NewBattleState()
	}
	return tc.Battle
}

func aliveParty(tc *testctx.Context) []*entity.Character {
	return lo.Filter(tc.Party(), func(ch *entity.Character, _ int) bool { return ch.IsAlive() })
}

func aliveMonsters(tc *testctx.Context) []*entity.Monster {
	return lo.Filter(tc.MonsterList(), func(m *entity.Monster, _ int) bool { return m.IsAlive() })
}

// Start opens a new battle between the party and every monster.
func (e *Engine) Start(ctx context.Context, tc *testctx.Context) error {
	party, monsters := aliveParty(tc), aliveMonsters(tc)
	if len(party) == 0 || len(monsters) == 0 {
		return fmt.Errorf("%w: %d characters, %d monsters alive", ErrNoParticipants, len(party), len(monsters))
	}

	b := testctx.NewBattleState()
	b.Phase = testctx.PhaseInProgress
	tc.Battle = b

	for _, ch := range tc.CharacterList() {
		ch.Resting = false
		if ch.ResourceType == entity.ResourceRage {
			ch.Resource = 0
		}
	}
	if ch, err := tc.PrimaryCharacter(); err == nil {
		tc.SetVariable("character.exp_before_battle", ch.Exp)
	}

	e.BuildTurnOrder(tc)
	b.Record(EventBattleStart{
		Characters: lo.Map(party, func(ch *entity.Character, _ int) Snapshot { return SnapshotCombatant(ch) }),
		Monsters:   lo.Map(monsters, func(m *entity.Monster, _ int) Snapshot { return SnapshotCombatant(m) }),
	})

	tc.SetVariable("battle_state", string(b.Phase))
	tc.SetVariable("is_resting", false)
	tc.SetVariable("enemy_count", len(tc.Monsters))
	tc.SetVariable("battle_rounds", 0)
	e.logger.Debug("battle start",
		zap.Int("characters", len(party)),
		zap.Int("monsters", len(monsters)))
	return nil
}

// RunRounds plays n rounds, stopping early once the battle ends. A battle
// that has not started is started first when both sides can fight;
// otherwise the rounds only advance time (cooldowns, buffs, effects).
func (e *Engine) RunRounds(ctx context.Context, tc *testctx.Context, n int) error {
	for i := 0; i < n; i++ {
		if battleState(tc).Phase.Finished() {
			return nil
		}
		if err := e.runRound(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

// RunUntil plays rounds until cond holds or the battle ends.
func (e *Engine) RunUntil(ctx context.Context, tc *testctx.Context, cond string) error {
	return e.RunUntilLimit(ctx, tc, cond, 0)
}

// RunUntilLimit is RunUntil with an extra bound of limit rounds played by
// this call. limit <= 0 leaves only the engine's MaxRounds.
func (e *Engine) RunUntilLimit(ctx context.Context, tc *testctx.Context, cond string, limit int) error {
	check, err := untilFunc(cond)
	if err != nil {
		return err
	}
	for played := 0; !check(tc) && !battleState(tc).Phase.Finished(); played++ {
		if limit > 0 && played >= limit {
			return &errs.RoundLimitError{Limit: limit}
		}
		if err := e.runRound(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

func untilFunc(cond string) (func(*testctx.Context) bool, error) {
	switch cond {
	case UntilMonsterDead:
		return func(tc *testctx.Context) bool {
			m, err := tc.PrimaryMonster()
			return err == nil && !m.IsAlive()
		}, nil
	case UntilCharacterDead:
		return func(tc *testctx.Context) bool {
			ch, err := tc.PrimaryCharacter()
			return err == nil && !ch.IsAlive()
		}, nil
	case UntilBattleEnd:
		return func(tc *testctx.Context) bool { return battleState(tc).Phase.Finished() }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownUntil, cond)
}

func (e *Engine) runRound(ctx context.Context, tc *testctx.Context) error {
	b := battleState(tc)
	if b.Phase == testctx.PhaseNotStarted && len(aliveParty(tc)) > 0 && len(aliveMonsters(tc)) > 0 {
		if err := e.Start(ctx, tc); err != nil {
			return err
		}
		b = tc.Battle
	}
	if b.Round >= e.maxRounds {
		return &errs.RoundLimitError{Limit: e.maxRounds}
	}
	b.Round++
	round := b.Round
	e.logger.Debug("battle round start", zap.Int("round", round))

	expired, err := e.tickRound(ctx, tc)
	if err != nil {
		return err
	}
	e.snapshotCooldowns(tc, round)

	order := e.BuildTurnOrder(tc)
	b.Record(EventTurnStart{
		Round:   round,
		Order:   lo.Map(order, func(cb entity.Combatant, _ int) CombatantRef { return RefCombatant(cb) }),
		Expired: expired,
	})

	if b.Phase == testctx.PhaseInProgress {
		for _, cb := range order {
			if !cb.IsAlive() {
				continue
			}
			fx := cb.ActiveEffects()
			if fx.Has(entity.EffectStunned) || fx.Has(entity.EffectFeared) {
				continue
			}
			if err := e.act(ctx, tc, cb); err != nil {
				return err
			}
			if b.Phase.Finished() {
				break
			}
		}
	}

	if ended := tickEffects(tc); ended != nil {
		b.Record(EventTurnEnd{Round: round, Expired: ended})
	}
	e.snapshotHP(tc, round)
	tc.SetVariable("battle_rounds", round)
	tc.SetVariable("current_round", round)
	return nil
}

func allCombatants(tc *testctx.Context) []entity.Combatant {
	var all []entity.Combatant
	for _, ch := range tc.CharacterList() {
		all = append(all, ch)
	}
	for _, m := range tc.MonsterList() {
		all = append(all, m)
	}
	return all
}

// tickRound counts one round off every cooldown, buff and shield before
// anyone acts. Expired buffs and shields are returned per alias.
func (e *Engine) tickRound(ctx context.Context, tc *testctx.Context) (map[string][]string, error) {
	expired := make(map[string][]string)
	for _, cb := range allCombatants(tc) {
		if err := e.tickCooldowns(ctx, cb); err != nil {
			return nil, err
		}
		for _, buff := range cb.BuffList().Tick() {
			expired[cb.Key()] = append(expired[cb.Key()], buff.ID)
		}
		if ch, ok := cb.(*entity.Character); ok && ch.Shield.Tick() {
			expired[cb.Key()] = append(expired[cb.Key()], "shield")
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}
	return expired, nil
}

// tickEffects counts one round off every control effect once the round's
// actions are done, so an effect of N rounds costs its holder N turns.
func tickEffects(tc *testctx.Context) map[string][]string {
	expired := make(map[string][]string)
	for _, cb := range allCombatants(tc) {
		fx := cb.ActiveEffects()
		for _, name := range []string{entity.EffectStunned, entity.EffectSilenced, entity.EffectFeared} {
			if fx[name] == 1 {
				expired[cb.Key()] = append(expired[cb.Key()], name)
			}
		}
		fx.Tick()
	}
	if len(expired) == 0 {
		return nil
	}
	return expired
}

func ownerID(cb entity.Combatant) string {
	switch v := cb.(type) {
	case *entity.Character:
		return v.ID
	case *entity.Monster:
		return v.ID
	}
	return cb.Key()
}

// tickCooldowns advances cb's cooldowns by one round. With a skill service
// the service is authoritative and the SkillState copies are refreshed
// from it.
func (e *Engine) tickCooldowns(ctx context.Context, cb entity.Combatant) error {
	states := cb.SkillStates()
	if e.skills == nil {
		for _, st := range states {
			if st.Remaining > 0 {
				st.Remaining--
			}
		}
		return nil
	}
	owner := ownerID(cb)
	if err := e.skills.TickCooldowns(ctx, owner); err != nil {
		return err
	}
	for id, st := range states {
		n, err := e.skills.Remaining(ctx, owner, id)
		if err != nil {
			return err
		}
		st.Remaining = n
	}
	return nil
}

func (e *Engine) snapshotCooldowns(tc *testctx.Context, round int) {
	if id, ok := tc.Variables["skill_id"].(string); ok {
		if ch, err := tc.PrimaryCharacter(); err == nil {
			if st, ok := ch.Skills[id]; ok {
				tc.SetVariable(fmt.Sprintf("skill_cooldown_round_%d", round), st.Remaining)
				tc.SetVariable(fmt.Sprintf("skill_usable_round_%d", round), st.Ready())
			}
		}
	}
	if id, ok := tc.Variables["monster_skill_id"].(string); ok {
		if m, err := tc.PrimaryMonster(); err == nil {
			if st, ok := m.Skills[id]; ok {
				tc.SetVariable(fmt.Sprintf("monster_skill_cooldown_round_%d", round), st.Remaining)
			}
		}
	}
}

func (e *Engine) snapshotHP(tc *testctx.Context, round int) {
	for alias, ch := range tc.Characters {
		tc.SetVariable(fmt.Sprintf("%s.hp_round_%d", alias, round), ch.HP)
		tc.SetVariable(fmt.Sprintf("%s.shield_duration_round_%d", alias, round), ch.Shield.Remaining)
	}
	for alias, m := range tc.Monsters {
		tc.SetVariable(fmt.Sprintf("%s.hp_round_%d", alias, round), m.HP)
	}
	if ch, err := tc.PrimaryCharacter(); err == nil {
		tc.SetVariable(fmt.Sprintf("character.hp_round_%d", round), ch.HP)
	}
	if m, err := tc.PrimaryMonster(); err == nil {
		tc.SetVariable(fmt.Sprintf("monster.hp_round_%d", round), m.HP)
	}
}

// CheckState ends the battle if one side has been wiped out and publishes
// the battle variables.
func (e *Engine) CheckState(tc *testctx.Context) {
	e.checkEnd(tc)
	b := battleState(tc)
	tc.SetVariable("battle_state", string(b.Phase))
	tc.SetVariable("battle_round", b.Round)
}

// checkEnd moves the battle to victory or defeat once one side is dead.
func (e *Engine) checkEnd(tc *testctx.Context) {
	b := battleState(tc)
	if b.Phase.Finished() {
		return
	}
	party, monsters := tc.Party(), tc.MonsterList()
	partyAlive, monstersAlive := len(aliveParty(tc)), len(aliveMonsters(tc))
	switch {
	case len(monsters) > 0 && monstersAlive == 0 && partyAlive > 0:
		e.finish(tc, true)
	case len(party) > 0 && partyAlive == 0:
		e.finish(tc, false)
	}
}

func (e *Engine) finish(tc *testctx.Context, victory bool) {
	b := battleState(tc)
	b.Victory = victory
	end := EventBattleEnd{Victory: victory, Rounds: b.Round}
	if victory {
		b.Phase = testctx.PhaseVictory
		end.Exp, end.Gold, end.LevelUps = e.grantRewards(tc)
	} else {
		b.Phase = testctx.PhaseDefeat
	}
	b.ExpGained, b.GoldGained = end.Exp, end.Gold

	for _, ch := range tc.CharacterList() {
		if ch.ResourceType == entity.ResourceRage {
			ch.Resource = 0
		}
	}
	b.Record(end)

	tc.SetVariable("battle_state", string(b.Phase))
	tc.SetVariable("battle_result.is_victory", victory)
	tc.SetVariable("character.exp_gained", b.ExpGained)
	tc.SetVariable("character.gold_gained", b.GoldGained)
	if ch, err := tc.PrimaryCharacter(); err == nil {
		tc.SetVariable("character.is_dead", !ch.IsAlive())
	}
	e.logger.Debug("battle end",
		zap.Bool("victory", victory),
		zap.Int("rounds", b.Round),
		zap.Int("exp", b.ExpGained),
		zap.Int("gold", b.GoldGained))
}
