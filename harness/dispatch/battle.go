// 战斗指令：开战、回合推进、攻击、结算与休息。
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/battle"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

var (
	runRoundsRe     = regexp.MustCompile(`执行` + countRe + `个?回合`)
	nthMonsterRe    = regexp.MustCompile(`第(\d+)个怪物`)
	nthCharacterRe  = regexp.MustCompile(`第(\d+)个角色`)
	monsterAttackRe = regexp.MustCompile(`^(?:第\d+个)?怪物(?:攻击|反击)`)
	remainingRe     = regexp.MustCompile(`^剩余` + countRe + `个怪物攻击`)
)

// untilWords 把 继续战斗直到… 的条件词映射到引擎条件。
var untilWords = []struct{ word, cond string }{
	{"怪物死亡", battle.UntilMonsterDead},
	{"怪物被击败", battle.UntilMonsterDead},
	{"角色死亡", battle.UntilCharacterDead},
	{"战斗结束", battle.UntilBattleEnd},
}

func (d *Dispatcher) battleRules() []Rule {
	return []Rule{
		{
			Name:   "start_battle",
			Match:  func(in string) bool { return strings.Contains(in, "开始战斗") },
			Handle: d.handleStartBattle,
		},
		{
			Name:   "build_turn_order",
			Match:  func(in string) bool { return strings.Contains(in, "构建回合顺序") },
			Handle: d.handleBuildTurnOrder,
		},
		{
			Name:   "run_rounds",
			Match:  func(in string) bool { return runRoundsRe.MatchString(in) },
			Handle: d.handleRunRounds,
		},
		{
			Name:   "run_until",
			Match:  func(in string) bool { return strings.Contains(in, "继续战斗直到") },
			Handle: d.handleRunUntil,
		},
		{
			Name:   "remaining_monsters_attack",
			Match:  func(in string) bool { return remainingRe.MatchString(in) },
			Handle: d.handleRemainingMonstersAttack,
		},
		{
			Name:   "all_monsters_attack",
			Match:  func(in string) bool { return containsAny(in, "所有怪物攻击", "所有敌人攻击") },
			Handle: d.handleAllMonstersAttack,
		},
		{
			Name:   "character_attack",
			Match:  func(in string) bool { return strings.Contains(in, "角色攻击") && strings.Contains(in, "怪物") },
			Handle: d.handleCharacterAttack,
		},
		{
			Name:   "monster_attack",
			Match:  func(in string) bool { return monsterAttackRe.MatchString(in) },
			Handle: d.handleMonsterAttack,
		},
		{
			Name:   "defeat_monster",
			Match:  func(in string) bool { return strings.Contains(in, "击败") && strings.Contains(in, "怪物") },
			Handle: d.handleDefeatMonster,
		},
		{
			Name:   "check_battle_state",
			Match:  func(in string) bool { return strings.Contains(in, "检查战斗状态") },
			Handle: d.handleCheckBattleState,
		},
		{
			Name:   "enter_rest",
			Match:  func(in string) bool { return strings.Contains(in, "进入休息状态") },
			Handle: d.handleEnterRest,
		},
		{
			Name:   "finish_rest",
			Match:  func(in string) bool { return strings.Contains(in, "等待休息恢复") },
			Handle: d.handleFinishRest,
		},
	}
}

// nthAlias 把 第N个怪物 / 第N个角色 转为 monster_N / character_N。
func nthAlias(re *regexp.Regexp, in, prefix string) string {
	if m := re.FindStringSubmatch(in); m != nil {
		return fmt.Sprintf("%s_%s", prefix, m[1])
	}
	return ""
}

func (d *Dispatcher) handleStartBattle(ctx context.Context, tc *testctx.Context, _ string) error {
	return d.engine.Start(ctx, tc)
}

func (d *Dispatcher) handleBuildTurnOrder(_ context.Context, tc *testctx.Context, _ string) error {
	d.engine.BuildTurnOrder(tc)
	return nil
}

func (d *Dispatcher) handleRunRounds(ctx context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(runRoundsRe, in, "回合数")
	if err != nil {
		return err
	}
	return d.engine.RunRounds(ctx, tc, n)
}

// handleRunUntil 处理 继续战斗直到怪物死亡。step_max_rounds 变量可额外限制本次回合数。
func (d *Dispatcher) handleRunUntil(ctx context.Context, tc *testctx.Context, in string) error {
	_, rest, _ := strings.Cut(in, "直到")
	for _, u := range untilWords {
		if strings.Contains(rest, u.word) {
			return d.engine.RunUntilLimit(ctx, tc, u.cond, tc.Int("step_max_rounds", 0))
		}
	}
	return errs.Malformed("战斗条件", rest)
}

func (d *Dispatcher) handleAllMonstersAttack(ctx context.Context, tc *testctx.Context, _ string) error {
	return d.engine.AllMonstersAttack(ctx, tc)
}

// handleRemainingMonstersAttack 处理 剩余N个怪物攻击角色：存活怪物数必须为 N，然后全部攻击。
func (d *Dispatcher) handleRemainingMonstersAttack(ctx context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(remainingRe, in, "剩余怪物数")
	if err != nil {
		return err
	}
	alive := 0
	for _, m := range tc.MonsterList() {
		if m.IsAlive() {
			alive++
		}
	}
	if alive != n {
		return &errs.MismatchError{
			Path: "enemy_alive_count", Mode: "equals",
			Expected: n, Actual: alive, Message: "剩余怪物数量不符",
		}
	}
	return d.engine.AllMonstersAttack(ctx, tc)
}

// handleCharacterAttack 处理 角色攻击怪物 / 角色攻击第2个怪物 / 角色攻击怪物,目标=monster_2。
func (d *Dispatcher) handleCharacterAttack(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	_, attacker, _ := f.lookup("角色", "攻击者")
	_, target, ok := f.lookup("目标", "怪物")
	if !ok {
		target = nthAlias(nthMonsterRe, in, "monster")
	}
	_, err := d.engine.CharacterAttack(ctx, tc, attacker, target)
	return err
}

// handleMonsterAttack 处理 怪物攻击角色 / 怪物攻击第2个角色 / 第2个怪物攻击角色。
func (d *Dispatcher) handleMonsterAttack(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	_, attacker, ok := f.lookup("怪物", "攻击者")
	if !ok {
		head, _, _ := strings.Cut(in, "攻击")
		attacker = nthAlias(nthMonsterRe, head, "monster")
	}
	_, target, ok := f.lookup("目标", "角色")
	if !ok {
		target = nthAlias(nthCharacterRe, in, "character")
	}
	_, err := d.engine.MonsterAttack(ctx, tc, attacker, target)
	return err
}

func (d *Dispatcher) handleDefeatMonster(ctx context.Context, tc *testctx.Context, in string) error {
	_, alias, ok := fields(in).lookup("怪物", "目标")
	if !ok {
		alias = nthAlias(nthMonsterRe, in, "monster")
	}
	return d.engine.DefeatMonster(ctx, tc, alias)
}

func (d *Dispatcher) handleCheckBattleState(_ context.Context, tc *testctx.Context, _ string) error {
	d.engine.CheckState(tc)
	return nil
}

func (d *Dispatcher) handleEnterRest(ctx context.Context, tc *testctx.Context, _ string) error {
	return d.engine.EnterRest(ctx, tc)
}

func (d *Dispatcher) handleFinishRest(ctx context.Context, tc *testctx.Context, _ string) error {
	return d.engine.FinishRest(ctx, tc)
}
