// 控制流：循环与跳出循环指令。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

// errLoopBreak 是循环体内部的跳出信号，不会传出循环指令。
var errLoopBreak = errors.New("loop break")

var (
	repeatRe    = regexp.MustCompile(`^重复` + countRe + `次`)
	recordVarRe = regexp.MustCompile(`^记录(.+)到变量([A-Za-z_][A-Za-z0-9_.]*)$`)
)

// recordSources 把 记录X到变量Y 中的 X 映射到断言变量。
var recordSources = map[string]string{
	"角色HP":   "character_hp",
	"角色当前HP": "character_hp",
	"角色生命":   "character_hp",
	"角色当前生命": "character_hp",
	"角色最大HP": "character_max_hp",
	"角色资源":   "character_resource",
	"角色怒气":   "character_resource",
	"角色法力":   "character_resource",
	"角色能量":   "character_resource",
	"角色金币":   "character_gold",
	"角色经验":   "character_exp",
	"角色等级":   "character_level",
	"怪物HP":   "monster.hp",
	"怪物当前HP": "monster.hp",
	"当前回合":   "battle_round",
	"存活怪物数量": "enemy_alive_count",
	"存活角色数量": "team_alive_count",
}

func (d *Dispatcher) controlRules() []Rule {
	return []Rule{
		{
			Name:   "repeat",
			Match:  func(in string) bool { return repeatRe.MatchString(in) },
			Handle: d.handleRepeat,
		},
		{
			Name:   "break",
			Match:  func(in string) bool { return strings.Contains(in, "跳出循环") },
			Handle: d.handleBreak,
		},
		{
			Name:   "record_variable",
			Match:  func(in string) bool { return recordVarRe.MatchString(in) },
			Handle: d.handleRecordVariable,
		},
		{
			Name: "noop",
			Match: func(in string) bool {
				return in == "初始化战斗系统" || strings.HasPrefix(in, "记录战斗")
			},
			Handle: func(context.Context, *testctx.Context, string) error { return nil },
		},
	}
}

// handleRepeat 执行 重复N次:a;b。循环体按分号切分，每条再经过完整分发。
// 变量 loop_index 从 1 开始记录当前迭代。
func (d *Dispatcher) handleRepeat(ctx context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(repeatRe, in, "重复")
	if err != nil {
		return err
	}
	body, ok := afterColon(in)
	if !ok {
		return errs.Malformed("循环体", in)
	}
	steps := strings.Split(body, ";")
	if tc.LoopDepth >= maxLoopDepth {
		return fmt.Errorf("loop nesting exceeds %d", maxLoopDepth)
	}

	tc.LoopDepth++
	defer func() { tc.LoopDepth-- }()
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tc.SetVariable("loop_index", i)
		for _, step := range steps {
			if step == "" {
				continue
			}
			err := d.Execute(ctx, tc, step)
			if errors.Is(err, errLoopBreak) {
				tc.SetVariable("loop_iterations", i)
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
	tc.SetVariable("loop_iterations", n)
	return nil
}

// handleBreak 处理 跳出循环[(当k=v)]。条件不满足时什么也不做。
func (d *Dispatcher) handleBreak(_ context.Context, tc *testctx.Context, in string) error {
	if tc.LoopDepth == 0 {
		err := fmt.Errorf("%w: %s", errs.ErrBreakOutsideLoop, in)
		if d.strict {
			panic(err)
		}
		return err
	}
	if m := conditionRe.FindStringSubmatch(in); m != nil {
		v, _ := tc.GetVariable(m[1])
		if fmt.Sprint(v) != fmt.Sprint(parseValue(m[2])) {
			return nil
		}
	}
	d.logger.Debug("loop break", zap.Int("depth", tc.LoopDepth))
	return errLoopBreak
}

// handleRecordVariable 处理 记录角色当前HP到变量hp_before：把当前值复制到新变量。
// 来源既可以是 recordSources 中的中文名，也可以是已有变量名。
func (d *Dispatcher) handleRecordVariable(_ context.Context, tc *testctx.Context, in string) error {
	m := recordVarRe.FindStringSubmatch(in)
	tc.UpdateAssertionContext()
	key := m[1]
	if k, ok := recordSources[key]; ok {
		key = k
	}
	v, err := tc.GetVariable(key)
	if err != nil {
		return errs.Malformed("记录来源", m[1])
	}
	tc.SetVariable(m[2], v)
	return nil
}
