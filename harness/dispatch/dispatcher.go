// Package dispatch 把一条自然语言测试指令路由到唯一的处理函数。
// 规则按优先级排列，先匹配者胜出；每次调用最多执行一个处理函数。
package dispatch

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/battle"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/item"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/kasuganosora/battlerunner/repo"
	"go.uber.org/zap"
)

// maxLoopDepth 防止循环指令无限嵌套。
const maxLoopDepth = 8

// ErrNoRepository 表示未配置角色仓库时调用了持久化指令。
var ErrNoRepository = errors.New("no character repository configured")

// HandlerFunc 处理一条已规范化的指令。
type HandlerFunc func(ctx context.Context, tc *testctx.Context, in string) error

// Rule 是一条 (名称, 谓词, 处理函数) 路由规则。
type Rule struct {
	Name   string
	Match  func(in string) bool
	Handle HandlerFunc
}

// Options 配置 Dispatcher 的协作者。
type Options struct {
	Engine *battle.Engine
	Equip  *item.EquipService
	Repo   repo.CharacterRepository // nil 时持久化指令返回 ErrNoRepository
	Calc   calc.Config
	// Strict 为 true 时，循环外的跳出指令直接 panic。
	Strict bool
	Logger *zap.Logger
}

// Dispatcher 持有有序规则表。它本身不保存场景状态，状态全部位于传入的 Context。
type Dispatcher struct {
	engine   *battle.Engine
	equipSvc *item.EquipService
	repo     repo.CharacterRepository
	calc     calc.Config
	strict   bool
	logger   *zap.Logger
	rules    []Rule
}

// New 创建 Dispatcher 并装配全部规则。
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Calc.CritCap == 0 && opts.Calc.DodgeCap == 0 {
		opts.Calc = calc.DefaultConfig()
	}
	if opts.Engine == nil {
		opts.Engine = battle.NewEngine(battle.Config{Calc: opts.Calc, Logger: opts.Logger})
	}
	if opts.Equip == nil {
		opts.Equip = item.NewEquipService(opts.Logger)
	}
	d := &Dispatcher{
		engine:   opts.Engine,
		equipSvc: opts.Equip,
		repo:     opts.Repo,
		calc:     opts.Calc,
		strict:   opts.Strict,
		logger:   opts.Logger,
	}
	d.rules = d.buildRules()
	return d
}

// buildRules 按优先级拼接各类别规则：
// 控制 → 持久化 → 区域 → 策略 → 商店 → 装备 → 队伍 → 角色 → 怪物 → 计算 → 技能 → 战斗。
// 策略规则必须排在技能规则之前：策略文本里含有 "使用X技能"。
func (d *Dispatcher) buildRules() []Rule {
	var rules []Rule
	rules = append(rules, d.controlRules()...)
	rules = append(rules, d.persistRules()...)
	rules = append(rules, d.zoneRules()...)
	rules = append(rules, d.strategyRules()...)
	rules = append(rules, d.shopRules()...)
	rules = append(rules, d.equipmentRules()...)
	rules = append(rules, d.teamRules()...)
	rules = append(rules, d.characterRules()...)
	rules = append(rules, d.monsterRules()...)
	rules = append(rules, d.calculationRules()...)
	rules = append(rules, d.skillRules()...)
	rules = append(rules, d.battleRules()...)
	return rules
}

// Rules 返回规则表的副本（按优先级）。
func (d *Dispatcher) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Match 返回指令将命中的规则名；未命中返回空字符串。
func (d *Dispatcher) Match(instruction string) string {
	in := Normalize(instruction)
	for _, r := range d.rules {
		if r.Match(in) {
			return r.Name
		}
	}
	return ""
}

// Execute 规范化指令并执行第一条匹配的规则。
func (d *Dispatcher) Execute(ctx context.Context, tc *testctx.Context, instruction string) error {
	in := Normalize(instruction)
	tc.LastInstruction = in
	if in == "" {
		return &errs.UnrecognizedError{Instruction: instruction}
	}
	for _, r := range d.rules {
		if !r.Match(in) {
			continue
		}
		d.logger.Debug("dispatch",
			zap.String("rule", r.Name),
			zap.String("instruction", in))
		return r.Handle(ctx, tc, in)
	}
	return &errs.UnrecognizedError{Instruction: instruction}
}

// fullWidth 全角标点到半角的映射。
var fullWidth = strings.NewReplacer(
	"＝", "=",
	"：", ":",
	"，", ",",
	"（", "(",
	"）", ")",
	"％", "%",
	"；", ";",
	"＋", "+",
	"－", "-",
	"、", ",",
)

// Normalize 把全角标点替换为半角并去掉所有空白。
func Normalize(in string) string {
	in = fullWidth.Replace(in)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, in)
}
