// 策略指令：配置条件规则与技能优先级，并查询自动选招结果。
package dispatch

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

var (
	// 当自身HP<30%时使用治疗
	strategyCondRe = regexp.MustCompile(
		`^当?(自身|自己|角色|目标|敌人)?(HP|生命|血量|资源|怒气|法力|能量|回合|敌人数量|敌人数)(<=|>=|!=|==|<|>|=)(\d+(?:\.\d+)?)(%)?时?,?(.+)$`)
	strategyDefaultRe = regexp.MustCompile(`^(?:默认|否则|其他情况)(.+)$`)
)

var strategyMetrics = map[string]string{
	"HP":   entity.MetricHP,
	"生命":   entity.MetricHP,
	"血量":   entity.MetricHP,
	"资源":   entity.MetricResource,
	"怒气":   entity.MetricResource,
	"法力":   entity.MetricResource,
	"能量":   entity.MetricResource,
	"回合":   entity.MetricRound,
	"敌人数量": entity.MetricEnemies,
	"敌人数":  entity.MetricEnemies,
}

func (d *Dispatcher) strategyRules() []Rule {
	return []Rule{
		{
			Name:   "configure_strategy",
			Match:  func(in string) bool { return strings.HasPrefix(in, "配置策略") },
			Handle: d.handleConfigureStrategy,
		},
		{
			Name:   "skill_priority",
			Match:  func(in string) bool { return strings.HasPrefix(in, "配置技能优先级") },
			Handle: d.handleSkillPriority,
		},
		{
			Name: "run_strategy",
			Match: func(in string) bool {
				return strings.Contains(in, "执行策略判断") || strings.Contains(in, "执行策略选择")
			},
			Handle: d.handleRunStrategy,
		},
	}
}

// strategyOwner 解析 角色=别名 或 怪物=别名，缺省为主角色。
func strategyOwner(tc *testctx.Context, head string) (string, error) {
	f := fields(head)
	if _, alias, ok := f.lookup("怪物", "monster"); ok {
		m, err := tc.GetMonster(alias)
		if err != nil {
			return "", err
		}
		return m.Alias, nil
	}
	ch, err := characterArg(tc, f)
	if err != nil {
		return "", err
	}
	return ch.Alias, nil
}

// splitStrategy 把 配置策略(角色=x):规则;规则 拆成头部与规则列表。
func splitStrategy(in string) (head string, body string) {
	head, body, _ = strings.Cut(in, ":")
	return head, body
}

// skillRef 把技能别名或名称解析为技能 ID；未定义的名称原样返回，交给技能服务查找。
func skillRef(tc *testctx.Context, name string) string {
	if def, err := tc.GetSkill(name); err == nil {
		return def.ID
	}
	return name
}

// strategyAction 解析 使用X技能 / 普通攻击，返回技能 ID（空串为普通攻击）。
func strategyAction(tc *testctx.Context, s string) (string, error) {
	s = strings.TrimPrefix(s, "则")
	switch s {
	case "普通攻击", "攻击", "普攻":
		return "", nil
	}
	name := strings.TrimSuffix(strings.TrimPrefix(s, "使用"), "技能")
	if name == "" {
		return "", errs.Malformed("策略动作", s)
	}
	return skillRef(tc, name), nil
}

func parseStrategyRule(tc *testctx.Context, s string) (entity.StrategyRule, error) {
	var r entity.StrategyRule
	if m := strategyDefaultRe.FindStringSubmatch(s); m != nil {
		id, err := strategyAction(tc, m[1])
		r.SkillID = id
		return r, err
	}
	m := strategyCondRe.FindStringSubmatch(s)
	if m == nil && (strings.HasPrefix(s, "当") || strings.ContainsAny(s, "<>=")) {
		return r, errs.Malformed("策略条件", s)
	}
	if m == nil {
		id, err := strategyAction(tc, s)
		r.SkillID = id
		return r, err
	}
	v, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return r, errs.Malformed("策略条件", m[4])
	}
	c := entity.Condition{Subject: entity.SubjectSelf, Metric: strategyMetrics[m[2]], Op: m[3], Value: v}
	if m[1] == "目标" || m[1] == "敌人" {
		c.Subject = entity.SubjectTarget
	}
	if m[5] == "%" {
		if c.Metric != entity.MetricHP {
			return r, errs.Malformed("策略条件", m[2]+m[3]+m[4]+m[5])
		}
		c.Metric = entity.MetricHPPercent
	}
	r.When = c
	id, err := strategyAction(tc, m[6])
	r.SkillID = id
	return r, err
}

// handleConfigureStrategy 处理 配置策略:当自身HP<30%时使用治疗;当目标HP<=50%时普通攻击;默认使用英勇打击。
// 规则按书写顺序生效，整体替换原有规则。
func (d *Dispatcher) handleConfigureStrategy(_ context.Context, tc *testctx.Context, in string) error {
	head, body := splitStrategy(in)
	owner, err := strategyOwner(tc, head)
	if err != nil {
		return err
	}
	var rules []entity.StrategyRule
	for _, part := range strings.Split(body, ";") {
		if part == "" {
			continue
		}
		r, err := parseStrategyRule(tc, part)
		if err != nil {
			return err
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		return errs.Malformed("策略", body)
	}
	tc.EnsureStrategy(owner).Rules = rules
	tc.SetVariable("strategy_rule_count", len(rules))
	return nil
}

// handleSkillPriority 处理 配置技能优先级:a,b,c（也接受 a>b>c）。
func (d *Dispatcher) handleSkillPriority(_ context.Context, tc *testctx.Context, in string) error {
	head, body := splitStrategy(in)
	owner, err := strategyOwner(tc, head)
	if err != nil {
		return err
	}
	var ids []string
	for _, name := range strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == '>' || r == ';' }) {
		ids = append(ids, skillRef(tc, strings.TrimSuffix(name, "技能")))
	}
	if len(ids) == 0 {
		return errs.Malformed("技能优先级", body)
	}
	tc.EnsureStrategy(owner).SkillPriority = ids
	tc.SetVariable("skill_priority", ids)
	return nil
}

// handleRunStrategy 处理 执行策略判断，把决策写入 strategy_* 变量，不改变战斗状态。
func (d *Dispatcher) handleRunStrategy(ctx context.Context, tc *testctx.Context, in string) error {
	owner, err := strategyOwner(tc, in)
	if err != nil {
		return err
	}
	dec, err := d.engine.Decide(ctx, tc, owner)
	if err != nil {
		return err
	}
	action, skill, target := "none", "", ""
	if a := dec.Action; a != nil {
		action = "attack"
		if a.Skill != nil {
			action, skill = "skill", a.Skill.ID
		}
		if len(a.Targets) > 0 {
			target = a.Targets[0].Key()
		}
	}
	tc.SetVariable("strategy_action", action)
	tc.SetVariable("strategy_skill", skill)
	tc.SetVariable("strategy_target", target)
	tc.SetVariable("strategy_rule", dec.Rule)
	return nil
}
