// 技能指令：定义、学习、施放与冷却查询。
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

var (
	skillNameRe     = regexp.MustCompile(`创建一个(.*?)技能`)
	skillCostRe     = regexp.MustCompile(`消耗[=:]?(\d+)`)
	skillCooldownRe = regexp.MustCompile(`冷却(?:时间)?[=:]?(\d+)`)
	skillMultRe     = regexp.MustCompile(`(?:伤害倍率|倍率)[=:]?(\d+(?:\.\d+)?)(%?)`)
	skillHealRe     = regexp.MustCompile(`治疗(?:量)?[=:]?(\d+)`)
	useSkillRe      = regexp.MustCompile(`使用(.*?)技能`)
)

// magicWords 出现任一即为法术伤害技能。
var magicWords = []string{"法术", "魔法", "火焰", "火球", "冰霜", "暗影", "奥术", "神圣", "自然"}

func (d *Dispatcher) skillRules() []Rule {
	return []Rule{
		{
			Name: "create_skill",
			Match: func(in string) bool {
				return strings.HasPrefix(in, "创建") && strings.Contains(in, "技能")
			},
			Handle: d.handleCreateSkill,
		},
		{
			Name: "learn_skill",
			Match: func(in string) bool {
				return strings.Contains(in, "学习") && strings.Contains(in, "技能") ||
					strings.HasPrefix(in, "给怪物添加") && strings.Contains(in, "技能")
			},
			Handle: d.handleLearnSkill,
		},
		{
			Name: "monster_use_skill",
			Match: func(in string) bool {
				return strings.HasPrefix(in, "怪物使用") && strings.Contains(in, "技能")
			},
			Handle: d.handleMonsterUseSkill,
		},
		{
			Name:   "use_skill",
			Match:  func(in string) bool { return strings.Contains(in, "使用") && strings.Contains(in, "技能") },
			Handle: d.handleUseSkill,
		},
		{
			Name:   "check_cooldown",
			Match:  func(in string) bool { return strings.Contains(in, "检查技能冷却") },
			Handle: d.handleCheckCooldown,
		},
	}
}

// skillInt 先读 key=value 操作数，没有时再用 re 匹配 冷却3回合 这类省略写法。
func skillInt(f fieldSet, in string, re *regexp.Regexp, field string, names ...string) (int, bool, error) {
	if n, ok, err := f.intField(names...); ok || err != nil {
		return n, ok, err
	}
	m := re.FindStringSubmatch(in)
	if m == nil {
		return 0, false, nil
	}
	n, err := countOf(m[1], field)
	return n, err == nil, err
}

// parseSkill 从创建指令中解析技能定义。
// 公式=... 必须是最后一个字段，其后内容整体作为伤害公式。
func parseSkill(tc *testctx.Context, in string) (*entity.SkillDef, error) {
	in, formula, _ := strings.Cut(in, "公式=")
	f := fields(in)
	def := &entity.SkillDef{Kind: entity.SkillDamage, DamageMultiplier: 1, DamageType: string(calc.Physical)}
	if formula = strings.TrimSpace(formula); formula != "" {
		unit := &calc.Stats{HP: 1, MaxHP: 1, Atk: 1, Matk: 1, Def: 1, Mdef: 1, Str: 1, Agi: 1, Int: 1, Sta: 1, Spi: 1, Speed: 1, Level: 1}
		if _, err := calc.EvalFormula(formula, unit, unit); err != nil {
			return nil, errs.Malformed("公式", formula)
		}
		def.Formula = formula
	}

	if _, v, ok := f.lookup("名称", "名字"); ok {
		def.Name = v
	} else if m := skillNameRe.FindStringSubmatch(in); m != nil && !strings.ContainsAny(m[1], "=:0123456789") {
		def.Name = m[1]
	}
	if _, v, ok := f.lookup("id", "ID", "技能ID"); ok {
		def.ID = v
	} else if def.Name != "" {
		def.ID = def.Name
	} else {
		def.ID = fmt.Sprintf("skill_%d", len(tc.Skills)+1)
	}
	if def.Name == "" {
		def.Name = def.ID
	}

	var err error
	if def.Cost, _, err = skillInt(f, in, skillCostRe, "消耗", "消耗"); err != nil {
		return nil, err
	}
	if def.Cooldown, _, err = skillInt(f, in, skillCooldownRe, "冷却", "冷却", "冷却时间"); err != nil {
		return nil, err
	}
	if v, ok, err := f.floatField("伤害倍率", "倍率"); err != nil {
		return nil, err
	} else if ok {
		def.DamageMultiplier = v
	} else if m := skillMultRe.FindStringSubmatch(in); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, errs.Malformed("伤害倍率", m[1])
		}
		if m[2] == "%" {
			v /= 100
		}
		def.DamageMultiplier = v
	}
	if containsAny(in, magicWords...) {
		def.DamageType = string(calc.Magic)
	}
	def.AOE = containsAny(in, "AOE", "群体", "范围")

	heal, healSet, err := skillInt(f, in, skillHealRe, "治疗量", "治疗量", "治疗")
	if err != nil {
		return nil, err
	}
	switch {
	case healSet || strings.Contains(in, "治疗技能"):
		def.Kind = entity.SkillHeal
		def.HealAmount = heal
	case containsAny(in, "Buff", "buff", "增益"):
		def.Kind = entity.SkillBuff
		_, rest, _ := strings.Cut(in, "技能")
		stat, ok := statOf(rest)
		if !ok {
			return nil, errs.Malformed("Buff属性", rest)
		}
		pct, ok := signedPercent(rest)
		if !ok {
			return nil, errs.Malformed("Buff数值", rest)
		}
		dur, err := durationOf(rest, f, 3)
		if err != nil {
			return nil, err
		}
		def.BuffStat, def.BuffPercent, def.BuffDuration = stat, pct, dur
	}
	return def, nil
}

// handleCreateSkill 定义技能，登记到 Context 与技能服务，并写入 skill_* 变量。
func (d *Dispatcher) handleCreateSkill(ctx context.Context, tc *testctx.Context, in string) error {
	def, err := parseSkill(tc, in)
	if err != nil {
		return err
	}
	if svc := d.engine.Skills(); svc != nil {
		if err := svc.Define(ctx, *def); err != nil {
			return err
		}
	}
	tc.SetSkill(def.ID, def)

	tc.SetVariable("skill_id", def.ID)
	tc.SetVariable("skill_name", def.Name)
	tc.SetVariable("skill_type", def.Kind)
	tc.SetVariable("skill_cost", def.Cost)
	tc.SetVariable("skill_cooldown", def.Cooldown)
	tc.SetVariable("skill_is_aoe", def.AOE)
	switch def.Kind {
	case entity.SkillHeal:
		tc.SetVariable("skill_heal_amount", def.HealAmount)
	case entity.SkillDamage:
		tc.SetVariable("skill_scaling_ratio", def.DamageMultiplier)
	case entity.SkillBuff:
		tc.SetVariable("skill_buff_duration", def.BuffDuration)
	}
	d.logger.Debug("skill defined",
		zap.String("id", def.ID),
		zap.String("kind", def.Kind),
		zap.Int("cooldown", def.Cooldown))
	return nil
}

// skillArg 解析技能引用：技能= 操作数，其次指令中的技能名（re 的捕获组），最后是最近定义的技能。
func skillArg(tc *testctx.Context, in string, f fieldSet, re *regexp.Regexp) (*entity.SkillDef, error) {
	if _, ref, ok := f.lookup("技能", "技能ID", "skill"); ok {
		return tc.GetSkill(ref)
	}
	if re != nil {
		if m := re.FindStringSubmatch(in); m != nil && m[1] != "" {
			if def, err := tc.GetSkill(m[1]); err == nil {
				return def, nil
			}
		}
	}
	return tc.LastSkill()
}

// handleLearnSkill 处理 学习技能 与 给怪物添加技能。
func (d *Dispatcher) handleLearnSkill(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	def, err := skillArg(tc, in, f, nil)
	if err != nil {
		return err
	}
	if strings.Contains(in, "怪物") {
		m, err := monsterArg(tc, f)
		if err != nil {
			return err
		}
		if err := d.engine.LearnSkill(ctx, tc, m.Alias, *def); err != nil {
			return err
		}
		tc.SetVariable("monster_skill_id", def.ID)
		return nil
	}
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	if err := d.engine.LearnSkill(ctx, tc, ch.Alias, *def); err != nil {
		return err
	}
	tc.SetVariable("skill_learned", true)
	tc.SetVariable("learned_skill_count", len(ch.Skills))
	return nil
}

// handleMonsterUseSkill 处理 怪物使用技能[,怪物=别名,目标=别名]。
func (d *Dispatcher) handleMonsterUseSkill(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	m, err := monsterArg(tc, f)
	if err != nil {
		return err
	}
	def, err := skillArg(tc, strings.TrimPrefix(in, "怪物"), f, useSkillRe)
	if err != nil {
		return err
	}
	_, target, _ := f.lookup("目标", "角色")
	if _, err := d.engine.UseSkill(ctx, tc, m.Alias, def.ID, target); err != nil {
		return err
	}
	tc.SetVariable("monster_skill_id", def.ID)
	return nil
}

// handleUseSkill 处理 使用[X]技能[,目标=别名]。冷却、沉默与资源不足只写入 skill_used=false。
func (d *Dispatcher) handleUseSkill(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	def, err := skillArg(tc, in, f, useSkillRe)
	if err != nil {
		return err
	}
	_, user, _ := f.lookup("角色", "施法者")
	_, target, _ := f.lookup("目标", "怪物")
	if _, err := d.engine.UseSkill(ctx, tc, user, def.ID, target); err != nil {
		return err
	}
	tc.SetVariable("skill_id", def.ID)
	return nil
}

// handleCheckCooldown 写入 skill_cooldown_left 与 skill_usable。
func (d *Dispatcher) handleCheckCooldown(ctx context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	def, err := skillArg(tc, in, f, nil)
	if err != nil {
		return err
	}
	var owner string
	switch {
	case strings.Contains(in, "怪物"):
		m, err := tc.PrimaryMonster()
		if err != nil {
			return err
		}
		owner = m.Alias
	default:
		ch, err := characterArg(tc, f)
		if err != nil {
			return err
		}
		owner = ch.Alias
	}
	left, err := d.engine.CooldownLeft(ctx, tc, owner, def.ID)
	if err != nil {
		return err
	}
	tc.SetVariable("skill_cooldown_left", left)
	tc.SetVariable("skill_usable", left <= 0)
	return nil
}
