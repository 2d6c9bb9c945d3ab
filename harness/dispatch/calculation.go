// 计算指令：派生属性、伤害管线、治疗与资源恢复。结果写入变量，不修改实体。
package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

var multiAttackRe = regexp.MustCompile(`角色对怪物进行` + countRe + `次攻击`)

// statCalc 是一条 "计算X" 指令：读取主角色的属性，写入 Var 与 character_Var。
type statCalc struct {
	name    string
	keyword string
	varName string
	value   func(d *Dispatcher, tc *testctx.Context, ch *entity.Character, f fieldSet) (any, error)
}

// critBonus 读取暴击加成：加成= 操作数优先，其次变量 varName。
func critBonus(tc *testctx.Context, f fieldSet, varName string) (float64, bool, error) {
	if v, ok, err := f.floatField("加成", "暴击加成"); ok || err != nil {
		return v, ok, err
	}
	if _, ok := tc.Variables[varName]; ok {
		return tc.Float(varName, 0), true, nil
	}
	return 0, false, nil
}

var statCalcs = []statCalc{
	{"calc_phys_crit_damage", "计算物理暴击伤害", "phys_crit_damage",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.PhysCritDamage.Value(), nil
		}},
	{"calc_phys_crit", "计算物理暴击", "phys_crit_rate",
		func(d *Dispatcher, tc *testctx.Context, ch *entity.Character, f fieldSet) (any, error) {
			bonus, ok, err := critBonus(tc, f, "phys_crit_bonus")
			if err != nil {
				return nil, err
			}
			if ok && !ch.PhysCritRate.IsExplicit() {
				return d.calc.PhysCritRate(ch.Effective(entity.StatAgility), bonus), nil
			}
			return d.calc.ClampCrit(ch.PhysCritRate.Value()), nil
		}},
	{"calc_spell_crit_damage", "计算法术暴击伤害", "spell_crit_damage",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.SpellCritDamage.Value(), nil
		}},
	{"calc_spell_crit", "计算法术暴击", "spell_crit_rate",
		func(d *Dispatcher, tc *testctx.Context, ch *entity.Character, f fieldSet) (any, error) {
			bonus, ok, err := critBonus(tc, f, "spell_crit_bonus")
			if err != nil {
				return nil, err
			}
			if ok && !ch.SpellCritRate.IsExplicit() {
				return d.calc.SpellCritRate(ch.Effective(entity.StatSpirit), bonus), nil
			}
			return d.calc.ClampCrit(ch.SpellCritRate.Value()), nil
		}},
}

var derivedCalcs = []statCalc{
	{"calc_physical_attack", "计算物理攻击", "physical_attack",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.Effective(entity.StatPhysicalAttack), nil
		}},
	{"calc_magic_attack", "计算法术攻击", "magic_attack",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.Effective(entity.StatMagicAttack), nil
		}},
	{"calc_max_hp", "计算最大生命", "max_hp",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.MaxHPValue(), nil
		}},
	{"calc_max_mp", "计算最大法力", "max_mp",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, f fieldSet) (any, error) {
			base, _, err := f.intField("基础法力", "基础MP")
			if err != nil {
				return nil, err
			}
			return calc.MaxMP(base, ch.Effective(entity.StatSpirit)), nil
		}},
	{"calc_physical_defense", "计算物理防御", "physical_defense",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.Effective(entity.StatPhysicalDefense), nil
		}},
	{"calc_magic_defense", "计算魔法防御", "magic_defense",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.Effective(entity.StatMagicDefense), nil
		}},
	{"calc_dodge", "计算闪避", "dodge_rate",
		func(d *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return calc.Clamp(ch.DodgeRate.Value(), 0, d.calc.DodgeCap), nil
		}},
	{"calc_speed", "计算速度", "speed",
		func(_ *Dispatcher, _ *testctx.Context, ch *entity.Character, _ fieldSet) (any, error) {
			return ch.Effective(entity.StatSpeed), nil
		}},
	{"calc_mana_regen", "计算法力恢复", "mana_regen",
		func(_ *Dispatcher, tc *testctx.Context, ch *entity.Character, f fieldSet) (any, error) {
			base, ok, err := f.intField("基础恢复", "基础法力恢复")
			if err != nil {
				return nil, err
			}
			if !ok {
				base = tc.Int("mana_base_regen", 5)
			}
			return calc.ManaRegen(base, ch.Effective(entity.StatSpirit)), nil
		}},
	{"calc_rage_gain", "计算怒气获得", "rage_gain",
		func(_ *Dispatcher, tc *testctx.Context, _ *entity.Character, f fieldSet) (any, error) {
			base, ok, err := f.intField("基础获得", "基础怒气获得")
			if err != nil {
				return nil, err
			}
			if !ok {
				base = 10
			}
			bonus, ok, err := f.numberField("加成百分比", "加成")
			if err != nil {
				return nil, err
			}
			if !ok {
				bonus = tc.Float("rage_bonus_percent", 0)
			}
			return calc.RageGain(base, bonus), nil
		}},
	{"calc_energy_regen", "计算能量恢复", "energy_regen",
		func(_ *Dispatcher, tc *testctx.Context, _ *entity.Character, f fieldSet) (any, error) {
			base, ok, err := f.intField("基础恢复", "基础能量恢复")
			if err != nil {
				return nil, err
			}
			if !ok {
				base = tc.Int("energy_base_regen", 20)
			}
			return calc.EnergyRegen(base), nil
		}},
}

func (d *Dispatcher) statRule(s statCalc) Rule {
	return Rule{
		Name:  s.name,
		Match: func(in string) bool { return strings.Contains(in, s.keyword) },
		Handle: func(_ context.Context, tc *testctx.Context, in string) error {
			f := fields(in)
			ch, err := characterArg(tc, f)
			if err != nil {
				return err
			}
			d.calc.Refresh(ch)
			v, err := s.value(d, tc, ch, f)
			if err != nil {
				return err
			}
			tc.SetVariable(s.varName, v)
			tc.SetVariable("character_"+s.varName, v)
			return nil
		},
	}
}

func (d *Dispatcher) calculationRules() []Rule {
	var rules []Rule
	for _, s := range statCalcs {
		rules = append(rules, d.statRule(s))
	}
	rules = append(rules,
		Rule{
			Name:   "calc_base_damage",
			Match:  func(in string) bool { return strings.Contains(in, "计算基础伤害") },
			Handle: d.handleBaseDamage,
		},
		Rule{
			Name:   "apply_defense",
			Match:  func(in string) bool { return containsAny(in, "计算减伤后伤害", "应用防御减伤") },
			Handle: d.handleApplyDefense,
		},
		Rule{
			Name:   "apply_crit",
			Match:  func(in string) bool { return strings.Contains(in, "应用暴击倍率") },
			Handle: d.handleApplyCrit,
		},
		Rule{
			Name:   "calc_damage",
			Match:  func(in string) bool { return containsAny(in, "计算伤害", "计算物理伤害", "计算法术伤害") },
			Handle: d.handleDamage,
		},
	)
	for _, s := range derivedCalcs {
		rules = append(rules, d.statRule(s))
	}
	rules = append(rules,
		Rule{
			Name:   "calc_healing",
			Match:  func(in string) bool { return strings.Contains(in, "计算治疗") },
			Handle: d.handleHealing,
		},
		Rule{
			Name:   "multi_attack",
			Match:  func(in string) bool { return multiAttackRe.MatchString(in) },
			Handle: d.handleMultiAttack,
		},
	)
	return rules
}

// physicalOf 指令中出现 法术/魔法 时按法术伤害计算。
func physicalOf(in string) bool {
	return !containsAny(in, "法术", "魔法")
}

// handleBaseDamage 计算 base_damage = 攻击 × 倍率。
func (d *Dispatcher) handleBaseDamage(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	attack, ok, err := f.intField("攻击", "攻击力")
	if err != nil {
		return err
	}
	if !ok {
		ch, err := characterArg(tc, f)
		if err != nil {
			return err
		}
		d.calc.Refresh(ch)
		attack = ch.Attack(physicalOf(in))
	}
	mult, ok, err := f.floatField("倍率", "伤害倍率", "技能倍率")
	if err != nil {
		return err
	}
	if !ok {
		mult = tc.Float("skill_scaling_ratio", 1)
	}
	base := calc.BaseDamage(attack, mult)
	tc.SetVariable("base_damage", base)
	tc.DeleteVariable("damage_after_crit")
	return nil
}

// handleApplyCrit 在 base_damage 上乘以暴击伤害倍率。
func (d *Dispatcher) handleApplyCrit(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	if _, ok := tc.Variables["base_damage"]; !ok {
		return errs.NotFound("variable", "base_damage")
	}
	mult, ok, err := f.floatField("暴击伤害", "暴击倍率")
	if err != nil {
		return err
	}
	if !ok {
		ch, err := characterArg(tc, f)
		if err != nil {
			return err
		}
		d.calc.Refresh(ch)
		mult = ch.CritDamage(physicalOf(in))
	}
	tc.SetVariable("damage_after_crit", calc.ApplyCrit(tc.Float("base_damage", 0), mult, true))
	return nil
}

// defenseOf 取防御：防御= 操作数，其次 monster_defense 变量，再次主怪物。
func defenseOf(tc *testctx.Context, f fieldSet, physical bool) (int, error) {
	if v, ok, err := f.intField("防御", "目标防御"); ok || err != nil {
		return v, err
	}
	if _, ok := tc.Variables["monster_defense"]; ok {
		return tc.Int("monster_defense", 0), nil
	}
	if m, err := tc.PrimaryMonster(); err == nil {
		return m.Defense(physical), nil
	}
	return 0, nil
}

// handleApplyDefense 对暴击后（或基础）伤害扣除防御，并给出 final_damage。
func (d *Dispatcher) handleApplyDefense(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	key := "damage_after_crit"
	if _, ok := tc.Variables[key]; !ok {
		key = "base_damage"
	}
	if _, ok := tc.Variables[key]; !ok {
		return errs.NotFound("variable", "base_damage")
	}
	def, err := defenseOf(tc, f, physicalOf(in))
	if err != nil {
		return err
	}
	after := calc.ApplyDefense(tc.Float(key, 0), def)
	tc.SetVariable("damage_after_defense", after)
	tc.SetVariable("final_damage", calc.Finalize(after))
	return nil
}

// handleDamage 一次性跑完伤害管线。直接指令不掷骰：只有写明"暴击"才会暴击。
func (d *Dispatcher) handleDamage(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	d.calc.Refresh(ch)
	physical := physicalOf(in)
	def, err := defenseOf(tc, f, physical)
	if err != nil {
		return err
	}
	mult, ok, err := f.floatField("倍率", "伤害倍率", "技能倍率")
	if err != nil {
		return err
	}
	if !ok {
		mult = tc.Float("skill_scaling_ratio", 1)
	}
	typ := calc.Physical
	if !physical {
		typ = calc.Magic
	}
	noCrit := containsAny(in, "不暴击", "无暴击", "非暴击")
	res := d.calc.Resolve(calc.DamageInput{
		Attack:     ch.Attack(physical),
		Multiplier: mult,
		Defense:    def,
		CritRate:   ch.CritRate(physical),
		CritDamage: ch.CritDamage(physical),
		Type:       typ,
		ForceCrit:  !noCrit && strings.Contains(in, "暴击"),
		NoCrit:     noCrit,
	}, nil)

	tc.SetVariable("base_damage", res.Base)
	tc.SetVariable("damage_after_crit", res.AfterCrit)
	tc.SetVariable("damage_after_defense", res.AfterDefense)
	tc.SetVariable("final_damage", res.Final)
	tc.SetVariable("is_crit", res.IsCrit)
	tc.SetVariable("damage_type", string(typ))
	return nil
}

// handleHealing 计算治疗量，不修改 HP。
func (d *Dispatcher) handleHealing(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	base, ok, err := f.intField("治疗", "基础治疗", "治疗量")
	if err != nil {
		return err
	}
	if !ok {
		base = tc.Int("skill_heal_amount", 0)
	}
	mult, ok, err := f.floatField("倍率", "治疗倍率")
	if err != nil {
		return err
	}
	if !ok {
		mult = 1
	}
	bonus, ok, err := f.numberField("加成百分比", "治疗加成")
	if err != nil {
		return err
	}
	if !ok {
		bonus = tc.Float("heal_bonus_percent", 0)
	}
	h := calc.Healing(base, mult, bonus, ch.HP, ch.MaxHPValue())
	tc.SetVariable("heal_final", h.Final)
	tc.SetVariable("healing_done", h.Actual)
	tc.SetVariable("overhealing", h.Overheal)
	return nil
}

// handleMultiAttack 对主怪物模拟 N 次攻击（掷骰但不扣血），统计暴击与闪避频率。
func (d *Dispatcher) handleMultiAttack(_ context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(multiAttackRe, in, "攻击次数")
	if err != nil {
		return err
	}
	if n <= 0 {
		return errs.Malformed("攻击次数", "0")
	}
	ch, err := tc.PrimaryCharacter()
	if err != nil {
		return err
	}
	m, err := tc.PrimaryMonster()
	if err != nil {
		return err
	}
	d.calc.Refresh(ch)

	crits, dodges, total := 0, 0, 0
	for i := 0; i < n; i++ {
		res := d.calc.Resolve(calc.DamageInput{
			Attack:     ch.Attack(true),
			Defense:    m.Defense(true),
			CritRate:   ch.CritRate(true),
			CritDamage: ch.CritDamage(true),
			DodgeRate:  m.Dodge(),
			Type:       calc.Physical,
		}, tc.Rand)
		if res.IsCrit {
			crits++
		}
		if res.IsDodged {
			dodges++
		}
		total += res.Final
	}
	tc.SetVariable("attack_count", n)
	tc.SetVariable("crit_count", crits)
	tc.SetVariable("dodge_count", dodges)
	tc.SetVariable("crit_rate_actual", float64(crits)/float64(n))
	tc.SetVariable("dodge_rate_actual", float64(dodges)/float64(n))
	tc.SetVariable("total_damage", total)
	tc.SetVariable("average_damage", float64(total)/float64(n))
	return nil
}
