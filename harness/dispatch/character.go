// 角色指令：创建角色、设置属性与变量、Buff、护盾、控制效果与金币。
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

var (
	createCharactersRe = regexp.MustCompile(`创建` + countRe + `个.*?角色`)
	gainGoldRe         = regexp.MustCompile(`获得(\d+)金币`)
	shieldAmountRe     = regexp.MustCompile(`(\d+)点护盾`)
)

// varAliases 把中文变量名映射到引擎读取的变量键。
var varAliases = map[string]string{
	"怒气加成":    "rage_bonus_percent",
	"怒气加成百分比": "rage_bonus_percent",
	"治疗加成":    "heal_bonus_percent",
	"治疗加成百分比": "heal_bonus_percent",
	"法力基础恢复":  "mana_base_regen",
	"能量基础恢复":  "energy_base_regen",
	"物理暴击加成":  "phys_crit_bonus",
	"法术暴击加成":  "spell_crit_bonus",
	"最大回合":    "step_max_rounds",
	"最大回合数":   "step_max_rounds",
	"技能倍率":    "skill_scaling_ratio",
	"怪物防御":    "monster_defense",
	"战斗随机种子":  "battle_seed",
}

func (d *Dispatcher) characterRules() []Rule {
	return []Rule{
		{
			Name:   "set_character",
			Match:  func(in string) bool { return strings.HasPrefix(in, "设置角色") },
			Handle: d.handleSetCharacter,
		},
		{
			Name:   "set_variable",
			Match:  func(in string) bool { return strings.HasPrefix(in, "设置") },
			Handle: d.handleSetVariable,
		},
		{
			Name:   "create_characters_list",
			Match:  func(in string) bool { return strings.HasPrefix(in, "创建多个角色:") },
			Handle: d.handleCreateCharacterList,
		},
		{
			Name: "create_character",
			Match: func(in string) bool {
				return (strings.Contains(in, "创建一个") && strings.Contains(in, "角色")) || strings.HasPrefix(in, "创建角色")
			},
			Handle: d.handleCreateCharacter,
		},
		{
			Name:   "create_characters",
			Match:  func(in string) bool { return createCharactersRe.MatchString(in) },
			Handle: d.handleCreateCharacters,
		},
		{
			Name: "add_buff",
			Match: func(in string) bool {
				return strings.HasPrefix(in, "给") && strings.Contains(in, "添加") && containsAny(in, "Buff", "buff", "BUFF", "增益")
			},
			Handle: d.handleAddBuff,
		},
		{
			Name: "add_shield",
			Match: func(in string) bool {
				return strings.HasPrefix(in, "给") && strings.Contains(in, "添加") && strings.Contains(in, "护盾")
			},
			Handle: d.handleAddShield,
		},
		{
			Name: "add_effect",
			Match: func(in string) bool {
				return strings.HasPrefix(in, "给") && strings.Contains(in, "添加") && effectOf(in) != ""
			},
			Handle: d.handleAddEffect,
		},
		{
			Name:   "gain_gold",
			Match:  func(in string) bool { return gainGoldRe.MatchString(in) },
			Handle: d.handleGainGold,
		},
		{
			Name:   "buy_item",
			Match:  func(in string) bool { return strings.Contains(in, "购买物品") },
			Handle: d.handleBuyItem,
		},
	}
}

// newCharacter 创建一个刷新过派生属性且满血的角色。
func (d *Dispatcher) newCharacter(alias, class string) *entity.Character {
	ch := entity.NewCharacter(alias, class)
	d.calc.Refresh(ch)
	ch.HP = ch.MaxHPValue()
	return ch
}

var (
	primaryKeys = []struct {
		names []string
		set   func(*entity.Character, int)
	}{
		{[]string{"等级", "level"}, func(c *entity.Character, v int) { c.Level = v }},
		{[]string{"力量"}, func(c *entity.Character, v int) { c.Strength = v }},
		{[]string{"敏捷"}, func(c *entity.Character, v int) { c.Agility = v }},
		{[]string{"智力"}, func(c *entity.Character, v int) { c.Intellect = v }},
		{[]string{"耐力"}, func(c *entity.Character, v int) { c.Stamina = v }},
		{[]string{"精神"}, func(c *entity.Character, v int) { c.Spirit = v }},
		{[]string{"基础HP", "基础生命"}, func(c *entity.Character, v int) { c.BaseHP = v }},
		{[]string{"金币"}, func(c *entity.Character, v int) { c.Gold = v }},
		{[]string{"经验"}, func(c *entity.Character, v int) { c.Exp = v }},
	}
	intOverrides = []struct {
		names []string
		attr  func(*entity.Character) *entity.Attr[int]
	}{
		{[]string{"攻击", "物理攻击", "攻击力"}, func(c *entity.Character) *entity.Attr[int] { return &c.PhysicalAttack }},
		{[]string{"法术攻击", "魔法攻击"}, func(c *entity.Character) *entity.Attr[int] { return &c.MagicAttack }},
		{[]string{"防御", "物理防御", "防御力"}, func(c *entity.Character) *entity.Attr[int] { return &c.PhysicalDefense }},
		{[]string{"魔法防御", "法术防御"}, func(c *entity.Character) *entity.Attr[int] { return &c.MagicDefense }},
		{[]string{"速度"}, func(c *entity.Character) *entity.Attr[int] { return &c.Speed }},
		{[]string{"最大HP", "最大生命", "最大生命值"}, func(c *entity.Character) *entity.Attr[int] { return &c.MaxHP }},
	}
	floatOverrides = []struct {
		names []string
		attr  func(*entity.Character) *entity.Attr[float64]
	}{
		{[]string{"物理暴击率", "暴击率"}, func(c *entity.Character) *entity.Attr[float64] { return &c.PhysCritRate }},
		{[]string{"物理暴击伤害", "暴击伤害"}, func(c *entity.Character) *entity.Attr[float64] { return &c.PhysCritDamage }},
		{[]string{"法术暴击率"}, func(c *entity.Character) *entity.Attr[float64] { return &c.SpellCritRate }},
		{[]string{"法术暴击伤害"}, func(c *entity.Character) *entity.Attr[float64] { return &c.SpellCritDamage }},
		{[]string{"闪避", "闪避率"}, func(c *entity.Character) *entity.Attr[float64] { return &c.DodgeRate }},
	}
)

// applyCharacterFields 先写主属性并刷新派生属性，再写显式覆盖值，最后处理 HP 与资源。
// 返回值表示是否显式给出了当前 HP。
func (d *Dispatcher) applyCharacterFields(ch *entity.Character, f fieldSet) (hpSet bool, err error) {
	for _, k := range primaryKeys {
		v, ok, err := f.intField(k.names...)
		if err != nil {
			return false, err
		}
		if ok {
			k.set(ch, v)
		}
	}
	d.calc.Refresh(ch)

	for _, k := range intOverrides {
		v, ok, err := f.intField(k.names...)
		if err != nil {
			return false, err
		}
		if ok {
			k.attr(ch).Override(v)
		}
	}
	for _, k := range floatOverrides {
		v, ok, err := f.floatField(k.names...)
		if err != nil {
			return false, err
		}
		if ok {
			k.attr(ch).Override(v)
		}
	}

	if v, ok, err := f.intField("最大资源", "资源上限"); err != nil {
		return false, err
	} else if ok {
		ch.MaxResource = v
	}
	if v, ok, err := f.intField("资源", "怒气", "法力", "能量"); err != nil {
		return false, err
	} else if ok {
		ch.MaxResource = max(ch.MaxResource, v)
		ch.Resource = v
	}

	if _, v, ok := f.lookup("阵营", "faction"); ok {
		if ch.Faction = factionOf(v); ch.Faction == "" {
			return false, errs.Malformed("阵营", v)
		}
	}

	hp, ok, err := f.intField("HP", "生命", "当前HP", "当前生命")
	if err != nil {
		return false, err
	}
	if ok {
		if hp > ch.MaxHPValue() {
			ch.MaxHP.Override(hp)
		}
		ch.SetHP(hp)
	} else {
		ch.SetHP(ch.HP)
	}
	return ok, nil
}

// createCharacter 按描述创建角色并存入 Context；同别名的旧角色被替换。
func (d *Dispatcher) createCharacter(tc *testctx.Context, alias, desc string) (*entity.Character, error) {
	f := fields(desc)
	if _, name, ok := f.lookup("名称", "别名", "名字"); ok {
		alias = name
	}
	class := classOf(desc)
	if _, v, ok := f.lookup("职业"); ok {
		if class = classOf(v); class == "" {
			return nil, errs.Malformed("职业", v)
		}
	}
	ch := d.newCharacter(alias, class)
	hpSet, err := d.applyCharacterFields(ch, f)
	if err != nil {
		return nil, err
	}
	if !hpSet {
		ch.HP = ch.MaxHPValue()
	}
	tc.AddCharacter(ch)
	d.logger.Debug("character created",
		zap.String("alias", ch.Alias),
		zap.String("class", ch.Class))
	return ch, nil
}

// handleCreateCharacter 创建单个角色（默认别名 character）。
// "创建一个角色和一个怪物" 同时创建默认怪物。
func (d *Dispatcher) handleCreateCharacter(_ context.Context, tc *testctx.Context, in string) error {
	desc, monsterPart, both := strings.Cut(in, "和一个怪物")
	ch, err := d.createCharacter(tc, testctx.PrimaryAlias, desc)
	if err != nil {
		return err
	}
	tc.SetVariable("character_class_id", ch.Class)
	if both {
		if _, err := d.createMonster(tc, testctx.DefaultMonster, monsterPart); err != nil {
			return err
		}
	}
	return nil
}

// handleCreateCharacters 处理 创建N个角色，字段作用于每个角色。
func (d *Dispatcher) handleCreateCharacters(_ context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(createCharactersRe, in, "角色数")
	if err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		if _, err := d.createCharacter(tc, fmt.Sprintf("character_%d", i), in); err != nil {
			return err
		}
	}
	tc.SetVariable("character_count", n)
	return nil
}

// mergeDescriptors 把不以新实体开头的片段并回前一个描述。
func mergeDescriptors(parts []string, starts func(string) bool) []string {
	var out []string
	for _, p := range parts {
		if len(out) > 0 && !starts(p) {
			out[len(out)-1] += "," + p
			continue
		}
		out = append(out, p)
	}
	return out
}

// handleCreateCharacterList 处理 创建多个角色:战士(力量=20),法师(智力=30)。
// 第 i 个描述得到别名 character_i。
func (d *Dispatcher) handleCreateCharacterList(_ context.Context, tc *testctx.Context, in string) error {
	list, _ := afterColon(in)
	descs := mergeDescriptors(splitTop(list), func(p string) bool {
		return classOf(p) != "" || strings.HasPrefix(p, "角色")
	})
	if len(descs) == 0 {
		return errs.Malformed("角色列表", in)
	}
	for i, desc := range descs {
		if _, err := d.createCharacter(tc, fmt.Sprintf("character_%d", i+1), desc); err != nil {
			return err
		}
	}
	tc.SetVariable("character_count", len(descs))
	return nil
}

// handleSetCharacter 处理 设置角色力量=20 或 设置角色,角色=character_2,攻击=30。
func (d *Dispatcher) handleSetCharacter(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(strings.TrimPrefix(in, "设置角色"))
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	if _, err := d.applyCharacterFields(ch, f); err != nil {
		return err
	}
	tc.SetVariable("character_physical_attack", ch.Effective(entity.StatPhysicalAttack))
	return nil
}

// handleSetVariable 处理 设置k=v[,k2=v2]。
func (d *Dispatcher) handleSetVariable(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(strings.TrimPrefix(in, "设置"))
	if len(f) == 0 {
		return errs.Malformed("变量", in)
	}
	for k, raw := range f {
		if alias, ok := varAliases[k]; ok {
			k = alias
		}
		tc.SetVariable(k, parseValue(raw))
	}
	return nil
}

// combatantTarget 按 给角色/给怪物 选出目标，可用 目标=别名 指定。
func combatantTarget(tc *testctx.Context, in string, f fieldSet) (entity.Combatant, error) {
	monster := strings.HasPrefix(in, "给怪物")
	if _, alias, ok := f.lookup("目标", "角色", "怪物"); ok {
		if monster {
			return tc.GetMonster(alias)
		}
		return tc.GetCharacter(alias)
	}
	if monster {
		return tc.PrimaryMonster()
	}
	return tc.PrimaryCharacter()
}

// refreshIfCharacter 刷新角色的派生属性。
func (d *Dispatcher) refreshIfCharacter(cb entity.Combatant) {
	if ch, ok := cb.(*entity.Character); ok {
		d.calc.Refresh(ch)
	}
}

// handleAddBuff 处理 给角色添加攻击力Buff(攻击力+50%,持续3回合)。
func (d *Dispatcher) handleAddBuff(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	cb, err := combatantTarget(tc, in, f)
	if err != nil {
		return err
	}
	_, rest, _ := strings.Cut(in, "添加")
	stat, ok := statOf(rest)
	if !ok {
		return errs.Malformed("Buff属性", rest)
	}
	duration, err := durationOf(in, f, 3)
	if err != nil {
		return err
	}
	b := entity.Buff{ID: "buff_" + string(stat), Stat: stat, Remaining: duration}
	if pct, ok := signedPercent(in); ok {
		b.Percent = pct
	} else if m := statPlusRe.FindStringSubmatch(in); m != nil {
		n, ok := parseCount(m[2])
		if !ok {
			return errs.Malformed("Buff数值", m[2])
		}
		b.Flat = n
	} else if v, ok, err := f.floatField("加成", "数值"); err != nil {
		return err
	} else if ok {
		b.Percent = v
	} else {
		return errs.Malformed("Buff数值", in)
	}

	cb.BuffList().Add(b)
	d.refreshIfCharacter(cb)
	tc.SetVariable("buff_count", cb.BuffList().Len())
	tc.SetVariable("buff_duration", duration)
	tc.SetVariable("buffed_attack", cb.Attack(true))
	return nil
}

// handleAddShield 处理 给角色添加50点护盾,持续2回合。
func (d *Dispatcher) handleAddShield(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	amount, ok, err := f.intField("数值", "护盾", "吸收", "护盾值")
	if err != nil {
		return err
	}
	if !ok {
		m := shieldAmountRe.FindStringSubmatch(in)
		if m == nil {
			return errs.Malformed("护盾值", in)
		}
		if amount, err = countOf(m[1], "护盾值"); err != nil {
			return err
		}
	}
	duration, err := durationOf(in, f, 3)
	if err != nil {
		return err
	}
	ch.Shield = entity.Shield{Amount: amount, Remaining: duration}
	tc.SetVariable("shield_amount", amount)
	tc.SetVariable("shield_duration", duration)
	return nil
}

// handleAddEffect 处理 给怪物添加眩晕效果,持续2回合。
func (d *Dispatcher) handleAddEffect(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	cb, err := combatantTarget(tc, in, f)
	if err != nil {
		return err
	}
	duration, err := durationOf(in, f, 1)
	if err != nil {
		return err
	}
	effect := effectOf(in)
	cb.ActiveEffects()[effect] = duration
	tc.SetVariable(cb.Key()+"_"+effect, true)
	return nil
}

func (d *Dispatcher) handleGainGold(_ context.Context, tc *testctx.Context, in string) error {
	ch, err := characterArg(tc, fields(in))
	if err != nil {
		return err
	}
	n, err := countOf(gainGoldRe.FindStringSubmatch(in)[1], "金币")
	if err != nil {
		return err
	}
	ch.Gold += n
	tc.SetVariable("character_gold", ch.Gold)
	return nil
}

// handleBuyItem 处理 购买物品,价格=50 与 购买物品A。未给价格时取商店标价。
// 金币不足时只记录失败。
func (d *Dispatcher) handleBuyItem(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	_, name, _ := f.lookup("物品", "名称")
	if name == "" {
		_, after, _ := strings.Cut(in, "购买")
		if parts := strings.FieldsFunc(after, isDelim); len(parts) > 0 && parts[0] != "物品" {
			name = parts[0]
		}
	}
	price, ok, err := f.intField("价格", "price")
	if err != nil {
		return err
	}
	if !ok {
		if price, ok = tc.Shop[name]; !ok {
			return errs.Malformed("价格", name)
		}
	}
	if ch.Gold < price {
		tc.SetVariable("purchase_success", false)
		tc.SetVariable("error_message", "金币不足")
		return nil
	}
	ch.Gold -= price
	tc.SetVariable("purchase_success", true)
	tc.SetVariable("purchased_item", name)
	tc.SetVariable("character_gold", ch.Gold)
	return nil
}
