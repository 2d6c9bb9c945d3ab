// 装备指令：生成、掉落、穿戴与卸下。
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/battle"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/item"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	repeatedGainRe = regexp.MustCompile(`连续获得` + countRe + `件`)
	levelReqRe     = regexp.MustCompile(`需要(\d+)级才能装备`)
	classReqRe     = regexp.MustCompile(`只有(.+?)才能装备`)
	statPlusRe     = regexp.MustCompile(`(法术攻击|魔法攻击|物理攻击|攻击力|攻击|魔法防御|法术防御|物理防御|防御力|防御|最大生命|生命|力量|敏捷|智力|耐力|精神|速度)\+(\d+)`)
)

func containsAny(in string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(in, w) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) equipmentRules() []Rule {
	return []Rule{
		{
			Name:   "monster_drop",
			Match:  func(in string) bool { return strings.Contains(in, "掉落") && strings.Contains(in, "装备") },
			Handle: d.handleDrop,
		},
		{
			Name:   "repeated_gain",
			Match:  func(in string) bool { return repeatedGainRe.MatchString(in) && strings.Contains(in, "装备") },
			Handle: d.handleRepeatedGain,
		},
		{
			Name: "gain_equipment",
			Match: func(in string) bool {
				return strings.Contains(in, "获得") && containsAny(in, "装备", "武器", "护甲", "饰品", "盾牌")
			},
			Handle: d.handleGain,
		},
		{
			Name:   "try_equip",
			Match:  func(in string) bool { return containsAny(in, "尝试穿戴", "尝试装备") },
			Handle: d.handleTryEquip,
		},
		{
			Name:   "equip_all",
			Match:  func(in string) bool { return containsAny(in, "穿戴所有装备", "依次穿戴") },
			Handle: d.handleEquipAll,
		},
		{
			Name:   "equip",
			Match:  func(in string) bool { return strings.Contains(in, "穿戴") },
			Handle: d.handleEquip,
		},
		{
			Name:   "unequip",
			Match:  func(in string) bool { return strings.Contains(in, "卸下") },
			Handle: d.handleUnequip,
		},
	}
}

// recordEquipment 把一件装备登记到装备池，并写入 equipment_* 变量。
func recordEquipment(tc *testctx.Context, alias string, eq *entity.Equipment) error {
	if err := tc.AddEquipment(alias, eq); err != nil {
		return err
	}
	tc.SetVariable("equipment_id", eq.ID)
	tc.SetVariable("equipment_item_id", eq.ItemID)
	tc.SetVariable("equipment_name", eq.Name)
	tc.SetVariable("equipment_slot", eq.Slot)
	tc.SetVariable("equipment_quality", eq.Quality)
	tc.SetVariable("equipment_level", eq.Level)
	tc.SetVariable("equipment_source", eq.Source)
	tc.SetVariable("equipment_affix_count", len(eq.Affixes))
	tc.SetVariable("equipment_physical_attack", eq.Bonus(entity.StatPhysicalAttack))
	return nil
}

// handleDrop 从怪物掉落装备：怪物=别名 或主怪物。
func (d *Dispatcher) handleDrop(_ context.Context, tc *testctx.Context, in string) error {
	m, err := monsterArg(tc, fields(in))
	if err != nil {
		return err
	}
	drops, err := battle.CalculateDrops(m, item.NewGenerator(tc.Rand), qualityOf(in))
	if err != nil {
		return err
	}
	for _, eq := range drops {
		if err := recordEquipment(tc, "", eq); err != nil {
			return err
		}
	}
	tc.SetVariable("drop_count", len(drops))
	d.logger.Debug("monster drop",
		zap.String("monster", m.Alias),
		zap.Int("count", len(drops)))
	return nil
}

// handleRepeatedGain 连续生成 N 件同槽位装备，统计不同词缀组合数。
func (d *Dispatcher) handleRepeatedGain(_ context.Context, tc *testctx.Context, in string) error {
	n, _, err := countAfter(repeatedGainRe, in, "件数")
	if err != nil {
		return err
	}
	f := fields(in)
	level, _, err := f.intField("等级", "level")
	if err != nil {
		return err
	}
	slot := lo.CoalesceOrEmpty(slotOf(in), entity.SlotMainHand)
	gen := item.NewGenerator(tc.Rand)

	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		eq, err := gen.Generate(slot, qualityOf(in), level, entity.SourceDrop)
		if err != nil {
			return err
		}
		if err := recordEquipment(tc, "", eq); err != nil {
			return err
		}
		keys = append(keys, item.AffixKey(eq))
	}
	tc.SetVariable("generated_count", n)
	tc.SetVariable("unique_affix_combinations", len(lo.Uniq(keys)))
	return nil
}

// handleGain 显式获得一件装备。属性既可写成 攻击=10，也可写成 攻击+10。
func (d *Dispatcher) handleGain(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	slot := lo.CoalesceOrEmpty(slotOf(in), entity.SlotMainHand)
	quality := lo.CoalesceOrEmpty(qualityOf(in), item.QualityCommon)
	level, _, err := f.intField("等级", "level")
	if err != nil {
		return err
	}
	tpl := item.Templates[slot]
	eq := entity.NewEquipment(tpl.ItemID, slot, quality, max(level, 1), entity.SourceExplicit)
	eq.Name = tpl.Name
	_, name, named := f.lookup("名称", "名字", "name")
	if named {
		eq.Name = name
	}

	for key, raw := range f {
		stat, ok := statExact(key)
		if !ok {
			continue
		}
		v, ok := parseCount(trimUnits(strings.TrimPrefix(raw, "+")))
		if !ok {
			return errs.Malformed(key, raw)
		}
		eq.Modifiers = append(eq.Modifiers, entity.Modifier{Stat: stat, Flat: v})
	}
	for _, m := range statPlusRe.FindAllStringSubmatch(in, -1) {
		stat, _ := statExact(m[1])
		v, err := countOf(m[2], m[1])
		if err != nil {
			return err
		}
		eq.Modifiers = append(eq.Modifiers, entity.Modifier{Stat: stat, Flat: v})
	}
	if len(eq.Modifiers) == 0 {
		eq.Modifiers = append(eq.Modifiers, tpl.Base...)
	}

	if m := levelReqRe.FindStringSubmatch(in); m != nil {
		if eq.LevelRequired, err = countOf(m[1], "等级要求"); err != nil {
			return err
		}
	}
	if m := classReqRe.FindStringSubmatch(in); m != nil {
		class := classOf(m[1])
		if class == "" {
			return errs.Malformed("职业", m[1])
		}
		eq.ClassRequired = class
	}

	alias := ""
	if named {
		alias = name
	}
	return recordEquipment(tc, alias, eq)
}

// pickEquipment 选出要穿戴的装备：装备=引用，否则取装备池中最后一件空闲装备（可按槽位过滤）。
func pickEquipment(tc *testctx.Context, in string, f fieldSet) (*entity.Equipment, error) {
	if _, ref, ok := f.lookup("装备", "equipment"); ok {
		return tc.GetEquipment(ref)
	}
	slot := slotOf(in)
	free := lo.Filter(tc.Equipment.Free(), func(eq *entity.Equipment, _ int) bool {
		return slot == "" || eq.Slot == slot
	})
	if len(free) == 0 {
		return nil, errs.NotFound("equipment", lo.CoalesceOrEmpty(slot, "free"))
	}
	return free[len(free)-1], nil
}

// equip 穿戴并刷新派生属性，记录前后的物理攻击。
func (d *Dispatcher) equip(tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	eq, err := pickEquipment(tc, in, f)
	if err != nil {
		return err
	}
	before := ch.Effective(entity.StatPhysicalAttack)
	old, err := d.equipSvc.Equip(ch, eq)
	if err != nil {
		return err
	}
	d.calc.Refresh(ch)

	tc.SetVariable("previous_physical_attack", before)
	tc.SetVariable("character_physical_attack", ch.Effective(entity.StatPhysicalAttack))
	tc.SetVariable("equipment_id", eq.ID)
	tc.SetVariable("replaced_equipment_id", "")
	if old != nil {
		tc.SetVariable("replaced_equipment_id", old.ID)
	}
	tc.SetVariable("equip_success", true)
	return nil
}

func (d *Dispatcher) handleEquip(_ context.Context, tc *testctx.Context, in string) error {
	return d.equip(tc, in)
}

// handleTryEquip 与穿戴相同，但失败只记录到 equip_success 与 error_message。
func (d *Dispatcher) handleTryEquip(_ context.Context, tc *testctx.Context, in string) error {
	if err := d.equip(tc, in); err != nil {
		tc.SetVariable("equip_success", false)
		tc.SetVariable("error_message", err.Error())
		d.logger.Debug("equip rejected", zap.Error(err))
	}
	return nil
}

func (d *Dispatcher) handleEquipAll(_ context.Context, tc *testctx.Context, in string) error {
	ch, err := characterArg(tc, fields(in))
	if err != nil {
		return err
	}
	n := d.equipSvc.EquipAll(ch, tc.Equipment)
	d.calc.Refresh(ch)
	tc.SetVariable("equipped_count", n)
	tc.SetVariable("equipped_slots", len(ch.Equipped))
	tc.SetVariable("character_physical_attack", ch.Effective(entity.StatPhysicalAttack))
	return nil
}

func (d *Dispatcher) handleUnequip(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	slot := lo.CoalesceOrEmpty(slotOf(in), entity.SlotMainHand)
	if _, s, ok := f.lookup("槽位", "slot"); ok {
		slot = s
	}
	eq, err := d.equipSvc.Unequip(ch, slot)
	if err != nil {
		return fmt.Errorf("卸下%s: %w", slot, err)
	}
	d.calc.Refresh(ch)
	tc.SetVariable("unequipped_id", eq.ID)
	tc.SetVariable("character_physical_attack", ch.Effective(entity.StatPhysicalAttack))
	return nil
}
