// 怪物指令：单个、批量与列表创建。
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
	createMonstersRe = regexp.MustCompile(`创建` + countRe + `个.*?怪物`)
	monsterIndexRe   = regexp.MustCompile(`^怪物(\d+)`)
)

func (d *Dispatcher) monsterRules() []Rule {
	return []Rule{
		{
			Name:   "create_monsters_list",
			Match:  func(in string) bool { return strings.HasPrefix(in, "创建多个怪物:") },
			Handle: d.handleCreateMonsterList,
		},
		{
			Name: "create_monster",
			Match: func(in string) bool {
				return strings.Contains(in, "创建一个怪物") || strings.HasPrefix(in, "创建怪物") || strings.HasPrefix(in, "创建一个Boss")
			},
			Handle: d.handleCreateMonster,
		},
		{
			Name:   "create_monsters",
			Match:  func(in string) bool { return createMonstersRe.MatchString(in) },
			Handle: d.handleCreateMonsters,
		},
	}
}

var monsterInts = []struct {
	names []string
	set   func(*entity.Monster, int)
}{
	{[]string{"等级", "level"}, func(m *entity.Monster, v int) { m.Level = v }},
	{[]string{"攻击", "物理攻击", "攻击力"}, func(m *entity.Monster, v int) { m.PhysicalAttack = v }},
	{[]string{"法术攻击", "魔法攻击"}, func(m *entity.Monster, v int) { m.MagicAttack = v }},
	{[]string{"防御", "物理防御", "防御力"}, func(m *entity.Monster, v int) { m.PhysicalDefense = v }},
	{[]string{"魔法防御", "法术防御"}, func(m *entity.Monster, v int) { m.MagicDefense = v }},
	{[]string{"速度"}, func(m *entity.Monster, v int) { m.Speed = v }},
	{[]string{"资源"}, func(m *entity.Monster, v int) { m.Resource = v }},
	{[]string{"经验", "经验奖励", "基础经验"}, func(m *entity.Monster, v int) { m.ExpReward = v }},
	{[]string{"金币", "金币掉落", "金币奖励"}, func(m *entity.Monster, v int) { m.GoldReward = v }},
}

var monsterFloats = []struct {
	names []string
	set   func(*entity.Monster, float64)
}{
	{[]string{"物理暴击率", "暴击率"}, func(m *entity.Monster, v float64) { m.PhysCritRate = v }},
	{[]string{"物理暴击伤害", "暴击伤害"}, func(m *entity.Monster, v float64) { m.PhysCritDamage = v }},
	{[]string{"法术暴击率"}, func(m *entity.Monster, v float64) { m.SpellCritRate = v }},
	{[]string{"闪避", "闪避率"}, func(m *entity.Monster, v float64) { m.DodgeRate = v }},
}

// createMonster 按描述创建怪物。HP 同时设定当前值与上限。
func (d *Dispatcher) createMonster(tc *testctx.Context, alias, desc string) (*entity.Monster, error) {
	f := fields(desc)
	if _, name, ok := f.lookup("名称", "别名", "名字"); ok {
		alias = name
	}
	m := entity.NewMonster(alias)
	for _, k := range monsterInts {
		v, ok, err := f.intField(k.names...)
		if err != nil {
			return nil, err
		}
		if ok {
			k.set(m, v)
		}
	}
	for _, k := range monsterFloats {
		v, ok, err := f.floatField(k.names...)
		if err != nil {
			return nil, err
		}
		if ok {
			k.set(m, v)
		}
	}
	maxHP, explicitMax, err := f.intField("最大HP", "最大生命")
	if err != nil {
		return nil, err
	}
	if explicitMax {
		m.MaxHP, m.HP = maxHP, maxHP
	}
	if v, ok, err := f.intField("HP", "生命", "血量"); err != nil {
		return nil, err
	} else if ok {
		if !explicitMax {
			m.MaxHP = v
		}
		m.HP = min(v, m.MaxHP)
	}
	if _, loot, ok := f.lookup("掉落", "战利品"); ok {
		m.LootIDs = strings.Split(loot, "|")
	}

	tc.AddMonster(m)
	d.logger.Debug("monster created",
		zap.String("alias", m.Alias),
		zap.Int("hp", m.HP),
		zap.Int("speed", m.Speed))
	return m, nil
}

// handleCreateMonster 创建单个怪物（默认别名 monster）。
func (d *Dispatcher) handleCreateMonster(_ context.Context, tc *testctx.Context, in string) error {
	m, err := d.createMonster(tc, testctx.DefaultMonster, in)
	if err != nil {
		return err
	}
	tc.SetVariable("monster_id", m.ID)
	return nil
}

// monsterDescriptors 解析 怪物1速度=40,怪物2(速度=80) 形式的列表。
// 描述按出现顺序编号，写在前面的序号只用于阅读。
func monsterDescriptors(list string) []string {
	parts := mergeDescriptors(splitTop(list), func(p string) bool {
		return strings.HasPrefix(p, "怪物") || strings.HasPrefix(p, "Boss")
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, monsterIndexRe.ReplaceAllString(p, ""))
	}
	return out
}

// handleCreateMonsters 处理 创建N个怪物[:描述列表]。第 i 个怪物别名为 monster_i。
func (d *Dispatcher) handleCreateMonsters(_ context.Context, tc *testctx.Context, in string) error {
	head, list, _ := strings.Cut(in, ":")
	n, _, err := countAfter(createMonstersRe, head, "怪物数")
	if err != nil {
		return err
	}
	descs := monsterDescriptors(list)
	if len(descs) > n {
		return errs.Malformed("怪物列表", list)
	}
	for i := 1; i <= n; i++ {
		desc := head
		if i <= len(descs) {
			desc = descs[i-1]
		}
		if _, err := d.createMonster(tc, fmt.Sprintf("monster_%d", i), desc); err != nil {
			return err
		}
	}
	tc.SetVariable("enemy_count", len(tc.Monsters))
	return nil
}

// handleCreateMonsterList 处理 创建多个怪物:怪物1(HP=50),怪物2(HP=80)。
func (d *Dispatcher) handleCreateMonsterList(_ context.Context, tc *testctx.Context, in string) error {
	list, _ := afterColon(in)
	descs := monsterDescriptors(list)
	if len(descs) == 0 {
		return errs.Malformed("怪物列表", in)
	}
	for i, desc := range descs {
		if _, err := d.createMonster(tc, fmt.Sprintf("monster_%d", i+1), desc); err != nil {
			return err
		}
	}
	tc.SetVariable("enemy_count", len(tc.Monsters))
	return nil
}
