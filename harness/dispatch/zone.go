// 区域指令：加载、切换、倍率与区域内击杀奖励。
package dispatch

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

var (
	loadZoneRe   = regexp.MustCompile(`^加载区域(.+)$`)
	switchZoneRe = regexp.MustCompile(`切换到区域(.+)$`)
	levelGateRe  = regexp.MustCompile(`切换到需要等级` + countRe + `的区域`)
	zoneStatusRe = regexp.MustCompile(`检查区域(.+?)的?解锁状态`)
	availableRe  = regexp.MustCompile(`^查询(?:等级` + countRe + `)?,?(?:阵营([^,的]+))?的?可用区域`)
	zoneKillRe   = regexp.MustCompile(`区域击杀(?:` + countRe + `个)?怪物`)
)

// 区域内击杀的缺省基础奖励。
const (
	defaultZoneKillExp  = 10
	defaultZoneKillGold = 5
)

func (d *Dispatcher) zoneRules() []Rule {
	return []Rule{
		{
			Name:   "init_map_manager",
			Match:  func(in string) bool { return strings.Contains(in, "初始化地图管理器") },
			Handle: d.handleInitMapManager,
		},
		{
			Name:   "load_zone",
			Match:  func(in string) bool { return loadZoneRe.MatchString(in) },
			Handle: d.handleLoadZone,
		},
		{
			Name: "switch_zone",
			Match: func(in string) bool {
				return switchZoneRe.MatchString(in) || levelGateRe.MatchString(in)
			},
			Handle: d.handleSwitchZone,
		},
		{
			Name:   "create_zone",
			Match:  func(in string) bool { return strings.HasPrefix(in, "创建一个区域") },
			Handle: d.handleCreateZone,
		},
		{
			Name: "zone_multiplier",
			Match: func(in string) bool {
				return strings.Contains(in, "计算该区域") && strings.Contains(in, "倍率")
			},
			Handle: d.handleZoneMultiplier,
		},
		{
			Name:   "zone_unlock_status",
			Match:  func(in string) bool { return zoneStatusRe.MatchString(in) },
			Handle: d.handleZoneStatus,
		},
		{
			Name:   "available_zones",
			Match:  func(in string) bool { return availableRe.MatchString(in) },
			Handle: d.handleAvailableZones,
		},
		{
			Name:   "zone_kill",
			Match:  func(in string) bool { return zoneKillRe.MatchString(in) },
			Handle: d.handleZoneKill,
		},
	}
}

func (d *Dispatcher) handleInitMapManager(_ context.Context, tc *testctx.Context, _ string) error {
	if len(tc.Zones) == 0 {
		tc.Zones = entity.BuiltinZones()
	}
	tc.SetVariable("map_manager_initialized", true)
	return nil
}

// enterZone 把 z 设为当前区域并写入区域变量。
func enterZone(tc *testctx.Context, z *entity.Zone) {
	tc.Zone = z
	tc.SetVariable("zone_id", z.ID)
	tc.SetVariable("current_zone_id", z.ID)
	tc.SetVariable("zone.name", z.Name)
	tc.SetVariable("zone.min_level", z.MinLevel)
	tc.SetVariable("zone.max_level", z.MaxLevel)
	tc.SetVariable("zone.faction", z.Faction)
	tc.SetVariable("exp_multiplier", z.ExpMulti)
	tc.SetVariable("gold_multiplier", z.GoldMulti)
}

// handleLoadZone 处理 加载区域elwynn。
func (d *Dispatcher) handleLoadZone(_ context.Context, tc *testctx.Context, in string) error {
	z, err := tc.GetZone(loadZoneRe.FindStringSubmatch(in)[1])
	if err != nil {
		return err
	}
	enterZone(tc, z)
	return nil
}

// handleSwitchZone 处理 切换到区域X 与 尝试切换到需要等级N的区域。
// 等级或阵营不符时不切换，只写 error_message 与 zone_switch_success=false。
func (d *Dispatcher) handleSwitchZone(_ context.Context, tc *testctx.Context, in string) error {
	ch, err := tc.PrimaryCharacter()
	if err != nil {
		return err
	}
	var z *entity.Zone
	if n, ok, err := countAfter(levelGateRe, in, "等级"); err != nil {
		return err
	} else if ok {
		z = entity.NewZone("gated", "等级限制区域")
		z.MinLevel = n
	} else {
		if z, err = tc.GetZone(switchZoneRe.FindStringSubmatch(in)[1]); err != nil {
			return err
		}
	}
	if reason := z.Accepts(ch); reason != "" {
		tc.SetVariable("zone_switch_success", false)
		tc.SetVariable("error_message", reason)
		return nil
	}
	enterZone(tc, z)
	tc.SetVariable("zone_switch_success", true)
	return nil
}

// handleCreateZone 处理 创建一个区域,经验倍率=1.5,金币倍率=1.2。新区域成为当前区域。
func (d *Dispatcher) handleCreateZone(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	id := "test_zone"
	if _, v, ok := f.lookup("ID", "id", "区域ID"); ok {
		id = v
	}
	z := entity.NewZone(id, "测试区域")
	if _, v, ok := f.lookup("名称", "名字"); ok {
		z.Name = v
	}
	for _, p := range []struct {
		dst   *float64
		names []string
	}{
		{&z.ExpMulti, []string{"经验倍率"}},
		{&z.GoldMulti, []string{"金币倍率"}},
	} {
		v, ok, err := f.numberField(p.names...)
		if err != nil {
			return err
		}
		if ok {
			*p.dst = v
		}
	}
	for _, p := range []struct {
		dst   *int
		names []string
	}{
		{&z.MinLevel, []string{"最低等级", "等级要求"}},
		{&z.MaxLevel, []string{"最高等级"}},
	} {
		v, ok, err := f.intField(p.names...)
		if err != nil {
			return err
		}
		if ok {
			*p.dst = v
		}
	}
	if _, v, ok := f.lookup("阵营"); ok {
		if z.Faction = factionOf(v); z.Faction == "" {
			return errs.Malformed("阵营", v)
		}
	}
	tc.Zones[z.ID] = z
	enterZone(tc, z)
	return nil
}

// currentZone 返回当前区域；尚未进入任何区域时退回 elwynn。
func currentZone(tc *testctx.Context) (*entity.Zone, error) {
	if tc.Zone != nil {
		return tc.Zone, nil
	}
	return tc.GetZone("elwynn")
}

// handleZoneMultiplier 处理 计算该区域的经验倍率 / 金币倍率。
func (d *Dispatcher) handleZoneMultiplier(_ context.Context, tc *testctx.Context, in string) error {
	z, err := currentZone(tc)
	if err != nil {
		return err
	}
	switch {
	case strings.Contains(in, "经验倍率"):
		tc.SetVariable("exp_multiplier", z.ExpMulti)
	case strings.Contains(in, "金币倍率"):
		tc.SetVariable("gold_multiplier", z.GoldMulti)
	default:
		tc.SetVariable("exp_multiplier", z.ExpMulti)
		tc.SetVariable("gold_multiplier", z.GoldMulti)
	}
	return nil
}

// handleZoneStatus 处理 检查区域X的解锁状态。没有角色时视为已解锁。
func (d *Dispatcher) handleZoneStatus(_ context.Context, tc *testctx.Context, in string) error {
	z, err := tc.GetZone(zoneStatusRe.FindStringSubmatch(in)[1])
	if err != nil {
		return err
	}
	unlocked := true
	if ch, err := tc.PrimaryCharacter(); err == nil {
		unlocked = z.Accepts(ch) == ""
	}
	tc.SetVariable("zone_unlocked", unlocked)
	return nil
}

// handleAvailableZones 处理 查询等级10,阵营alliance的可用区域。
// 省略的条件取主角色的等级与阵营。
func (d *Dispatcher) handleAvailableZones(_ context.Context, tc *testctx.Context, in string) error {
	m := availableRe.FindStringSubmatch(in)
	who := entity.NewCharacter("", "")
	if ch, err := tc.PrimaryCharacter(); err == nil {
		who.Level, who.Faction = ch.Level, ch.Faction
	}
	if m[1] != "" {
		n, err := countOf(m[1], "等级")
		if err != nil {
			return err
		}
		who.Level = n
	}
	if m[2] != "" {
		if who.Faction = factionOf(m[2]); who.Faction == "" {
			return errs.Malformed("阵营", m[2])
		}
	}
	var ids []string
	for id, z := range tc.Zones {
		if z.MaxLevel > 0 && who.Level > z.MaxLevel {
			continue
		}
		if z.Accepts(who) == "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	tc.SetVariable("available_zones", ids)
	tc.SetVariable("available_zones_count", len(ids))
	return nil
}

// handleZoneKill 处理 角色在该区域击杀N个怪物(基础经验=10,基础金币=5)。
// 奖励按当前区域倍率缩放后直接计入主角色。
func (d *Dispatcher) handleZoneKill(_ context.Context, tc *testctx.Context, in string) error {
	f := fields(in)
	ch, err := characterArg(tc, f)
	if err != nil {
		return err
	}
	kills := 1
	if m := zoneKillRe.FindStringSubmatch(in); m[1] != "" {
		if kills, err = countOf(m[1], "怪物数量"); err != nil {
			return err
		}
	}
	exp, ok, err := f.intField("基础经验", "经验")
	if err != nil {
		return err
	}
	if !ok {
		exp = defaultZoneKillExp
	}
	gold, ok, err := f.intField("基础金币", "金币")
	if err != nil {
		return err
	}
	if !ok {
		gold = defaultZoneKillGold
	}
	exp, gold = tc.Zone.Scale(exp*kills, gold*kills)
	ch.Exp += exp
	ch.Gold += gold
	tc.SetVariable("exp_gain", exp)
	tc.SetVariable("gold_gain", gold)
	tc.SetVariable("character_exp", ch.Exp)
	tc.SetVariable("character_gold", ch.Gold)
	return nil
}
