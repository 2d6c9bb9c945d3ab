// 队伍指令：创建队伍、槽位增删与解锁。
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"github.com/samber/lo"
)

var (
	teamMembersRe = regexp.MustCompile(`包含` + countRe + `个角色`)
	addToSlotRe   = regexp.MustCompile(`将角色(.*?)添加到槽位(\d+)`)
	removeSlotRe  = regexp.MustCompile(`从槽位(\d+)移除角色`)
	unlockSlotRe  = regexp.MustCompile(`解锁槽位(\d+)`)
	teamBonusRe   = regexp.MustCompile(`队伍(攻击|生命)力?\+(\d+(?:\.\d+)?)%`)
	teamTotalRe   = regexp.MustCompile(`^计算队伍总(攻击|生命)`)
)

func (d *Dispatcher) teamRules() []Rule {
	return []Rule{
		{
			Name:   "create_empty_team",
			Match:  func(in string) bool { return strings.Contains(in, "创建一个空队伍") },
			Handle: d.handleCreateEmptyTeam,
		},
		{
			Name:   "create_team_members",
			Match:  func(in string) bool { return strings.HasPrefix(in, "创建一个队伍:") },
			Handle: d.handleCreateTeamMembers,
		},
		{
			Name:   "create_team_slots",
			Match:  func(in string) bool { return strings.Contains(in, "创建一个队伍") },
			Handle: d.handleCreateTeamSlots,
		},
		{
			Name:   "add_to_slot",
			Match:  func(in string) bool { return addToSlotRe.MatchString(in) },
			Handle: d.handleAddToSlot,
		},
		{
			Name:   "remove_from_slot",
			Match:  func(in string) bool { return removeSlotRe.MatchString(in) },
			Handle: d.handleRemoveFromSlot,
		},
		{
			Name:   "unlock_slot",
			Match:  func(in string) bool { return unlockSlotRe.MatchString(in) },
			Handle: d.handleUnlockSlot,
		},
		{
			Name:   "team_bonus",
			Match:  func(in string) bool { return teamBonusRe.MatchString(in) },
			Handle: d.handleTeamBonus,
		},
		{
			Name:   "team_total",
			Match:  func(in string) bool { return teamTotalRe.MatchString(in) },
			Handle: d.handleTeamTotal,
		},
	}
}

// teamSizes 读取 槽位=N 与 解锁=M，缺省为默认容量全部解锁。
func teamSizes(f fieldSet) (capacity, unlocked int, err error) {
	capacity, ok, err := f.intField("槽位", "容量", "槽位数")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		capacity = entity.DefaultTeamSlots
	}
	unlocked, ok, err = f.intField("解锁", "已解锁", "解锁槽位")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		unlocked = capacity
	}
	return capacity, unlocked, nil
}

func (d *Dispatcher) handleCreateEmptyTeam(_ context.Context, tc *testctx.Context, in string) error {
	capacity, unlocked, err := teamSizes(fields(in))
	if err != nil {
		return err
	}
	tc.SetTeam(entity.NewTeam(testctx.DefaultTeam, capacity, unlocked))
	return nil
}

// handleCreateTeamMembers 处理 创建一个队伍:a,b。成员必须是已存在的角色。
func (d *Dispatcher) handleCreateTeamMembers(_ context.Context, tc *testctx.Context, in string) error {
	list, _ := afterColon(in)
	var members []string
	for _, part := range splitTop(list) {
		if strings.Contains(part, "=") {
			continue
		}
		members = append(members, part)
	}
	capacity, unlocked, err := teamSizes(fields(in))
	if err != nil {
		return err
	}
	capacity = max(capacity, len(members))
	unlocked = max(unlocked, len(members))

	t := entity.NewTeam(testctx.DefaultTeam, capacity, unlocked)
	for i, alias := range members {
		if _, err := tc.GetCharacter(alias); err != nil {
			return err
		}
		if err := t.Add(i+1, alias); err != nil {
			return err
		}
	}
	tc.SetTeam(t)
	return nil
}

// handleCreateTeamSlots 处理 创建一个队伍,槽位=5,解锁=3 与 创建一个队伍,包含N个角色。
// 后者会显式创建 character_1..N 并依次入队。
func (d *Dispatcher) handleCreateTeamSlots(_ context.Context, tc *testctx.Context, in string) error {
	capacity, unlocked, err := teamSizes(fields(in))
	if err != nil {
		return err
	}
	n, _, err := countAfter(teamMembersRe, in, "角色数")
	if err != nil {
		return err
	}
	if n > capacity {
		capacity = n
	}
	unlocked = max(unlocked, n)

	t := entity.NewTeam(testctx.DefaultTeam, capacity, unlocked)
	for i := 1; i <= n; i++ {
		ch := d.newCharacter(fmt.Sprintf("character_%d", i), classOf(in))
		tc.AddCharacter(ch)
		if err := t.Add(i, ch.Alias); err != nil {
			return err
		}
	}
	tc.SetTeam(t)
	return nil
}

func defaultTeam(tc *testctx.Context) (*entity.Team, error) {
	return tc.GetTeam(testctx.DefaultTeam)
}

// handleAddToSlot 处理 [尝试]将角色X添加到槽位N。带"尝试"时失败写入 operation_success。
func (d *Dispatcher) handleAddToSlot(_ context.Context, tc *testctx.Context, in string) error {
	m := addToSlotRe.FindStringSubmatch(in)
	n, err := countOf(m[2], "槽位")
	if err != nil {
		return err
	}
	err = func() error {
		t, err := defaultTeam(tc)
		if err != nil {
			return err
		}
		alias := m[1]
		if alias == "" {
			ch, err := tc.PrimaryCharacter()
			if err != nil {
				return err
			}
			alias = ch.Alias
		} else if _, err := tc.GetCharacter(alias); err != nil {
			return err
		}
		return t.Add(n, alias)
	}()
	return recordOutcome(tc, in, err)
}

func (d *Dispatcher) handleRemoveFromSlot(_ context.Context, tc *testctx.Context, in string) error {
	m := removeSlotRe.FindStringSubmatch(in)
	n, err := countOf(m[1], "槽位")
	if err != nil {
		return err
	}
	t, err := defaultTeam(tc)
	if err != nil {
		return err
	}
	alias, err := t.Remove(n)
	if err == nil {
		tc.SetVariable("removed_character", alias)
	}
	return recordOutcome(tc, in, err)
}

func (d *Dispatcher) handleUnlockSlot(_ context.Context, tc *testctx.Context, in string) error {
	m := unlockSlotRe.FindStringSubmatch(in)
	n, err := countOf(m[1], "槽位")
	if err != nil {
		return err
	}
	t, err := defaultTeam(tc)
	if err != nil {
		return err
	}
	return recordOutcome(tc, in, t.Unlock(n))
}

// recordOutcome 写入 operation_success。以"尝试"开头的指令吞掉错误，只记录 error_message。
func recordOutcome(tc *testctx.Context, in string, err error) error {
	tc.SetVariable("operation_success", err == nil)
	if err == nil {
		return nil
	}
	tc.SetVariable("error_message", err.Error())
	if strings.HasPrefix(in, "尝试") {
		return nil
	}
	return err
}

// handleTeamBonus 处理 有队伍攻击力+10%,队伍生命+20%，比例写入 team_attack_bonus / team_hp_bonus。
func (d *Dispatcher) handleTeamBonus(_ context.Context, tc *testctx.Context, in string) error {
	for _, m := range teamBonusRe.FindAllStringSubmatch(in, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return errs.Malformed("队伍"+m[1], m[2])
		}
		key := "team_attack_bonus"
		if m[1] == "生命" {
			key = "team_hp_bonus"
		}
		tc.SetVariable(key, v/100)
	}
	return nil
}

// handleTeamTotal 处理 计算队伍总攻击力 / 计算队伍总生命：队伍成员的物理攻击或最大 HP 之和，
// 再乘以 1+队伍加成后截断。
func (d *Dispatcher) handleTeamTotal(_ context.Context, tc *testctx.Context, in string) error {
	party := tc.Party()
	if teamTotalRe.FindStringSubmatch(in)[1] == "攻击" {
		sum := lo.SumBy(party, func(ch *entity.Character) int { return ch.Effective(entity.StatPhysicalAttack) })
		tc.SetVariable("team_total_attack", int(float64(sum)*(1+tc.Float("team_attack_bonus", 0))))
		return nil
	}
	sum := lo.SumBy(party, func(ch *entity.Character) int { return ch.MaxHPValue() })
	tc.SetVariable("team_total_hp", int(float64(sum)*(1+tc.Float("team_hp_bonus", 0))))
	return nil
}
