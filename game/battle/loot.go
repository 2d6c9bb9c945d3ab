package battle

import (
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/item"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

// lootSlots maps a monster loot id to the slot of the item it drops.
var lootSlots = map[string]string{
	"weapon":    entity.SlotMainHand,
	"armor":     entity.SlotArmor,
	"accessory": entity.SlotAccessory,
	"shield":    entity.SlotOffHand,
}

// CalculateDrops rolls the equipment a defeated monster leaves behind: one
// item per loot id, at the monster's level. A monster without loot ids
// drops a single weapon.
func CalculateDrops(m *entity.Monster, gen *item.Generator, quality string) ([]*entity.Equipment, error) {
	ids := m.LootIDs
	if len(ids) == 0 {
		ids = []string{"weapon"}
	}
	var out []*entity.Equipment
	for _, id := range ids {
		slot, ok := lootSlots[id]
		if !ok {
			slot = entity.SlotMainHand
		}
		eq, err := gen.Generate(slot, quality, m.Level, entity.SourceDrop)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, nil
}

// CalculateExp computes the exp each player in a group receives.
//   - partySize: number of party members alive
//   - baseExp: total exp of the defeated monsters
//
// Formula: bonus = 1.0 + (size-1)*0.1, capped at 1.4; each = baseExp * bonus / size
func CalculateExp(baseExp, partySize int) int {
	if partySize <= 0 {
		partySize = 1
	}
	bonus := 1.0 + float64(partySize-1)*0.1
	if bonus > 1.4 {
		bonus = 1.4
	}
	each := float64(baseExp) * bonus / float64(partySize)
	if each < 1 {
		each = 1
	}
	return int(each)
}

// CalculateGold splits gold evenly; every survivor gets at least 1.
func CalculateGold(baseGold, partySize int) int {
	if partySize <= 0 {
		partySize = 1
	}
	return max(1, baseGold/partySize)
}

// ExpNeeded returns the total exp needed to reach the next level.
func ExpNeeded(level int) int {
	if level <= 0 {
		return 30
	}
	return 30*level + 20*(level-1)*level/2
}

// grantRewards pays every living party member for the dead monsters and
// applies level-ups. Totals are scaled by the current zone before the split.
// It returns the per-character exp and gold.
func (e *Engine) grantRewards(tc *testctx.Context) (exp, gold int, ups []LevelUpEntry) {
	totalExp, totalGold := 0, 0
	for _, m := range tc.MonsterList() {
		if m.IsAlive() {
			continue
		}
		x, g := m.Rewards()
		totalExp += x
		totalGold += g
	}
	totalExp, totalGold = tc.Zone.Scale(totalExp, totalGold)
	survivors := aliveParty(tc)
	if len(survivors) == 0 || totalExp+totalGold == 0 {
		return 0, 0, nil
	}
	exp = CalculateExp(totalExp, len(survivors))
	gold = CalculateGold(totalGold, len(survivors))
	for _, ch := range survivors {
		ch.Exp += exp
		ch.Gold += gold
		for ch.Exp >= ExpNeeded(ch.Level) {
			ch.Level++
			ups = append(ups, LevelUpEntry{Alias: ch.Alias, NewLevel: ch.Level})
		}
	}
	return exp, gold, ups
}
