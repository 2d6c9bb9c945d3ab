package item

import (
	"fmt"
	"math/rand/v2"

	"github.com/kasuganosora/battlerunner/game/entity"
)

// Qualities, lowest first.
const (
	QualityCommon    = "common"
	QualityUncommon  = "uncommon"
	QualityRare      = "rare"
	QualityEpic      = "epic"
	QualityLegendary = "legendary"
)

// Template is the fixed part of an item: which slot it fills and its
// baseline modifiers at level 1.
type Template struct {
	ItemID string
	Name   string
	Slot   string
	Base   []entity.Modifier
}

// Templates per slot.
var Templates = map[string]Template{
	entity.SlotMainHand: {ItemID: "worn_sword", Name: "破旧的剑", Slot: entity.SlotMainHand,
		Base: []entity.Modifier{{Stat: entity.StatPhysicalAttack, Flat: 5}}},
	entity.SlotArmor: {ItemID: "cloth_robe", Name: "布袍", Slot: entity.SlotArmor,
		Base: []entity.Modifier{{Stat: entity.StatPhysicalDefense, Flat: 3}}},
	entity.SlotAccessory: {ItemID: "ring", Name: "戒指", Slot: entity.SlotAccessory,
		Base: []entity.Modifier{{Stat: entity.StatSpirit, Flat: 1}}},
	entity.SlotOffHand: {ItemID: "wooden_shield", Name: "木盾", Slot: entity.SlotOffHand,
		Base: []entity.Modifier{{Stat: entity.StatPhysicalDefense, Flat: 4}}},
}

type affix struct {
	id   string
	stat entity.Stat
	flat int
}

var (
	prefixes = []affix{
		{"sturdy", entity.StatStamina, 2},
		{"mighty", entity.StatStrength, 2},
		{"swift", entity.StatAgility, 2},
		{"wise", entity.StatIntellect, 2},
		{"serene", entity.StatSpirit, 2},
	}
	suffixes = []affix{
		{"of_the_bear", entity.StatStamina, 3},
		{"of_the_tiger", entity.StatStrength, 3},
		{"of_the_falcon", entity.StatAgility, 3},
		{"of_the_owl", entity.StatIntellect, 3},
		{"of_the_whale", entity.StatSpirit, 3},
	}
)

// qualityMultiplier scales base modifiers; affixSlots is how many of
// prefix/suffix an item of that quality rolls.
func qualityTier(quality string) (mult float64, affixSlots int) {
	switch quality {
	case QualityCommon:
		return 1.0, 0
	case QualityUncommon:
		return 1.2, 1
	case QualityEpic:
		return 1.8, 2
	case QualityLegendary:
		return 2.2, 2
	default:
		return 1.5, 2
	}
}

// Generator builds equipment instances from templates.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator drawing affixes from rng.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Generator{rng: rng}
}

// Generate rolls a new unowned item for slot.
func (g *Generator) Generate(slot, quality string, level int, source string) (*entity.Equipment, error) {
	tpl, ok := Templates[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	if level < 1 {
		level = 1
	}
	if quality == "" {
		quality = QualityRare
	}
	mult, slots := qualityTier(quality)

	eq := entity.NewEquipment(tpl.ItemID, slot, quality, level, source)
	eq.Name = tpl.Name
	for _, m := range tpl.Base {
		m.Flat = int(float64(m.Flat+level-1) * mult)
		eq.Modifiers = append(eq.Modifiers, m)
	}

	// Rare rolls each affix with even odds; better qualities always get both.
	for i, table := range [][]affix{prefixes, suffixes} {
		if i >= slots {
			break
		}
		if quality == QualityRare && g.rng.IntN(2) == 0 {
			continue
		}
		a := table[g.rng.IntN(len(table))]
		eq.Affixes = append(eq.Affixes, a.id)
		eq.Modifiers = append(eq.Modifiers, entity.Modifier{Stat: a.stat, Flat: a.flat + level/5})
	}
	return eq, nil
}

// AffixKey identifies an item's affix combination, "none" marking an
// empty position.
func AffixKey(eq *entity.Equipment) string {
	prefix, suffix := "none", "none"
	for _, id := range eq.Affixes {
		for _, p := range prefixes {
			if p.id == id {
				prefix = id
			}
		}
		for _, s := range suffixes {
			if s.id == id {
				suffix = id
			}
		}
	}
	return prefix + "_" + suffix
}
