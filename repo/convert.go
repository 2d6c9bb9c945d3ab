package repo

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/model"
	"gorm.io/datatypes"
)

// intAttrs and floatAttrs name the derived attributes whose explicit values
// survive a save/load round trip.
func intAttrs(ch *entity.Character) map[string]*entity.Attr[int] {
	return map[string]*entity.Attr[int]{
		"max_hp":           &ch.MaxHP,
		"physical_attack":  &ch.PhysicalAttack,
		"magic_attack":     &ch.MagicAttack,
		"physical_defense": &ch.PhysicalDefense,
		"magic_defense":    &ch.MagicDefense,
		"speed":            &ch.Speed,
	}
}

func floatAttrs(ch *entity.Character) map[string]*entity.Attr[float64] {
	return map[string]*entity.Attr[float64]{
		"phys_crit_rate":    &ch.PhysCritRate,
		"phys_crit_damage":  &ch.PhysCritDamage,
		"spell_crit_rate":   &ch.SpellCritRate,
		"spell_crit_damage": &ch.SpellCritDamage,
		"dodge_rate":        &ch.DodgeRate,
	}
}

// ToRecord converts ch to its persisted form. Battle-only state (buffs,
// shields, control effects) is not stored.
func ToRecord(ch *entity.Character) (*model.CharacterRecord, error) {
	overrides := make(map[string]float64)
	for name, a := range intAttrs(ch) {
		if a.IsExplicit() {
			overrides[name] = float64(a.Value())
		}
	}
	for name, a := range floatAttrs(ch) {
		if a.IsExplicit() {
			overrides[name] = a.Value()
		}
	}
	equipped := make([]*entity.Equipment, 0, len(ch.Equipped))
	for _, slot := range ch.EquippedSlots() {
		equipped = append(equipped, ch.Equipped[slot])
	}

	ov, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}
	eq, err := json.Marshal(equipped)
	if err != nil {
		return nil, err
	}
	sk, err := json.Marshal(ch.Skills)
	if err != nil {
		return nil, err
	}
	return &model.CharacterRecord{
		ID:           ch.ID,
		Alias:        ch.Alias,
		Name:         ch.Name,
		Class:        ch.Class,
		Faction:      ch.Faction,
		Level:        ch.Level,
		Exp:          ch.Exp,
		Gold:         ch.Gold,
		ResourceType: ch.ResourceType,
		HP:           ch.HP,
		BaseHP:       ch.BaseHP,
		Resource:     ch.Resource,
		MaxResource:  ch.MaxResource,
		Strength:     ch.Strength,
		Agility:      ch.Agility,
		Intellect:    ch.Intellect,
		Stamina:      ch.Stamina,
		Spirit:       ch.Spirit,
		Overrides:    datatypes.JSON(ov),
		Equipment:    datatypes.JSON(eq),
		Skills:       datatypes.JSON(sk),
	}, nil
}

// FromRecord rebuilds a character. Derived attributes that were not
// explicit come back as zero; callers refresh them through calc.
func FromRecord(rec *model.CharacterRecord) (*entity.Character, error) {
	ch := entity.NewCharacter(rec.Alias, rec.Class)
	ch.ID = rec.ID
	ch.Name = rec.Name
	ch.Faction = rec.Faction
	ch.Level = rec.Level
	ch.Exp = rec.Exp
	ch.Gold = rec.Gold
	if rec.ResourceType != "" {
		ch.ResourceType = rec.ResourceType
	}
	ch.HP = rec.HP
	ch.BaseHP = rec.BaseHP
	ch.Resource = rec.Resource
	ch.MaxResource = rec.MaxResource
	ch.Strength = rec.Strength
	ch.Agility = rec.Agility
	ch.Intellect = rec.Intellect
	ch.Stamina = rec.Stamina
	ch.Spirit = rec.Spirit

	if len(rec.Overrides) > 0 {
		var overrides map[string]float64
		if err := json.Unmarshal(rec.Overrides, &overrides); err != nil {
			return nil, fmt.Errorf("repo: overrides of %s: %w", rec.ID, err)
		}
		ints, floats := intAttrs(ch), floatAttrs(ch)
		for name, v := range overrides {
			if a, ok := ints[name]; ok {
				a.Override(int(v))
			} else if a, ok := floats[name]; ok {
				a.Override(v)
			}
		}
	}
	if len(rec.Equipment) > 0 {
		var equipped []*entity.Equipment
		if err := json.Unmarshal(rec.Equipment, &equipped); err != nil {
			return nil, fmt.Errorf("repo: equipment of %s: %w", rec.ID, err)
		}
		for _, eq := range equipped {
			ch.Equipped[eq.Slot] = eq
		}
	}
	if len(rec.Skills) > 0 && string(rec.Skills) != "null" {
		if err := json.Unmarshal(rec.Skills, &ch.Skills); err != nil {
			return nil, fmt.Errorf("repo: skills of %s: %w", rec.ID, err)
		}
	}
	return ch, nil
}
