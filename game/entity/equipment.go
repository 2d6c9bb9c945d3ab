package entity

import "github.com/google/uuid"

// Equipment slots.
const (
	SlotMainHand  = "main_hand"
	SlotOffHand   = "off_hand"
	SlotArmor     = "armor"
	SlotAccessory = "accessory"
)

// Equipment sources.
const (
	SourceDrop     = "drop"
	SourceExplicit = "explicit"
)

// Equipment is a single item instance. OwnerID is empty while the item sits
// in the free pool; at most one character owns it at a time.
type Equipment struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	Name          string     `json:"name"`
	Slot          string     `json:"slot"`
	Quality       string     `json:"quality"`
	Level         int        `json:"level"`
	Source        string     `json:"source"`
	Modifiers     []Modifier `json:"modifiers,omitempty"`
	Affixes       []string   `json:"affixes,omitempty"`
	LevelRequired int        `json:"level_required,omitempty"`
	ClassRequired string     `json:"class_required,omitempty"`
	OwnerID       string     `json:"owner_id,omitempty"`
}

// NewEquipment creates an unowned item with a fresh id.
func NewEquipment(itemID, slot, quality string, level int, source string) *Equipment {
	return &Equipment{
		ID:      uuid.New().String(),
		ItemID:  itemID,
		Name:    itemID,
		Slot:    slot,
		Quality: quality,
		Level:   level,
		Source:  source,
	}
}

// Bonus returns the flat modifier this item grants to stat.
func (e *Equipment) Bonus(stat Stat) int {
	n := 0
	for _, m := range e.Modifiers {
		if m.Stat == stat {
			n += m.Flat
		}
	}
	return n
}

func (e *Equipment) IsFree() bool { return e.OwnerID == "" }
