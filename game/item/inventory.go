package item

import (
	"errors"

	"github.com/kasuganosora/battlerunner/game/entity"
)

const maxInventorySlots = 99

var (
	ErrInventoryFull = errors.New("inventory full")
	ErrItemNotFound  = errors.New("item not found in inventory")
)

// Inventory tracks every equipment instance of a scenario, owned or free.
// Items keep their insertion order so "the last dropped item" is stable.
type Inventory struct {
	items map[string]*entity.Equipment
	order []string
}

// NewInventory creates an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{items: make(map[string]*entity.Equipment)}
}

// Add registers eq. Re-adding a known id is a no-op.
func (inv *Inventory) Add(eq *entity.Equipment) error {
	if inv.items == nil {
		inv.items = make(map[string]*entity.Equipment)
	}
	if _, ok := inv.items[eq.ID]; ok {
		return nil
	}
	if len(inv.order) >= maxInventorySlots {
		return ErrInventoryFull
	}
	inv.items[eq.ID] = eq
	inv.order = append(inv.order, eq.ID)
	return nil
}

// Remove discards an item. Equipped items cannot be discarded.
func (inv *Inventory) Remove(id string) error {
	eq, ok := inv.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if !eq.IsFree() {
		return ErrAlreadyEquipped
	}
	delete(inv.items, id)
	for i, v := range inv.order {
		if v == id {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the item with id.
func (inv *Inventory) Get(id string) (*entity.Equipment, bool) {
	eq, ok := inv.items[id]
	return eq, ok
}

// List returns all items in insertion order.
func (inv *Inventory) List() []*entity.Equipment {
	out := make([]*entity.Equipment, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, inv.items[id])
	}
	return out
}

// Free returns the unowned items in insertion order.
func (inv *Inventory) Free() []*entity.Equipment {
	var out []*entity.Equipment
	for _, id := range inv.order {
		if eq := inv.items[id]; eq.IsFree() {
			out = append(out, eq)
		}
	}
	return out
}

// Last returns the most recently added item, or nil.
func (inv *Inventory) Last() *entity.Equipment {
	if len(inv.order) == 0 {
		return nil
	}
	return inv.items[inv.order[len(inv.order)-1]]
}

func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.order)
}
