package item

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/battlerunner/game/entity"
	"go.uber.org/zap"
)

var (
	ErrAlreadyEquipped = errors.New("item already equipped")
	ErrNotEquipped     = errors.New("item not equipped")
	ErrInvalidSlot     = errors.New("invalid equip slot")
	ErrLevelTooLow     = errors.New("等级不足")
	ErrClassMismatch   = errors.New("职业不匹配")
)

// EquipService moves equipment between characters and the free pool.
// Every operation validates first and mutates only once all checks pass.
type EquipService struct {
	logger *zap.Logger
}

// NewEquipService creates a new EquipService.
func NewEquipService(logger *zap.Logger) *EquipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipService{logger: logger}
}

func validSlot(slot string) bool {
	switch slot {
	case entity.SlotMainHand, entity.SlotOffHand, entity.SlotArmor, entity.SlotAccessory:
		return true
	}
	return false
}

// CheckRequirements reports whether ch may wear eq.
func CheckRequirements(ch *entity.Character, eq *entity.Equipment) error {
	if eq.LevelRequired > 0 && ch.Level < eq.LevelRequired {
		return fmt.Errorf("%w：角色等级 %d 低于需求等级 %d", ErrLevelTooLow, ch.Level, eq.LevelRequired)
	}
	if eq.ClassRequired != "" && ch.Class != eq.ClassRequired {
		return fmt.Errorf("%w：角色职业 %s 不符合需求职业 %s", ErrClassMismatch, ch.Class, eq.ClassRequired)
	}
	return nil
}

// Equip puts eq on ch. An item already in that slot goes back to the free
// pool and is returned.
func (svc *EquipService) Equip(ch *entity.Character, eq *entity.Equipment) (*entity.Equipment, error) {
	if !validSlot(eq.Slot) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, eq.Slot)
	}
	if !eq.IsFree() {
		if eq.OwnerID == ch.ID {
			return nil, nil
		}
		return nil, ErrAlreadyEquipped
	}
	if err := CheckRequirements(ch, eq); err != nil {
		return nil, err
	}

	if ch.Equipped == nil {
		ch.Equipped = make(map[string]*entity.Equipment)
	}
	old := ch.Equipped[eq.Slot]
	if old != nil {
		old.OwnerID = ""
	}
	eq.OwnerID = ch.ID
	ch.Equipped[eq.Slot] = eq

	svc.logger.Debug("equip",
		zap.String("character", ch.Alias),
		zap.String("item", eq.ID),
		zap.String("slot", eq.Slot))
	return old, nil
}

// Unequip removes the item in slot and returns it to the free pool.
func (svc *EquipService) Unequip(ch *entity.Character, slot string) (*entity.Equipment, error) {
	eq, ok := ch.Equipped[slot]
	if !ok || eq == nil {
		return nil, fmt.Errorf("%w: slot %s", ErrNotEquipped, slot)
	}
	delete(ch.Equipped, slot)
	eq.OwnerID = ""
	svc.logger.Debug("unequip",
		zap.String("character", ch.Alias),
		zap.String("item", eq.ID),
		zap.String("slot", slot))
	return eq, nil
}

// EquipAll equips every free item in inv that ch can wear, later items
// replacing earlier ones in the same slot. Failures are skipped.
func (svc *EquipService) EquipAll(ch *entity.Character, inv *Inventory) int {
	n := 0
	for _, eq := range inv.Free() {
		if _, err := svc.Equip(ch, eq); err == nil {
			n++
		}
	}
	return n
}
