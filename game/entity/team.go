package entity

import (
	"errors"
	"fmt"
)

// DefaultTeamSlots is the capacity of a team created without an explicit size.
const DefaultTeamSlots = 5

var (
	ErrSlotOutOfRange = errors.New("team slot out of range")
	ErrSlotLocked     = errors.New("team slot locked")
	ErrSlotOccupied   = errors.New("team slot occupied")
	ErrAlreadyInTeam  = errors.New("character already in team")
	ErrSlotEmpty      = errors.New("team slot empty")
)

// TeamSlot holds at most one character alias.
type TeamSlot struct {
	Unlocked bool
	Member   string
}

// Team is a fixed-capacity ordered set of slots. Slots are 1-based in the API.
type Team struct {
	Alias string
	Slots []TeamSlot
}

// NewTeam creates a team with capacity slots, the first unlocked of them open.
func NewTeam(alias string, capacity, unlocked int) *Team {
	if capacity <= 0 {
		capacity = DefaultTeamSlots
	}
	if unlocked > capacity || unlocked < 0 {
		unlocked = capacity
	}
	t := &Team{Alias: alias, Slots: make([]TeamSlot, capacity)}
	for i := 0; i < unlocked; i++ {
		t.Slots[i].Unlocked = true
	}
	return t
}

func (t *Team) slot(n int) (*TeamSlot, error) {
	if n < 1 || n > len(t.Slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotOutOfRange, n)
	}
	return &t.Slots[n-1], nil
}

// Add places alias into slot n.
func (t *Team) Add(n int, alias string) error {
	if alias == "" {
		return errors.New("team: empty alias")
	}
	s, err := t.slot(n)
	if err != nil {
		return err
	}
	if !s.Unlocked {
		return fmt.Errorf("%w: %d", ErrSlotLocked, n)
	}
	if s.Member != "" {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, n)
	}
	if t.SlotOf(alias) > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyInTeam, alias)
	}
	s.Member = alias
	return nil
}

// Remove empties slot n and returns the alias that was there.
func (t *Team) Remove(n int) (string, error) {
	s, err := t.slot(n)
	if err != nil {
		return "", err
	}
	if s.Member == "" {
		return "", fmt.Errorf("%w: %d", ErrSlotEmpty, n)
	}
	alias := s.Member
	s.Member = ""
	return alias, nil
}

// Unlock opens slot n. Unlocking an open slot is a no-op.
func (t *Team) Unlock(n int) error {
	s, err := t.slot(n)
	if err != nil {
		return err
	}
	s.Unlocked = true
	return nil
}

// SlotOf returns the 1-based slot holding alias, or 0.
func (t *Team) SlotOf(alias string) int {
	for i, s := range t.Slots {
		if s.Member == alias {
			return i + 1
		}
	}
	return 0
}

// Members returns member aliases in slot order.
func (t *Team) Members() []string {
	var out []string
	for _, s := range t.Slots {
		if s.Member != "" {
			out = append(out, s.Member)
		}
	}
	return out
}

func (t *Team) Count() int { return len(t.Members()) }

func (t *Team) UnlockedCount() int {
	n := 0
	for _, s := range t.Slots {
		if s.Unlocked {
			n++
		}
	}
	return n
}
