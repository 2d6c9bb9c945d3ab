package entity

// Buff is a round-limited stat modifier on a combatant.
type Buff struct {
	ID        string
	Stat      Stat
	Flat      int
	Percent   float64
	Remaining int // rounds left
}

// BuffList manages the buffs of a single character or monster.
type BuffList struct {
	buffs []*Buff
}

// Add adds a buff or refreshes the one with the same ID.
func (bl *BuffList) Add(b Buff) *Buff {
	for _, cur := range bl.buffs {
		if cur.ID == b.ID {
			cur.Stat, cur.Flat, cur.Percent = b.Stat, b.Flat, b.Percent
			if b.Remaining > cur.Remaining {
				cur.Remaining = b.Remaining
			}
			return cur
		}
	}
	nb := b
	bl.buffs = append(bl.buffs, &nb)
	return &nb
}

// Remove removes a buff by ID. Returns true if it was present.
func (bl *BuffList) Remove(id string) bool {
	for i, b := range bl.buffs {
		if b.ID == id {
			bl.buffs = append(bl.buffs[:i], bl.buffs[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the buff with id, or nil.
func (bl *BuffList) Get(id string) *Buff {
	for _, b := range bl.buffs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// All returns a snapshot of all active buffs.
func (bl *BuffList) All() []*Buff {
	out := make([]*Buff, len(bl.buffs))
	copy(out, bl.buffs)
	return out
}

func (bl *BuffList) Len() int { return len(bl.buffs) }

// Tick decrements every buff by one round and drops the expired ones,
// which are returned.
func (bl *BuffList) Tick() []*Buff {
	var expired []*Buff
	remaining := bl.buffs[:0]
	for _, b := range bl.buffs {
		b.Remaining--
		if b.Remaining <= 0 {
			expired = append(expired, b)
			continue
		}
		remaining = append(remaining, b)
	}
	bl.buffs = remaining
	return expired
}

// Modifiers converts the active buffs into stat modifiers.
func (bl *BuffList) Modifiers() []Modifier {
	if len(bl.buffs) == 0 {
		return nil
	}
	mods := make([]Modifier, 0, len(bl.buffs))
	for _, b := range bl.buffs {
		mods = append(mods, Modifier{Stat: b.Stat, Flat: b.Flat, Percent: b.Percent})
	}
	return mods
}

// Shield absorbs damage until depleted or expired.
type Shield struct {
	Amount    int
	Remaining int
}

func (s *Shield) Active() bool { return s.Amount > 0 && s.Remaining > 0 }

// Absorb soaks up as much of dmg as the shield can and returns the rest.
func (s *Shield) Absorb(dmg int) int {
	if !s.Active() || dmg <= 0 {
		return dmg
	}
	if dmg <= s.Amount {
		s.Amount -= dmg
		return 0
	}
	rest := dmg - s.Amount
	s.Amount = 0
	return rest
}

// Tick counts one round off the shield. Returns true if it expired this round.
func (s *Shield) Tick() bool {
	if s.Remaining <= 0 {
		return false
	}
	s.Remaining--
	if s.Remaining == 0 {
		s.Amount = 0
		return true
	}
	return false
}

// Control effect names.
const (
	EffectStunned  = "stunned"
	EffectSilenced = "silenced"
	EffectFeared   = "feared"
)

// Effects tracks crowd-control durations in rounds.
type Effects map[string]int

// Has reports whether effect is active.
func (e Effects) Has(effect string) bool { return e[effect] > 0 }

// Tick decrements every effect and removes those that reached zero.
func (e Effects) Tick() {
	for k, v := range e {
		if v <= 1 {
			delete(e, k)
			continue
		}
		e[k] = v - 1
	}
}
