// Package entity holds the in-memory combat entities a scenario manipulates:
// characters, monsters, teams, equipment and per-skill state.
package entity

// Number is the value type an Attr can carry.
type Number interface {
	~int | ~float64
}

// Attr is an attribute that is either computed from other stats or set
// explicitly by a scenario. Recompute never clobbers an explicit value.
type Attr[T Number] struct {
	value    T
	explicit bool
}

// Computed returns an attribute holding a derived value.
func Computed[T Number](v T) Attr[T] { return Attr[T]{value: v} }

// Explicit returns an attribute pinned to v.
func Explicit[T Number](v T) Attr[T] { return Attr[T]{value: v, explicit: true} }

func (a Attr[T]) Value() T         { return a.value }
func (a Attr[T]) IsExplicit() bool { return a.explicit }

// Recompute stores v unless the attribute was set explicitly.
// Returns true when the stored value changed.
func (a *Attr[T]) Recompute(v T) bool {
	if a.explicit || a.value == v {
		return false
	}
	a.value = v
	return true
}

// Override pins the attribute to v.
func (a *Attr[T]) Override(v T) {
	a.value = v
	a.explicit = true
}

// Release drops the explicit flag so the next Recompute takes effect.
func (a *Attr[T]) Release() {
	a.explicit = false
}
