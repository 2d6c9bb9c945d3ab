// Package repo persists scenario characters. The harness calls it only from
// the explicit save and load instructions.
package repo

import (
	"context"

	"github.com/kasuganosora/battlerunner/game/entity"
)

// CharacterRepository stores characters by id.
type CharacterRepository interface {
	Save(ctx context.Context, ch *entity.Character) error
	// Load returns the character saved under id. A miss matches
	// errs.ErrEntityNotFound.
	Load(ctx context.Context, id string) (*entity.Character, error)
}
