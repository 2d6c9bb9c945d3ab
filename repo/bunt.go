package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/model"
	"github.com/tidwall/buntdb"
	"go.uber.org/zap"
)

func characterKey(id string) string { return "character:" + id }

// BuntCharacterRepository stores characters in an embedded buntdb file.
type BuntCharacterRepository struct {
	db     *buntdb.DB
	logger *zap.Logger
}

// OpenBunt opens (or creates) the buntdb file at path. ":memory:" keeps
// everything in memory.
func OpenBunt(path string, logger *zap.Logger) (*BuntCharacterRepository, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuntCharacterRepository{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (r *BuntCharacterRepository) Close() error {
	return r.db.Close()
}

// Save writes ch under its id, replacing any earlier save.
func (r *BuntCharacterRepository) Save(_ context.Context, ch *entity.Character) error {
	rec, err := ToRecord(ch)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(characterKey(ch.ID), string(payload), nil)
		return err
	})
	if err != nil {
		r.logger.Error("save character failed", zap.String("id", ch.ID), zap.Error(err))
	}
	return err
}

// Load reads the character saved under id.
func (r *BuntCharacterRepository) Load(_ context.Context, id string) (*entity.Character, error) {
	var rec model.CharacterRecord
	err := r.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(characterKey(id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &rec)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, errs.NotFound("character", id)
	}
	if err != nil {
		return nil, err
	}
	return FromRecord(&rec)
}

var (
	_ CharacterRepository = (*GormCharacterRepository)(nil)
	_ CharacterRepository = (*BuntCharacterRepository)(nil)
)
