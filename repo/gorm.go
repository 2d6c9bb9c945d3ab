package repo

import (
	"context"
	"errors"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormCharacterRepository stores characters in a SQL database.
type GormCharacterRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGorm creates a repository on db. The tables must already be migrated.
func NewGorm(db *gorm.DB, logger *zap.Logger) *GormCharacterRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormCharacterRepository{db: db, logger: logger}
}

// Save inserts or updates ch by id.
func (r *GormCharacterRepository) Save(ctx context.Context, ch *entity.Character) error {
	rec, err := ToRecord(ch)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		r.logger.Error("save character failed", zap.String("id", ch.ID), zap.Error(err))
		return err
	}
	r.logger.Debug("character saved", zap.String("id", ch.ID), zap.String("alias", ch.Alias))
	return nil
}

// Load fetches the character with id.
func (r *GormCharacterRepository) Load(ctx context.Context, id string) (*entity.Character, error) {
	var rec model.CharacterRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("character", id)
	}
	if err != nil {
		return nil, err
	}
	return FromRecord(&rec)
}
