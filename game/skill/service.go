// Package skill is the skill subsystem: skill definitions and the per-owner
// cooldown table, both kept in the cache so a shared Redis can serve them.
package skill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kasuganosora/battlerunner/cache"
	"github.com/kasuganosora/battlerunner/game/entity"
	"go.uber.org/zap"
)

// ErrUnknownSkill is returned by Lookup for an undefined skill id.
var ErrUnknownSkill = errors.New("unknown skill")

// Service stores skill definitions and round-based cooldowns.
type Service struct {
	cache  cache.Cache
	logger *zap.Logger
}

// NewService creates a Service over c.
func NewService(c cache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: c, logger: logger}
}

func defKey(skillID string) string { return "skill:def:" + skillID }

// cdKey returns the cache key for an owner's cooldown hash.
func cdKey(ownerID string) string { return "owner:" + ownerID + ":skill_cd" }

// Define registers or replaces a skill definition.
func (svc *Service) Define(ctx context.Context, def entity.SkillDef) error {
	if def.ID == "" {
		return errors.New("skill: empty id")
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return svc.cache.Set(ctx, defKey(def.ID), string(raw), 0)
}

// Lookup returns the definition of skillID.
func (svc *Service) Lookup(ctx context.Context, skillID string) (*entity.SkillDef, error) {
	raw, err := svc.cache.Get(ctx, defKey(skillID))
	if cache.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, skillID)
	}
	if err != nil {
		return nil, err
	}
	var def entity.SkillDef
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("skill %s: %w", skillID, err)
	}
	return &def, nil
}

// Learn checks that skillID is defined and gives ownerID a clean cooldown
// entry for it.
func (svc *Service) Learn(ctx context.Context, ownerID, skillID string) error {
	if _, err := svc.Lookup(ctx, skillID); err != nil {
		return err
	}
	return svc.cache.HDel(ctx, cdKey(ownerID), skillID)
}

// StartCooldown puts skillID on cooldown for the given number of rounds.
func (svc *Service) StartCooldown(ctx context.Context, ownerID, skillID string, rounds int) error {
	if rounds <= 0 {
		return svc.cache.HDel(ctx, cdKey(ownerID), skillID)
	}
	return svc.cache.HSet(ctx, cdKey(ownerID), skillID, strconv.Itoa(rounds))
}

// Remaining returns the rounds left before skillID is usable again.
func (svc *Service) Remaining(ctx context.Context, ownerID, skillID string) (int, error) {
	val, err := svc.cache.HGet(ctx, cdKey(ownerID), skillID)
	if cache.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		svc.logger.Warn("corrupt cooldown entry",
			zap.String("owner", ownerID), zap.String("skill", skillID), zap.String("value", val))
		return 0, nil
	}
	return n, nil
}

// TickCooldowns counts one round off every cooldown of ownerID, dropping
// entries that reach zero.
func (svc *Service) TickCooldowns(ctx context.Context, ownerID string) error {
	key := cdKey(ownerID)
	all, err := svc.cache.HGetAll(ctx, key)
	if err != nil {
		return err
	}
	for skillID, val := range all {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 1 {
			if err := svc.cache.HDel(ctx, key, skillID); err != nil {
				return err
			}
			continue
		}
		if err := svc.cache.HSet(ctx, key, skillID, strconv.Itoa(n-1)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears every cooldown of ownerID.
func (svc *Service) Reset(ctx context.Context, ownerID string) error {
	return svc.cache.Del(ctx, cdKey(ownerID))
}
