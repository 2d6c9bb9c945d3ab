package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCharacter() *entity.Character {
	ch := entity.NewCharacter("character", entity.ClassMage)
	ch.Strength = 14
	ch.Gold, ch.Exp, ch.Level = 120, 45, 2
	ch.Faction = entity.FactionHorde
	calc.DefaultConfig().Refresh(ch)
	ch.PhysicalAttack.Override(20)
	ch.PhysCritRate.Override(0.3)
	ch.HP = 40
	ch.Resource = 70
	eq := entity.NewEquipment("worn_sword", entity.SlotMainHand, "common", 1, entity.SourceExplicit)
	eq.Modifiers = []entity.Modifier{{Stat: entity.StatPhysicalAttack, Flat: 5}}
	eq.OwnerID = ch.ID
	ch.Equipped[eq.Slot] = eq
	ch.Learn(entity.SkillDef{ID: "fireball", Cooldown: 2}).Remaining = 1
	return ch
}

func repositories(t *testing.T) map[string]CharacterRepository {
	t.Helper()
	bunt, err := OpenBunt(":memory:", testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunt.Close() })
	return map[string]CharacterRepository{
		"gorm":   NewGorm(testutil.SetupTestDB(t), testutil.Logger(t)),
		"buntdb": bunt,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			orig := sampleCharacter()
			require.NoError(t, r.Save(ctx, orig))

			got, err := r.Load(ctx, orig.ID)
			require.NoError(t, err)
			assert.Equal(t, orig.Alias, got.Alias)
			assert.Equal(t, orig.Class, got.Class)
			assert.Equal(t, entity.FactionHorde, got.Faction)
			assert.Equal(t, 14, got.Strength)
			assert.Equal(t, 120, got.Gold)
			assert.Equal(t, 2, got.Level)
			assert.Equal(t, 40, got.HP)
			assert.Equal(t, 70, got.Resource)

			assert.True(t, got.PhysicalAttack.IsExplicit())
			assert.Equal(t, 20, got.PhysicalAttack.Value())
			assert.Equal(t, 0.3, got.PhysCritRate.Value())
			assert.False(t, got.MagicAttack.IsExplicit())

			require.Contains(t, got.Equipped, entity.SlotMainHand)
			assert.Equal(t, 5, got.Equipped[entity.SlotMainHand].Bonus(entity.StatPhysicalAttack))
			require.Contains(t, got.Skills, "fireball")
			assert.Equal(t, 1, got.Skills["fireball"].Remaining)

			// explicit attack survives a refresh; equipment still applies on top
			calc.DefaultConfig().Refresh(got)
			assert.Equal(t, 25, got.Effective(entity.StatPhysicalAttack))
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ch := sampleCharacter()
			require.NoError(t, r.Save(ctx, ch))
			ch.Gold = 999
			require.NoError(t, r.Save(ctx, ch))

			got, err := r.Load(ctx, ch.ID)
			require.NoError(t, err)
			assert.Equal(t, 999, got.Gold)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := r.Load(context.Background(), "nope")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrEntityNotFound))
		})
	}
}
