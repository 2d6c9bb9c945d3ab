package skill

import (
	"context"
	"testing"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}

// ---- definitions ----

func TestDefineLookup(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	ctx := context.Background()

	def := entity.SkillDef{ID: "slam", Name: "Slam", Kind: entity.SkillDamage, Cost: 20, Cooldown: 3, DamageMultiplier: 1.5}
	require.NoError(t, svc.Define(ctx, def))

	got, err := svc.Lookup(ctx, "slam")
	require.NoError(t, err)
	assert.Equal(t, def, *got)
}

func TestLookup_Unknown(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	_, err := svc.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownSkill)
}

func TestDefine_EmptyID(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), nil)
	assert.Error(t, svc.Define(context.Background(), entity.SkillDef{}))
}

// ---- cooldowns ----

func TestRemaining_NotSet(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	n, err := svc.Remaining(context.Background(), "hero", "slam")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTickCooldowns(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.StartCooldown(ctx, "hero", "slam", 2))
	require.NoError(t, svc.StartCooldown(ctx, "hero", "heal", 1))

	require.NoError(t, svc.TickCooldowns(ctx, "hero"))
	n, _ := svc.Remaining(ctx, "hero", "slam")
	assert.Equal(t, 1, n)
	n, _ = svc.Remaining(ctx, "hero", "heal")
	assert.Equal(t, 0, n)

	require.NoError(t, svc.TickCooldowns(ctx, "hero"))
	require.NoError(t, svc.TickCooldowns(ctx, "hero"))
	n, _ = svc.Remaining(ctx, "hero", "slam")
	assert.Equal(t, 0, n, "cooldown never goes negative")
}

func TestCooldownsPerOwner(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.StartCooldown(ctx, "a", "slam", 3))
	n, _ := svc.Remaining(ctx, "b", "slam")
	assert.Equal(t, 0, n)

	require.NoError(t, svc.Reset(ctx, "a"))
	n, _ = svc.Remaining(ctx, "a", "slam")
	assert.Equal(t, 0, n)
}

func TestStartCooldown_ZeroClears(t *testing.T) {
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	ctx := context.Background()
	require.NoError(t, svc.StartCooldown(ctx, "a", "slam", 3))
	require.NoError(t, svc.StartCooldown(ctx, "a", "slam", 0))
	n, _ := svc.Remaining(ctx, "a", "slam")
	assert.Equal(t, 0, n)
}

func TestLearn(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.SetupTestCache(t), testLogger())
	require.NoError(t, svc.Define(ctx, entity.SkillDef{ID: "slam", Cooldown: 2}))
	require.NoError(t, svc.StartCooldown(ctx, "hero", "slam", 2))

	require.NoError(t, svc.Learn(ctx, "hero", "slam"))
	left, err := svc.Remaining(ctx, "hero", "slam")
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	assert.ErrorIs(t, svc.Learn(ctx, "hero", "missing"), ErrUnknownSkill)
}
