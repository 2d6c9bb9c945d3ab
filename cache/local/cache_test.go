package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "skill:def:slam", `{"id":"slam"}`, 0))
	v, err := c.Get(ctx, "skill:def:slam")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"slam"}`, v)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ttl_key", "val", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, err := c.Get(ctx, "ttl_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHash(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "owner:a:skill_cd", "slam", "3"))
	require.NoError(t, c.HSet(ctx, "owner:a:skill_cd", "heal", "0"))

	v, err := c.HGet(ctx, "owner:a:skill_cd", "slam")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	all, err := c.HGetAll(ctx, "owner:a:skill_cd")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"slam": "3", "heal": "0"}, all)

	require.NoError(t, c.HDel(ctx, "owner:a:skill_cd", "slam"))
	_, err = c.HGet(ctx, "owner:a:skill_cd", "slam")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelClearsHash(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.HSet(ctx, "h", "f", "v"))
	require.NoError(t, c.Del(ctx, "h"))
	all, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCloseTwice(t *testing.T) {
	c, err := NewCache(Config{})
	require.NoError(t, err)
	c.Close()
	c.Close()
}
