package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("patrol-route_2"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("has a space"))
	assert.Error(t, ValidateName("../etc/passwd"))
}

func TestMemoryStoreSaveLoadList(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Load(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, s.Save(ctx, "patrol", "say \"hi\"\n"))
	require.NoError(t, s.Save(ctx, "alert", "say \"help\"\n"))

	source, err := s.Load(ctx, "patrol")
	require.NoError(t, err)
	assert.Equal(t, "say \"hi\"\n", source)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alert", "patrol"}, names)
}

func TestMemoryStoreRejectsInvalidName(t *testing.T) {
	s := NewMemory()
	err := s.Save(context.Background(), "bad name!", "say \"hi\"\n")
	assert.True(t, errors.IsNotValid(err))
}

func setupTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, DefaultRedisConfig())
	return s, mr
}

func TestRedisStoreSaveLoadList(t *testing.T) {
	s, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, s.Save(ctx, "patrol", "say \"hi\"\n"))
	require.NoError(t, s.Save(ctx, "alert", "say \"help\"\n"))

	source, err := s.Load(ctx, "patrol")
	require.NoError(t, err)
	assert.Equal(t, "say \"hi\"\n", source)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alert", "patrol"}, names)
}

func TestRedisStoreRejectsInvalidName(t *testing.T) {
	s, mr := setupTestRedisStore(t)
	defer mr.Close()

	err := s.Save(context.Background(), "bad name!", "say \"hi\"\n")
	assert.True(t, errors.IsNotValid(err))
}

func TestNewRedisStoreConnectionError(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: "localhost:0"})
	assert.Error(t, err)
}
