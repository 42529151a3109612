//go:build integration

package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"twinpass/internal/vault"
	"twinpass/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *vault.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = vault.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, "discovery.bpn")
	s.Require().ErrorIs(err, vault.ErrNotFound)

	s.Require().NoError(s.store.Set(ctx, "discovery.bpn", "https://bpn.example"))

	value, err := s.store.Get(ctx, "discovery.bpn")
	s.Require().NoError(err)
	s.Equal("https://bpn.example", value)

	ok, err := s.store.Exists(ctx, "discovery.bpn")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisStoreSuite) TestSetOverwrites() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "discovery.edc", "https://edc-old.example"))
	s.Require().NoError(s.store.Set(ctx, "discovery.edc", "https://edc.example"))

	value, err := s.store.Get(ctx, "discovery.edc")
	s.Require().NoError(err)
	s.Equal("https://edc.example", value)
}
