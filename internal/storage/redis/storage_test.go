package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/aiventure/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestLoadMissing() {
	_, err := s.storage.Load(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestSaveAndLoad() {
	s.Require().NoError(s.storage.Save(s.ctx, []byte(`{"token":"T","verified":true}`)))

	data, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.JSONEq(`{"token":"T","verified":true}`, string(data))
}

func (s *StorageSuite) TestUsesNamespacedKey() {
	s.Require().NoError(s.storage.Save(s.ctx, []byte("x")))

	s.True(s.mini.Exists("aiventure:credential:aiventureUser"))
}

func (s *StorageSuite) TestSaveOverwrites() {
	_ = s.storage.Save(s.ctx, []byte("first"))
	_ = s.storage.Save(s.ctx, []byte("second"))

	data, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("second", string(data))
}

func (s *StorageSuite) TestDeleteIsIdempotent() {
	_ = s.storage.Save(s.ctx, []byte("x"))

	s.Require().NoError(s.storage.Delete(s.ctx))
	s.Require().NoError(s.storage.Delete(s.ctx))

	_, err := s.storage.Load(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestRecordsAreIsolated() {
	cfg := DefaultConfig()
	cfg.Record = "second-profile"
	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = other.Close() }()

	_ = s.storage.Save(s.ctx, []byte("mine"))

	_, err := other.Load(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestCredentialTTL() {
	cfg := DefaultConfig()
	cfg.CredentialTTL = time.Hour
	ttlStore := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = ttlStore.Close() }()

	s.Require().NoError(ttlStore.Save(s.ctx, []byte("x")))
	s.Equal(time.Hour, s.mini.TTL(credentialKey(cfg.Record)))

	s.mini.FastForward(2 * time.Hour)

	_, err := ttlStore.Load(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not a url"
	_, err := New(cfg)
	s.Error(err)
}

func (s *StorageSuite) TestNewPingsServer() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	st, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(st.Close())
}
