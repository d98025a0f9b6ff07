package authlockout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"storefront/internal/ratelimit/models"
	"storefront/pkg/requestcontext"
)

type lockoutStore interface {
	Get(ctx context.Context, key string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (*models.AuthLockout, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

// AuthLockoutStoreSuite runs the same contract against every implementation.
type AuthLockoutStoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) lockoutStore
	store    lockoutStore
	now      time.Time
}

func TestInMemoryAuthLockoutStore(t *testing.T) {
	suite.Run(t, &AuthLockoutStoreSuite{newStore: func(*testing.T) lockoutStore { return New() }})
}

func TestRedisAuthLockoutStore(t *testing.T) {
	suite.Run(t, &AuthLockoutStoreSuite{newStore: func(t *testing.T) lockoutStore {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedis(client)
	}})
}

func (s *AuthLockoutStoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *AuthLockoutStoreSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *AuthLockoutStoreSuite) TestMissingRecordIsNil() {
	record, err := s.store.Get(s.at(0), "auth:ghost:1.2.3.4")
	s.NoError(err)
	s.Nil(record)
}

func (s *AuthLockoutStoreSuite) TestRecordFailureCounts() {
	const key = "auth:alice:1.2.3.4"
	for i := 1; i <= 3; i++ {
		record, err := s.store.RecordFailure(s.at(time.Duration(i)*time.Second), key, 15*time.Minute)
		s.Require().NoError(err)
		s.Equal(i, record.FailureCount)
	}

	record, err := s.store.Get(s.at(5*time.Second), key)
	s.Require().NoError(err)
	s.Equal(3, record.FailureCount)
	s.True(record.LastFailureAt.Equal(s.now.Add(3 * time.Second)))
}

func (s *AuthLockoutStoreSuite) TestLockAndClear() {
	const key = "auth:alice:1.2.3.4"
	_, err := s.store.RecordFailure(s.at(0), key, 15*time.Minute)
	s.Require().NoError(err)

	until := time.Now().Add(10 * time.Minute).UTC()
	s.Require().NoError(s.store.Lock(s.at(0), key, until))

	record, err := s.store.Get(s.at(0), key)
	s.Require().NoError(err)
	s.Require().NotNil(record.LockedUntil)
	s.True(record.LockedUntil.Equal(until))

	s.Require().NoError(s.store.Clear(s.at(0), key))
	record, err = s.store.Get(s.at(0), key)
	s.NoError(err)
	s.Nil(record)
}
