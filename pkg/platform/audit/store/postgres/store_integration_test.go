//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "storefront/pkg/domain"
	audit "storefront/pkg/platform/audit"
	"storefront/pkg/platform/audit/store/postgres"
	"storefront/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	db, err := postgres.Open(s.pg.DSN)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	s.store = postgres.New(db)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *AuditPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "audit_events"))
}

func (s *AuditPostgresSuite) TestAppendAndListRecent() {
	ctx := context.Background()
	userID := id.NewUserID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category: audit.CategoryCompliance, Timestamp: base, UserID: userID,
		Subject: "alice", Action: string(audit.EventUserRegistered), Mode: "STATELESS",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category: audit.CategorySecurity, Timestamp: base.Add(time.Second),
		Subject: "admin", Action: string(audit.EventAuthModeSwitched), Mode: "STATEFUL",
	}))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventAuthModeSwitched), events[0].Action)
	s.True(events[0].UserID.IsNil())
	s.Equal(userID, events[1].UserID)
	s.Equal(audit.CategoryCompliance, events[1].Category)
}
