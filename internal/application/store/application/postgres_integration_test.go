//go:build integration

package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leaseguard/internal/application/models"
	appstore "leaseguard/internal/application/store/application"
	id "leaseguard/pkg/domain"
	"leaseguard/pkg/platform/sentinel"
	"leaseguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *appstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = appstore.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "documents", "review_results", "applications")
	s.Require().NoError(err)
}

func newTestApplication(email string) *models.Application {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Application{
		ID:             id.ApplicationID(uuid.New()),
		ApplicantID:    id.UserID(uuid.New()),
		ApplicantName:  "Jordan Reyes",
		ApplicantEmail: email,
		ApplicantPhone: "+1-555-0100",
		Status:         models.StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	app := newTestApplication("jordan@example.com")

	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.GetByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
	s.Equal(app.ApplicantID, got.ApplicantID)
	s.Equal("jordan@example.com", got.ApplicantEmail)
	s.Equal(models.StatusSubmitted, got.Status)
	s.WithinDuration(app.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestCreate_DuplicateIDConflicts() {
	ctx := context.Background()
	app := newTestApplication("jordan@example.com")

	s.Require().NoError(s.store.Create(ctx, app))
	err := s.store.Create(ctx, app)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestCreate_UnlinkedApplicantStoresNull() {
	ctx := context.Background()
	app := newTestApplication("jordan@example.com")
	app.ApplicantID = id.UserID{}

	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.GetByID(ctx, app.ID)
	s.Require().NoError(err)
	s.True(got.ApplicantID.IsNil())
}

func (s *PostgresStoreSuite) TestGetByID_NotFound() {
	_, err := s.store.GetByID(context.Background(), id.ApplicationID(uuid.New()))
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestUpdateStatus() {
	ctx := context.Background()
	app := newTestApplication("jordan@example.com")
	s.Require().NoError(s.store.Create(ctx, app))

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.UpdateStatus(ctx, app.ID, models.StatusUnderReview, updatedAt))

	got, err := s.store.GetByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, got.Status)
	s.WithinDuration(updatedAt, got.UpdatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestUpdateStatus_UnknownApplication() {
	err := s.store.UpdateStatus(context.Background(), id.ApplicationID(uuid.New()), models.StatusApproved, time.Now())
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestList_PaginationAndFilter() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		app := newTestApplication("applicant" + uuid.NewString() + "@example.com")
		app.CreatedAt = app.CreatedAt.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			app.Status = models.StatusFlagged
		}
		s.Require().NoError(s.store.Create(ctx, app))
	}

	all, err := s.store.List(ctx, appstore.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 5)
	// Newest first
	s.True(all[0].CreatedAt.After(all[4].CreatedAt))

	flagged := models.StatusFlagged
	filtered, err := s.store.List(ctx, appstore.ListFilter{Status: &flagged})
	s.Require().NoError(err)
	s.Len(filtered, 3)

	page, err := s.store.List(ctx, appstore.ListFilter{Limit: 2, Offset: 4})
	s.Require().NoError(err)
	s.Len(page, 1)
}
