package publication

import (
	"context"
	"errors"
	"testing"

	"realty-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStore struct {
	calls   int
	listing *domain.Listing
	err     error
}

func (f *fakeStore) UpdateListingStatus(ctx context.Context, id int64, status domain.PublishingStatus) (*domain.Listing, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	l := *f.listing
	l.PublishingStatus = status
	return &l, nil
}

func (f *fakeStore) FindListingByID(ctx context.Context, id int64) (*domain.Listing, error) {
	f.calls++
	return f.listing, f.err
}

func setupPublicationTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.ListingEvent{}))
	return &Service{Store: &GormStore{DB: db}}, db
}

func seedListing(t *testing.T, db *gorm.DB, id int64, status domain.PublishingStatus) {
	require.NoError(t, db.Create(&domain.Listing{ID: id, Title: "Harbour View", PublishingStatus: status}).Error)
}

func TestParseListingID(t *testing.T) {
	id, err := ParseListingID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"abc", "", "4.2", "-1", "0", "12abc"} {
		_, err := ParseListingID(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestSetPublishingStatus_PendingToPublished(t *testing.T) {
	svc, db := setupPublicationTest(t)
	seedListing(t, db, 42, domain.StatusPending)

	got, err := svc.SetPublishingStatus(context.Background(), "42", "PUBLISHED")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, domain.StatusPublished, got.PublishingStatus)
	assert.Equal(t, "/listings/42", got.PublicPath())

	var stored domain.Listing
	require.NoError(t, db.First(&stored, 42).Error)
	assert.Equal(t, domain.StatusPublished, stored.PublishingStatus)
}

func TestSetPublishingStatus_ReadBackMatchesTarget(t *testing.T) {
	svc, db := setupPublicationTest(t)
	seedListing(t, db, 1, domain.StatusPending)
	ctx := context.Background()

	for _, target := range []domain.PublishingStatus{domain.StatusPublished, domain.StatusPending, domain.StatusPublished} {
		_, err := svc.SetPublishingStatus(ctx, "1", string(target))
		require.NoError(t, err)
		got, err := svc.Store.FindListingByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, target, got.PublishingStatus)
	}
}

func TestSetPublishingStatus_NotFound(t *testing.T) {
	svc, _ := setupPublicationTest(t)

	got, err := svc.SetPublishingStatus(context.Background(), "999", "PUBLISHED")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistence)
}

func TestSetPublishingStatus_InvalidStatusLeavesListing(t *testing.T) {
	svc, db := setupPublicationTest(t)
	seedListing(t, db, 5, domain.StatusPending)

	_, err := svc.SetPublishingStatus(context.Background(), "5", "ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	var stored domain.Listing
	require.NoError(t, db.First(&stored, 5).Error)
	assert.Equal(t, domain.StatusPending, stored.PublishingStatus)
}

func TestSetPublishingStatus_Idempotent(t *testing.T) {
	svc, db := setupPublicationTest(t)
	seedListing(t, db, 8, domain.StatusPublished)
	var before domain.Listing
	require.NoError(t, db.First(&before, 8).Error)

	got, err := svc.SetPublishingStatus(context.Background(), "8", "PUBLISHED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, got.PublishingStatus)
	assert.True(t, before.UpdatedAt.Equal(got.UpdatedAt))

	var events int64
	require.NoError(t, db.Model(&domain.ListingEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestSetPublishingStatus_InvalidIdentifierSkipsStore(t *testing.T) {
	store := &fakeStore{listing: &domain.Listing{ID: 1}}
	svc := &Service{Store: store}

	_, err := svc.SetPublishingStatus(context.Background(), "abc", "PUBLISHED")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Zero(t, store.calls)

	_, err = svc.SetPublishingStatus(context.Background(), "1", "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Zero(t, store.calls)
}

func TestSetPublishingStatus_PersistenceError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	store := &fakeStore{err: cause}
	svc := &Service{Store: store}

	_, err := svc.SetPublishingStatus(context.Background(), "3", "PENDING")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.calls)
}

func TestSetPublishingStatusMany(t *testing.T) {
	svc, db := setupPublicationTest(t)
	seedListing(t, db, 1, domain.StatusPending)
	seedListing(t, db, 2, domain.StatusPublished)

	results := svc.SetPublishingStatusMany(context.Background(), []string{"1", "abc", "2", "77", "1"}, "PUBLISHED")
	require.Len(t, results, 5)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrInvalidIdentifier)
	assert.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, ErrNotFound)
	assert.NoError(t, results[4].Err)

	assert.Equal(t, []string{"/listings/1", "/listings/2"}, ChangedPaths(results))
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ActorFrom(ctx))
	assert.Nil(t, ActorFrom(WithActor(ctx, "")))
	actor := ActorFrom(WithActor(ctx, "user-1"))
	require.NotNil(t, actor)
	assert.Equal(t, "user-1", *actor)
}
