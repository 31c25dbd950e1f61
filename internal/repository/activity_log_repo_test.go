package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

func TestActivityLogRepositoryFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	voterID := uint(5)
	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "superadmin", Action: "voter.approve", EntityType: "voter", EntityID: &voterID, Metadata: datatypes.JSONMap{"expiration_date": "2030-01-01"}, CreatedAt: time.Now().Add(-time.Hour)},
		{ActorID: 1, ActorRole: "superadmin", Action: "election.start", EntityType: "election", CreatedAt: time.Now()},
		{ActorID: 2, ActorRole: "moderator", Action: "results.export", EntityType: "election", CreatedAt: time.Now()},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	actor := uint(1)
	items, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actor, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "election.start", items[0].Action)

	items, total, err = repo.List(ctx, ActivityLogFilter{EntityType: "voter", EntityID: &voterID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "2030-01-01", items[0].Metadata["expiration_date"])

	since := time.Now().Add(-time.Minute)
	_, total, err = repo.List(ctx, ActivityLogFilter{Since: &since})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestAnnouncementRepositoryActiveFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnnouncementRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := now.Add(-time.Hour)
	items := []models.Announcement{
		{Slug: "schedule", Title: "Voting schedule", Body: "Opens Monday", StartsAt: now.Add(-2 * time.Hour)},
		{Slug: "old", Title: "Filing of candidacy", Body: "Closed", StartsAt: now.Add(-48 * time.Hour), EndsAt: &expired},
		{Slug: "future", Title: "Results night", Body: "Soon", StartsAt: now.Add(24 * time.Hour)},
		{Slug: "rules", Title: "Rules", Body: "Pinned", StartsAt: now.Add(24 * time.Hour), IsPinned: true},
	}
	for i := range items {
		require.NoError(t, repo.Create(ctx, &items[i]))
	}

	active, total, err := repo.List(ctx, AnnouncementFilter{ActiveOnly: true, Now: now, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "rules", active[0].Slug)
	require.Equal(t, "schedule", active[1].Slug)

	_, total, err = repo.List(ctx, AnnouncementFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
}

func TestUploadRepositoryListByOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewUploadRepository(db)
	ctx := context.Background()

	records := []models.UploadRecord{
		{OwnerType: models.UploadOwnerVoter, OwnerID: 1, FileName: "id.pdf", URL: "https://cdn.example.com/id.pdf", PublicID: "evote/id", MimeType: "application/pdf", SizeBytes: 2048, Checksum: "abc123"},
		{OwnerType: models.UploadOwnerCandidate, OwnerID: 1, FileName: "photo.png", URL: "https://cdn.example.com/photo.png", MimeType: "image/png", SizeBytes: 512},
	}
	for i := range records {
		require.NoError(t, repo.Create(ctx, &records[i]))
		require.NotZero(t, records[i].ID)
	}

	owned, err := repo.ListByOwner(ctx, models.UploadOwnerVoter, 1)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, "id.pdf", owned[0].FileName)

	require.NoError(t, repo.Delete(ctx, owned[0].ID))
	owned, err = repo.ListByOwner(ctx, models.UploadOwnerVoter, 1)
	require.NoError(t, err)
	require.Empty(t, owned)
}
