package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reliefhub-api/models"
	"reliefhub-api/repositories"
)

func seedDonation(t *testing.T, db *gorm.DB, postID, donorID string, quantity int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Donation{
		ID:        uuid.New().String(),
		PostID:    postID,
		DonorID:   strPtr(donorID),
		DonorName: donorID,
		Quantity:  quantity,
	}).Error)
}

func TestDonorStats_RecomputeAll(t *testing.T) {
	db := newTestDB(t)
	service := NewDonorStatsService(repositories.NewDonorProfileRepository(db), repositories.NewDonationRepository(db))
	ctx := context.Background()

	colombo := seedPost(t, db, models.NeedPost{QuantityNeeded: 500, District: "Colombo"})
	galle := seedPost(t, db, models.NeedPost{QuantityNeeded: 500, District: "Galle"})
	kandy := seedPost(t, db, models.NeedPost{QuantityNeeded: 500, District: "Kandy"})

	seedDonation(t, db, colombo.ID, "donor-a", 40)
	seedDonation(t, db, galle.ID, "donor-a", 40)
	seedDonation(t, db, kandy.ID, "donor-a", 30)
	seedDonation(t, db, colombo.ID, "donor-b", 3)

	done, err := service.RecomputeAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, done)

	a, err := service.Profile(ctx, "donor-a")
	require.NoError(t, err)
	assert.Equal(t, 110, a.ItemsDonated)
	assert.Equal(t, 3, a.FamiliesHelped)
	assert.Equal(t, 3, a.DistrictsActive)
	assert.NotNil(t, a.LastDonationAt)
	assert.Equal(t, models.BadgeList{models.BadgeFirstDonation, models.BadgeTenItems, models.BadgeHundredItems, models.BadgeMultiDistrict}, a.Badges)

	b, err := service.Profile(ctx, "donor-b")
	require.NoError(t, err)
	assert.Equal(t, models.BadgeList{models.BadgeFirstDonation}, b.Badges)
}

func TestDonorStats_RecordDonationMatchesRecompute(t *testing.T) {
	db := newTestDB(t)
	service := NewDonorStatsService(repositories.NewDonorProfileRepository(db), repositories.NewDonationRepository(db))
	ctx := context.Background()

	post := seedPost(t, db, models.NeedPost{QuantityNeeded: 50, District: "Matara"})
	for _, quantity := range []int{4, 7} {
		seedDonation(t, db, post.ID, "donor-a", quantity)
		require.NoError(t, service.RecordDonation(ctx, "donor-a", quantity))
	}

	incremental, err := service.Profile(ctx, "donor-a")
	require.NoError(t, err)

	rebuilt, err := service.Recompute(ctx, "donor-a")
	require.NoError(t, err)

	assert.Equal(t, rebuilt.ItemsDonated, incremental.ItemsDonated)
	assert.Equal(t, rebuilt.FamiliesHelped, incremental.FamiliesHelped)
	assert.Equal(t, rebuilt.DistrictsActive, incremental.DistrictsActive)
	assert.Equal(t, rebuilt.Badges, incremental.Badges)
	assert.Equal(t, 11, rebuilt.ItemsDonated)
}

func TestDonorStats_ProfileAndLeaderboard(t *testing.T) {
	db := newTestDB(t)
	service := NewDonorStatsService(repositories.NewDonorProfileRepository(db), repositories.NewDonationRepository(db))
	ctx := context.Background()

	empty, err := service.Profile(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.ItemsDonated)
	assert.Empty(t, empty.Badges)

	for _, u := range []models.User{
		{ID: "donor-a", Name: "Amaya", Email: "a@example.com", Password: "x", Role: models.RoleUser},
		{ID: "donor-b", Name: "Nimal", Email: "b@example.com", Password: "x", Role: models.RoleUser},
	} {
		require.NoError(t, db.Create(&u).Error)
	}
	require.NoError(t, service.RecordDonation(ctx, "donor-a", 5))
	require.NoError(t, service.RecordDonation(ctx, "donor-b", 9))

	board, err := service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "Nimal", board[0].Name)
	assert.Equal(t, 9, board[0].ItemsDonated)
	assert.Equal(t, "Amaya", board[1].Name)
}
