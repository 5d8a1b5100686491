package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reliefhub-api/models"
)

type DonorProfileRepository struct {
	db *gorm.DB
}

func NewDonorProfileRepository(db *gorm.DB) *DonorProfileRepository {
	return &DonorProfileRepository{db: db}
}

// Get returns a donor's profile, or ErrNotFound before their first donation.
func (r *DonorProfileRepository) Get(ctx context.Context, userID string) (*models.DonorProfile, error) {
	var profile models.DonorProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, "get donor profile")
	}
	return &profile, nil
}

// Increment creates the profile on first use, then adds one donation of
// quantity items and stores the freshly counted districts.
func (r *DonorProfileRepository) Increment(ctx context.Context, userID string, quantity, districts int, at time.Time) (*models.DonorProfile, error) {
	var profile models.DonorProfile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.DonorProfile{
			UserID: userID,
			Badges: models.BadgeList{},
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&seed).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.DonorProfile{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"items_donated":    gorm.Expr("items_donated + ?", quantity),
				"families_helped":  gorm.Expr("families_helped + ?", 1),
				"districts_active": districts,
				"last_donation_at": at,
			}).Error
		if err != nil {
			return err
		}

		if err := tx.First(&profile, "user_id = ?", userID).Error; err != nil {
			return err
		}

		profile.Badges = models.DeriveBadges(profile.ItemsDonated, profile.FamiliesHelped, profile.DistrictsActive)
		return tx.Model(&profile).Update("badges", profile.Badges).Error
	})
	if err != nil {
		return nil, translate(err, "increment donor profile")
	}
	return &profile, nil
}

// Replace overwrites a donor's counters with values recomputed from history.
func (r *DonorProfileRepository) Replace(ctx context.Context, userID string, totals models.DonorTotals) (*models.DonorProfile, error) {
	profile := models.DonorProfile{
		UserID:          userID,
		ItemsDonated:    totals.ItemsDonated,
		FamiliesHelped:  totals.Donations,
		DistrictsActive: totals.DistrictsActive,
		LastDonationAt:  totals.LastDonationAt,
	}
	profile.Badges = models.DeriveBadges(profile.ItemsDonated, profile.FamiliesHelped, profile.DistrictsActive)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"items_donated", "families_helped", "districts_active", "badges", "last_donation_at", "updated_at",
		}),
	}).Create(&profile).Error
	if err != nil {
		return nil, translate(err, "replace donor profile")
	}
	return r.Get(ctx, userID)
}

// Leaderboard returns the donors with the most items donated.
func (r *DonorProfileRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var entries []models.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Table("donor_profiles").
		Select("donor_profiles.user_id, users.name, donor_profiles.items_donated, donor_profiles.families_helped, donor_profiles.districts_active").
		Joins("JOIN users ON users.id = donor_profiles.user_id").
		Order("donor_profiles.items_donated DESC, donor_profiles.families_helped DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, translate(err, "donor leaderboard")
	}
	return entries, nil
}
