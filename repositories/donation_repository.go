package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reliefhub-api/models"
)

// DonationGuard inspects the locked post before a donation is applied and
// returns an error to abort the transaction.
type DonationGuard func(post *models.NeedPost) error

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// ApplyDonation inserts the donation and credits it to its post in one
// transaction. The post total is raised with a conditional single-statement
// update computed from the row's current value, so concurrent donations to the
// same post serialise instead of overwriting each other. With capAtGoal the
// total is clamped to quantity_needed; otherwise a donation larger than the
// remaining need leaves the row untouched and the guard decides the error.
//
// It returns the post as read before and after the update.
func (r *DonationRepository) ApplyDonation(ctx context.Context, donation *models.Donation, capAtGoal bool, guard DonationGuard) (*models.NeedPost, *models.NeedPost, error) {
	var before, after models.NeedPost

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&before, "id = ?", donation.PostID).Error; err != nil {
			return err
		}
		if err := guard(&before); err != nil {
			return err
		}

		stmt, args := creditStatement(donation, capAtGoal)
		res := tx.Exec(stmt, args...)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else changed the post between the read and the update.
			var current models.NeedPost
			if err := tx.First(&current, "id = ?", donation.PostID).Error; err != nil {
				return err
			}
			if err := guard(&current); err != nil {
				return err
			}
			return models.NewConflictError("post changed while donating, try again")
		}

		if err := tx.Omit(clause.Associations).Create(donation).Error; err != nil {
			return err
		}

		return tx.First(&after, "id = ?", donation.PostID).Error
	})
	if err != nil {
		var conflict *models.ConflictError
		var invalid *models.ValidationError
		if errors.As(err, &conflict) || errors.As(err, &invalid) {
			return nil, nil, err
		}
		return nil, nil, translate(err, "apply donation")
	}
	return &before, &after, nil
}

// creditStatement builds the conditional update for a donation. status is
// assigned first because MySQL evaluates SET left to right.
func creditStatement(donation *models.Donation, capAtGoal bool) (string, []interface{}) {
	stmt := `UPDATE need_posts SET
		status = CASE WHEN quantity_donated + ? >= quantity_needed THEN ? ELSE ? END,
		quantity_donated = CASE WHEN quantity_donated + ? >= quantity_needed THEN quantity_needed ELSE quantity_donated + ? END,
		updated_at = ?
		WHERE id = ? AND status = ? AND quantity_donated < quantity_needed`
	args := []interface{}{
		donation.Quantity, models.PostStatusFulfilled, models.PostStatusActive,
		donation.Quantity, donation.Quantity,
		time.Now().UTC(),
		donation.PostID, models.PostStatusActive,
	}
	if !capAtGoal {
		stmt += ` AND quantity_donated + ? <= quantity_needed`
		args = append(args, donation.Quantity)
	}
	return stmt, args
}

// GetByID loads a donation together with its post.
func (r *DonationRepository) GetByID(ctx context.Context, id string) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).Preload("Post").First(&donation, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get donation")
	}
	return &donation, nil
}

// ListByPost returns a post's donations, newest first.
func (r *DonationRepository) ListByPost(ctx context.Context, postID string, page, limit int) ([]models.Donation, int64, error) {
	_, limit, offset := normalizePage(page, limit, 20, 100)

	query := r.db.WithContext(ctx).Model(&models.Donation{}).Where("post_id = ?", postID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count donations")
	}

	var donations []models.Donation
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&donations).Error; err != nil {
		return nil, 0, translate(err, "list donations")
	}
	return donations, total, nil
}

// ListByDonor returns an account's donations with their posts, newest first.
func (r *DonationRepository) ListByDonor(ctx context.Context, donorID string, page, limit int) ([]models.Donation, int64, error) {
	_, limit, offset := normalizePage(page, limit, 20, 100)

	query := r.db.WithContext(ctx).Model(&models.Donation{}).Where("donor_id = ?", donorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count donor donations")
	}

	var donations []models.Donation
	if err := query.Preload("Post").Order("created_at DESC").Offset(offset).Limit(limit).Find(&donations).Error; err != nil {
		return nil, 0, translate(err, "list donor donations")
	}
	return donations, total, nil
}

// ConfirmReceipt sets the receipt flag once. A second confirmation is a conflict.
func (r *DonationRepository) ConfirmReceipt(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND receipt_confirmed = ?", id, false).
		Updates(map[string]interface{}{
			"receipt_confirmed":    true,
			"receipt_confirmed_at": at,
		})
	if res.Error != nil {
		return translate(res.Error, "confirm receipt")
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("receipt already confirmed")
	}
	return nil
}

// CountDistinctDistricts counts the districts of all posts a donor gave to.
func (r *DonationRepository) CountDistinctDistricts(ctx context.Context, donorID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("donations").
		Joins("JOIN need_posts ON need_posts.id = donations.post_id").
		Where("donations.donor_id = ? AND need_posts.district <> ''", donorID).
		Distinct("need_posts.district").
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "count donor districts")
	}
	return int(count), nil
}

// DonorTotals folds a donor's whole history into counters.
func (r *DonationRepository) DonorTotals(ctx context.Context, donorID string) (*models.DonorTotals, error) {
	var row struct {
		Items     int64
		Donations int64
	}
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Select("COALESCE(SUM(quantity), 0) AS items, COUNT(*) AS donations").
		Where("donor_id = ?", donorID).
		Scan(&row).Error
	if err != nil {
		return nil, translate(err, "sum donor history")
	}

	districts, err := r.CountDistinctDistricts(ctx, donorID)
	if err != nil {
		return nil, err
	}

	totals := &models.DonorTotals{
		ItemsDonated:    int(row.Items),
		Donations:       int(row.Donations),
		DistrictsActive: districts,
	}

	if row.Donations > 0 {
		var last models.Donation
		err := r.db.WithContext(ctx).
			Where("donor_id = ?", donorID).
			Order("created_at DESC").
			First(&last).Error
		if err != nil {
			return nil, translate(err, "latest donor donation")
		}
		totals.LastDonationAt = &last.CreatedAt
	}

	return totals, nil
}

// DonorIDs pages through distinct donor ids in ascending order.
func (r *DonationRepository) DonorIDs(ctx context.Context, after string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("donor_id IS NOT NULL AND donor_id > ?", after).
		Distinct("donor_id").
		Order("donor_id ASC").
		Limit(limit).
		Pluck("donor_id", &ids).Error
	if err != nil {
		return nil, translate(err, "list donor ids")
	}
	return ids, nil
}

// Totals returns the number of donations and the items pledged overall.
func (r *DonationRepository) Totals(ctx context.Context) (int64, int64, error) {
	var row struct {
		Donations int64
		Items     int64
	}
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Select("COUNT(*) AS donations, COALESCE(SUM(quantity), 0) AS items").
		Scan(&row).Error
	if err != nil {
		return 0, 0, translate(err, "donation totals")
	}
	return row.Donations, row.Items, nil
}
