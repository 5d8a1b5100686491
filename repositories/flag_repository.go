package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reliefhub-api/models"
)

type FlagRepository struct {
	db *gorm.DB
}

func NewFlagRepository(db *gorm.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Report stores a community report and bumps the post's flag count. Once the
// count reaches threshold a public post moves to flagged.
func (r *FlagRepository) Report(ctx context.Context, flag *models.PostFlag, threshold int) (*models.FlagOutcome, error) {
	var before, after models.NeedPost

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&before, "id = ?", flag.PostID).Error; err != nil {
			return err
		}

		var existing int64
		err := tx.Model(&models.PostFlag{}).
			Where("post_id = ? AND reporter_fp = ?", flag.PostID, flag.ReporterFP).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return models.NewConflictError("you have already reported this post")
		}

		if err := tx.Omit(clause.Associations).Create(flag).Error; err != nil {
			return err
		}

		// status is assigned first: MySQL evaluates SET left to right.
		err = tx.Exec(`UPDATE need_posts SET
			status = CASE WHEN status IN (?, ?) AND flag_count + 1 >= ? THEN ? ELSE status END,
			flag_count = flag_count + 1,
			updated_at = ?
			WHERE id = ?`,
			models.PostStatusActive, models.PostStatusFulfilled, threshold, models.PostStatusFlagged,
			time.Now().UTC(),
			flag.PostID,
		).Error
		if err != nil {
			return err
		}

		return tx.First(&after, "id = ?", flag.PostID).Error
	})
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, translate(err, "report post")
	}

	return &models.FlagOutcome{
		Flag:      *flag,
		FlagCount: after.FlagCount,
		Status:    after.Status,
		Escalated: before.Status != models.PostStatusFlagged && after.Status == models.PostStatusFlagged,
	}, nil
}

// GetByID loads a report with its post.
func (r *FlagRepository) GetByID(ctx context.Context, id string) (*models.PostFlag, error) {
	var flag models.PostFlag
	if err := r.db.WithContext(ctx).Preload("Post").First(&flag, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get flag")
	}
	return &flag, nil
}

// List returns reports, optionally filtered by status, newest first.
func (r *FlagRepository) List(ctx context.Context, status models.FlagStatus, page, limit int) ([]models.PostFlag, int64, error) {
	_, limit, offset := normalizePage(page, limit, 20, 100)

	query := r.db.WithContext(ctx).Model(&models.PostFlag{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count flags")
	}

	var flags []models.PostFlag
	if err := query.Preload("Post").Order("created_at DESC").Offset(offset).Limit(limit).Find(&flags).Error; err != nil {
		return nil, 0, translate(err, "list flags")
	}
	return flags, total, nil
}

// CountPending returns the number of reports awaiting review.
func (r *FlagRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostFlag{}).Where("status = ?", models.FlagStatusPending).Count(&count).Error
	if err != nil {
		return 0, translate(err, "count pending flags")
	}
	return count, nil
}

// Review closes a pending report. Approving it moves the post to flagged
// unless an admin already hid it.
func (r *FlagRepository) Review(ctx context.Context, id string, status models.FlagStatus, reviewerID string) (*models.PostFlag, *models.NeedPost, error) {
	var flag models.PostFlag
	var post models.NeedPost

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&flag, "id = ?", id).Error; err != nil {
			return err
		}
		if flag.Status != models.FlagStatusPending {
			return models.NewConflictError("flag has already been reviewed")
		}

		now := time.Now().UTC()
		err := tx.Model(&flag).Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		}).Error
		if err != nil {
			return err
		}
		flag.Status = status
		flag.ReviewedBy = &reviewerID
		flag.ReviewedAt = &now

		if status == models.FlagStatusApproved {
			err := tx.Model(&models.NeedPost{}).
				Where("id = ? AND status <> ?", flag.PostID, models.PostStatusHidden).
				Update("status", models.PostStatusFlagged).Error
			if err != nil {
				return err
			}
		}

		return tx.First(&post, "id = ?", flag.PostID).Error
	})
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, nil, err
		}
		return nil, nil, translate(err, "review flag")
	}
	return &flag, &post, nil
}

// ResolvePost dismisses a post's pending reports, resets its flag count and,
// if it was flagged, re-derives its status from the quantities.
func (r *FlagRepository) ResolvePost(ctx context.Context, postID, reviewerID string) (*models.NeedPost, error) {
	var post models.NeedPost

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", postID).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		err := tx.Model(&models.PostFlag{}).
			Where("post_id = ? AND status = ?", postID, models.FlagStatusPending).
			Updates(map[string]interface{}{
				"status":      models.FlagStatusDismissed,
				"reviewed_by": reviewerID,
				"reviewed_at": now,
			}).Error
		if err != nil {
			return err
		}

		err = tx.Exec(`UPDATE need_posts SET
			status = CASE
				WHEN status <> ? THEN status
				WHEN quantity_donated >= quantity_needed THEN ?
				ELSE ? END,
			flag_count = 0,
			updated_at = ?
			WHERE id = ?`,
			models.PostStatusFlagged, models.PostStatusFulfilled, models.PostStatusActive,
			now,
			postID,
		).Error
		if err != nil {
			return err
		}

		return tx.First(&post, "id = ?", postID).Error
	})
	if err != nil {
		return nil, translate(err, "resolve post flags")
	}
	return &post, nil
}
