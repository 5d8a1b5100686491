package repositories

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reliefhub-api/models"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new need post.
func (r *PostRepository) Create(ctx context.Context, post *models.NeedPost) error {
	return translate(r.db.WithContext(ctx).Omit("Images").Create(post).Error, "create post")
}

// GetByID loads a post with its images.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.NeedPost, error) {
	var post models.NeedPost
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get post")
	}
	return &post, nil
}

// List returns one page of posts matching the filter, newest first.
func (r *PostRepository) List(ctx context.Context, filter models.PostListFilter) (*models.PostPage, error) {
	page, limit, offset := normalizePage(filter.Page, filter.Limit, 20, 50)

	query := r.db.WithContext(ctx).Model(&models.NeedPost{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.District != "" {
		query = query.Where("district = ?", filter.District)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Near != nil && filter.RadiusKm > 0 {
		minLat, maxLat, minLng, maxLng := models.BoundingBox(*filter.Near, filter.RadiusKm)
		query = query.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", minLat, maxLat, minLng, maxLng)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translate(err, "count posts")
	}

	var posts []models.NeedPost
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, translate(err, "list posts")
	}

	pages := totalPages(total, limit)
	return &models.PostPage{
		Posts:      posts,
		Page:       page,
		Limit:      limit,
		Total:      total,
		HasMore:    page < pages,
		TotalPages: pages,
	}, nil
}

// Update applies plain column updates. When quantityNeeded is set, the
// donated total and status are re-derived in the same statement.
func (r *PostRepository) Update(ctx context.Context, id string, updates map[string]interface{}, quantityNeeded *int) (*models.NeedPost, error) {
	var updated models.NeedPost
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.NeedPost
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", id).Error; err != nil {
			return err
		}

		if len(updates) > 0 {
			if err := tx.Model(&post).Updates(updates).Error; err != nil {
				return err
			}
		}

		if quantityNeeded != nil {
			// status is assigned first: MySQL evaluates SET left to right.
			err := tx.Exec(`UPDATE need_posts SET
				status = CASE
					WHEN status IN (?, ?) THEN status
					WHEN quantity_donated >= ? THEN ?
					ELSE ? END,
				quantity_donated = CASE WHEN quantity_donated > ? THEN ? ELSE quantity_donated END,
				quantity_needed = ?,
				updated_at = ?
				WHERE id = ?`,
				models.PostStatusFlagged, models.PostStatusHidden,
				*quantityNeeded, models.PostStatusFulfilled,
				models.PostStatusActive,
				*quantityNeeded, *quantityNeeded,
				*quantityNeeded,
				time.Now().UTC(),
				id,
			).Error
			if err != nil {
				return err
			}
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "update post")
	}
	return &updated, nil
}

// Delete removes a post and everything it owns. The removed images are
// returned so their stored objects can be cleaned up.
func (r *PostRepository) Delete(ctx context.Context, id string) ([]models.PostImage, error) {
	var images []models.PostImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.NeedPost
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Donation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostFlag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return nil, translate(err, "delete post")
	}
	return images, nil
}

// AddImage attaches an uploaded image to a post.
func (r *PostRepository) AddImage(ctx context.Context, image *models.PostImage) error {
	return translate(r.db.WithContext(ctx).Create(image).Error, "add post image")
}

// CountImages returns how many images a post has.
func (r *PostRepository) CountImages(ctx context.Context, postID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostImage{}).Where("post_id = ?", postID).Count(&count).Error
	if err != nil {
		return 0, translate(err, "count post images")
	}
	return int(count), nil
}

// CountByStatus returns the number of posts per status.
func (r *PostRepository) CountByStatus(ctx context.Context) (map[models.PostStatus]int64, error) {
	var rows []struct {
		Status models.PostStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.NeedPost{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "count posts by status")
	}

	counts := map[models.PostStatus]int64{
		models.PostStatusActive:    0,
		models.PostStatusFulfilled: 0,
		models.PostStatusFlagged:   0,
		models.PostStatusHidden:    0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
