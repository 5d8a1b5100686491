package models

import (
	"time"
)

type Category string

const (
	CategoryFood       Category = "food"
	CategoryDryRations Category = "dry_rations"
	CategoryBabyItems  Category = "baby_items"
	CategoryMedical    Category = "medical"
	CategoryClothes    Category = "clothes"
	CategoryOther      Category = "other"
)

var Categories = []Category{
	CategoryFood,
	CategoryDryRations,
	CategoryBabyItems,
	CategoryMedical,
	CategoryClothes,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type PostStatus string

const (
	PostStatusActive    PostStatus = "active"
	PostStatusFulfilled PostStatus = "fulfilled"
	PostStatusFlagged   PostStatus = "flagged"
	PostStatusHidden    PostStatus = "hidden"
)

func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusActive, PostStatusFulfilled, PostStatusFlagged, PostStatusHidden:
		return true
	}
	return false
}

// IsModerated reports whether the status was set by moderation rather than by quantities.
func (s PostStatus) IsModerated() bool {
	return s == PostStatusFlagged || s == PostStatusHidden
}

// IsPublic reports whether posts in this status are listed to everyone.
func (s PostStatus) IsPublic() bool {
	return s == PostStatusActive || s == PostStatusFulfilled
}

// NeedPost is a request for material aid. It is the aggregate root for
// its images, donations and flags.
type NeedPost struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	UserID          *string    `json:"user_id" gorm:"size:36;index"`
	RequesterName   string     `json:"requester_name" gorm:"not null;size:100"`
	ContactPhone    string     `json:"contact_phone,omitempty" gorm:"size:30"`
	Category        Category   `json:"category" gorm:"not null;size:30;index"`
	Title           string     `json:"title" gorm:"not null;size:150"`
	Description     string     `json:"description" gorm:"type:text"`
	Unit            string     `json:"unit" gorm:"size:30"`
	QuantityNeeded  int        `json:"quantity_needed" gorm:"not null"`
	QuantityDonated int        `json:"quantity_donated" gorm:"not null;default:0"`
	Status          PostStatus `json:"status" gorm:"not null;size:20;default:'active';index"`
	District        string     `json:"district" gorm:"size:100;index"`
	Area            string     `json:"area" gorm:"size:100"`
	Address         string     `json:"address" gorm:"size:255"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	EditPinHash     string     `json:"-" gorm:"not null;size:100"`
	FlagCount       int        `json:"flag_count" gorm:"not null;default:0"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Images []PostImage `json:"images,omitempty" gorm:"foreignKey:PostID"`

	// DistanceKm is set on listings searched around a point.
	DistanceKm *float64 `json:"distance_km,omitempty" gorm:"-"`
}

func (NeedPost) TableName() string {
	return "need_posts"
}

// Remaining returns how many items are still needed.
func (p *NeedPost) Remaining() int {
	if p.QuantityDonated >= p.QuantityNeeded {
		return 0
	}
	return p.QuantityNeeded - p.QuantityDonated
}

// IsOwnedBy reports whether the post belongs to the given account.
func (p *NeedPost) IsOwnedBy(userID string) bool {
	return userID != "" && p.UserID != nil && *p.UserID == userID
}

// DerivedStatus returns the status implied by the quantities, keeping
// moderation states untouched.
func (p *NeedPost) DerivedStatus() PostStatus {
	if p.Status.IsModerated() {
		return p.Status
	}
	if p.QuantityDonated >= p.QuantityNeeded {
		return PostStatusFulfilled
	}
	return PostStatusActive
}

// Location returns the post's coordinates, or nil when it has none.
func (p *NeedPost) Location() *GeoPoint {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &GeoPoint{Lat: *p.Latitude, Lng: *p.Longitude}
}

// PostImage is an uploaded picture attached to a need post.
type PostImage struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	PostID      string    `json:"post_id" gorm:"not null;size:36;index"`
	StorageKey  string    `json:"-" gorm:"not null;size:255"`
	URL         string    `json:"url" gorm:"not null;size:500"`
	ContentType string    `json:"content_type" gorm:"size:50"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostListFilter narrows a post listing. Zero values mean "any".
type PostListFilter struct {
	Category Category
	District string
	Statuses []PostStatus
	Query    string
	UserID   string
	// Near and RadiusKm restrict results to posts with coordinates inside
	// the bounding box of the radius.
	Near     *GeoPoint
	RadiusKm float64
	Page     int
	Limit    int
}

// PostPage is one page of posts with pagination metadata.
type PostPage struct {
	Posts      []NeedPost `json:"posts"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int64      `json:"total"`
	HasMore    bool       `json:"has_more"`
	TotalPages int        `json:"total_pages"`
}
