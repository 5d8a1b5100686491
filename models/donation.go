package models

import (
	"time"
)

// Donation records one contribution against a need post. Quantity is stored
// exactly as pledged, even when the post total was capped at its goal.
type Donation struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:36"`
	PostID             string     `json:"post_id" gorm:"not null;size:36;index"`
	DonorID            *string    `json:"donor_id" gorm:"size:36;index"`
	DonorName          string     `json:"donor_name" gorm:"not null;size:100"`
	Quantity           int        `json:"quantity" gorm:"not null"`
	Message            string     `json:"message,omitempty" gorm:"type:text"`
	ReceiptConfirmed   bool       `json:"receipt_confirmed" gorm:"not null;default:false"`
	ReceiptConfirmedAt *time.Time `json:"receipt_confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" gorm:"index"`

	Post *NeedPost `json:"post,omitempty" gorm:"foreignKey:PostID"`
}

// DonationResult is what reconciliation hands back: the stored donation and
// the post as it stands after the update.
type DonationResult struct {
	Donation  Donation `json:"donation"`
	Post      NeedPost `json:"post"`
	Fulfilled bool     `json:"fulfilled"`
	// Credited is how much of the donation counted toward the post total.
	Credited int `json:"credited"`
}

// DonorProfile holds per-donor running counters. They are recomputed from
// donation history and may lag behind it briefly.
type DonorProfile struct {
	ID              uint       `json:"-" gorm:"primaryKey"`
	UserID          string     `json:"user_id" gorm:"uniqueIndex;not null;size:36"`
	ItemsDonated    int        `json:"items_donated" gorm:"not null;default:0"`
	FamiliesHelped  int        `json:"families_helped" gorm:"not null;default:0"`
	DistrictsActive int        `json:"districts_active" gorm:"not null;default:0"`
	Badges          BadgeList  `json:"badges" gorm:"type:json"`
	LastDonationAt  *time.Time `json:"last_donation_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// DonorTotals is a donor's history folded into counters.
type DonorTotals struct {
	ItemsDonated    int
	Donations       int
	DistrictsActive int
	LastDonationAt  *time.Time
}

// LeaderboardEntry is a public row of the donor leaderboard.
type LeaderboardEntry struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	ItemsDonated    int    `json:"items_donated"`
	FamiliesHelped  int    `json:"families_helped"`
	DistrictsActive int    `json:"districts_active"`
}

// Badge names derived from donor counters.
const (
	BadgeFirstDonation = "first_donation"
	BadgeTenItems      = "ten_items"
	BadgeHundredItems  = "hundred_items"
	BadgeFiveFamilies  = "five_families"
	BadgeMultiDistrict = "multi_district"
)

// DeriveBadges computes the badge list for the given counters.
func DeriveBadges(items, families, districts int) BadgeList {
	badges := BadgeList{}
	if families >= 1 {
		badges = append(badges, BadgeFirstDonation)
	}
	if items >= 10 {
		badges = append(badges, BadgeTenItems)
	}
	if items >= 100 {
		badges = append(badges, BadgeHundredItems)
	}
	if families >= 5 {
		badges = append(badges, BadgeFiveFamilies)
	}
	if districts >= 3 {
		badges = append(badges, BadgeMultiDistrict)
	}
	return badges
}
