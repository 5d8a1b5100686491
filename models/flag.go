package models

import (
	"time"
)

type FlagReason string

const (
	FlagReasonSpam          FlagReason = "spam"
	FlagReasonFraud         FlagReason = "fraud"
	FlagReasonInappropriate FlagReason = "inappropriate"
	FlagReasonDuplicate     FlagReason = "duplicate"
	FlagReasonOther         FlagReason = "other"
)

func (r FlagReason) IsValid() bool {
	switch r {
	case FlagReasonSpam, FlagReasonFraud, FlagReasonInappropriate, FlagReasonDuplicate, FlagReasonOther:
		return true
	}
	return false
}

type FlagStatus string

const (
	FlagStatusPending   FlagStatus = "pending"
	FlagStatusApproved  FlagStatus = "approved"
	FlagStatusDismissed FlagStatus = "dismissed"
)

// PostFlag is a community report against a need post. Reporter is either a
// user id or, for anonymous reports, the client fingerprint.
type PostFlag struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	PostID     string     `json:"post_id" gorm:"not null;size:36;uniqueIndex:uk_post_flags_post_reporter"`
	ReporterID *string    `json:"reporter_id" gorm:"size:36"`
	ReporterFP string     `json:"-" gorm:"not null;size:100;uniqueIndex:uk_post_flags_post_reporter"`
	Reason     FlagReason `json:"reason" gorm:"not null;size:30"`
	Details    string     `json:"details,omitempty" gorm:"type:text"`
	Status     FlagStatus `json:"status" gorm:"not null;size:20;default:'pending';index"`
	ReviewedBy *string    `json:"reviewed_by,omitempty" gorm:"size:36"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Post *NeedPost `json:"post,omitempty" gorm:"foreignKey:PostID"`
}

// FlagOutcome tells the reporter what their report did to the post.
type FlagOutcome struct {
	Flag      PostFlag   `json:"flag"`
	FlagCount int        `json:"flag_count"`
	Status    PostStatus `json:"post_status"`
	// Escalated is true when this report pushed the post into flagged.
	Escalated bool `json:"escalated"`
}

// ModerationSummary holds the counters shown to admins.
type ModerationSummary struct {
	PostsByStatus  map[PostStatus]int64 `json:"posts_by_status"`
	PendingFlags   int64                `json:"pending_flags"`
	TotalDonations int64                `json:"total_donations"`
	ItemsPledged   int64                `json:"items_pledged"`
}
