package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTypeDonationReceived  NotificationType = "donation_received"
	NotificationTypePostFulfilled     NotificationType = "post_fulfilled"
	NotificationTypeDonationConfirmed NotificationType = "donation_confirmed"
	NotificationTypePostFlagged       NotificationType = "post_flagged"
	NotificationTypePostRestored      NotificationType = "post_restored"
)

type Notification struct {
	ID        string            `json:"id" gorm:"primaryKey;size:36"`
	UserID    string            `json:"user_id" gorm:"not null;size:36;index"`
	Type      NotificationType  `json:"type" gorm:"not null;size:50"`
	Title     string            `json:"title" gorm:"not null;size:200"`
	Message   string            `json:"message" gorm:"type:text"`
	Link      string            `json:"link,omitempty" gorm:"size:500"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	IsRead    bool              `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NotifyParams is the payload handed to a notifier. It is not persisted as is.
type NotifyParams struct {
	UserID   string
	Type     NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]interface{}
}

// NotificationResponse represents the API response for notifications
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      string                 `json:"link,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
	TimeAgo   string                 `json:"time_ago"`
}

// NotificationStats represents notification statistics
type NotificationStats struct {
	UnreadCount int `json:"unread_count"`
	TotalCount  int `json:"total_count"`
}

// PaginatedNotifications represents paginated notification response
type PaginatedNotifications struct {
	Notifications []NotificationResponse `json:"notifications"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	Total         int64                  `json:"total"`
	HasMore       bool                   `json:"has_more"`
	TotalPages    int                    `json:"total_pages"`
}

// GetTimeAgo returns a human-readable time difference
func (n *Notification) GetTimeAgo(now time.Time) string {
	diff := now.Sub(n.CreatedAt)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/(24*7)), "week")
	default:
		return plural(int(diff.Hours()/(24*30)), "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// ToResponse converts Notification to NotificationResponse
func (n *Notification) ToResponse(now time.Time) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Metadata:  n.Metadata,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		TimeAgo:   n.GetTimeAgo(now),
	}
}
