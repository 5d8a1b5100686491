package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedPostRemainingAndDerivedStatus(t *testing.T) {
	tests := []struct {
		name      string
		post      NeedPost
		remaining int
		derived   PostStatus
	}{
		{"untouched", NeedPost{QuantityNeeded: 10, Status: PostStatusActive}, 10, PostStatusActive},
		{"partial", NeedPost{QuantityNeeded: 10, QuantityDonated: 7, Status: PostStatusActive}, 3, PostStatusActive},
		{"complete", NeedPost{QuantityNeeded: 10, QuantityDonated: 10, Status: PostStatusActive}, 0, PostStatusFulfilled},
		{"goal lowered below total", NeedPost{QuantityNeeded: 4, QuantityDonated: 10, Status: PostStatusFulfilled}, 0, PostStatusFulfilled},
		{"flagged stays flagged", NeedPost{QuantityNeeded: 10, QuantityDonated: 10, Status: PostStatusFlagged}, 0, PostStatusFlagged},
		{"hidden stays hidden", NeedPost{QuantityNeeded: 10, Status: PostStatusHidden}, 10, PostStatusHidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.remaining, tt.post.Remaining())
			assert.Equal(t, tt.derived, tt.post.DerivedStatus())
		})
	}
}

func TestNeedPostOwnership(t *testing.T) {
	owner := "user-1"
	post := NeedPost{UserID: &owner}

	assert.True(t, post.IsOwnedBy("user-1"))
	assert.False(t, post.IsOwnedBy("user-2"))
	assert.False(t, post.IsOwnedBy(""))
	assert.False(t, (&NeedPost{}).IsOwnedBy(""))
}

func TestPostStatusClassification(t *testing.T) {
	assert.True(t, PostStatusActive.IsPublic())
	assert.True(t, PostStatusFulfilled.IsPublic())
	assert.False(t, PostStatusFlagged.IsPublic())
	assert.True(t, PostStatusHidden.IsModerated())
	assert.False(t, PostStatusFulfilled.IsModerated())
	assert.False(t, PostStatus("archived").IsValid())
}

func TestDeriveBadges(t *testing.T) {
	assert.Empty(t, DeriveBadges(0, 0, 0))
	assert.Equal(t, BadgeList{BadgeFirstDonation}, DeriveBadges(3, 1, 1))
	assert.Equal(t,
		BadgeList{BadgeFirstDonation, BadgeTenItems, BadgeHundredItems, BadgeFiveFamilies, BadgeMultiDistrict},
		DeriveBadges(150, 6, 3))
}

func TestBadgeListStorage(t *testing.T) {
	value, err := BadgeList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var scanned BadgeList
	require.NoError(t, scanned.Scan([]byte(`["first_donation","ten_items"]`)))
	assert.True(t, scanned.Contains(BadgeTenItems))
	assert.False(t, scanned.Contains(BadgeHundredItems))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))

	raw, err := json.Marshal(DonorProfile{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"badges":[]`)
}

func TestDistanceKm(t *testing.T) {
	london := GeoPoint{Lat: 51.5074, Lng: -0.1278}
	paris := GeoPoint{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, 344, DistanceKm(london, paris), 2)
	assert.Equal(t, DistanceKm(london, paris), DistanceKm(paris, london))
	assert.Zero(t, DistanceKm(london, london))
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	center := GeoPoint{Lat: 6.9271, Lng: 79.8612}
	minLat, maxLat, minLng, maxLng := BoundingBox(center, 10)

	assert.Less(t, minLat, center.Lat)
	assert.Greater(t, maxLat, center.Lat)
	assert.InDelta(t, 0.09, maxLat-center.Lat, 0.001)
	assert.Greater(t, maxLng-center.Lng, maxLat-center.Lat)

	edge := GeoPoint{Lat: maxLat, Lng: center.Lng}
	assert.InDelta(t, 10, DistanceKm(center, edge), 0.1)
	assert.Less(t, minLng, center.Lng)

	_, _, poleMinLng, poleMaxLng := BoundingBox(GeoPoint{Lat: 89.99, Lng: 0}, 50)
	assert.Equal(t, -180.0, poleMinLng)
	assert.Equal(t, 180.0, poleMaxLng)
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("quantity", "must be positive"), ErrValidation)
	assert.ErrorIs(t, NewConflictError("post already fulfilled"), ErrConflict)
	assert.ErrorIs(t, &LockedError{UnlockAt: time.Now()}, ErrLocked)

	verr := &ValidationError{Errors: []FieldError{{"a", "x"}, {"b", "y"}}}
	assert.Equal(t, "validation: a: x; b: y", verr.Error())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "amaya@example.com", NormalizeEmail("  Amaya@Example.COM "))
}

func TestNotificationTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{2 * 24 * time.Hour, "2 days ago"},
		{14 * 24 * time.Hour, "2 weeks ago"},
		{65 * 24 * time.Hour, "2 months ago"},
	}
	for _, tt := range tests {
		n := Notification{CreatedAt: now.Add(-tt.ago)}
		assert.Equal(t, tt.want, n.GetTimeAgo(now))
	}
}
