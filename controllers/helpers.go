// File: /controllers/helpers.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"reliefhub-api/models"
	"reliefhub-api/services"
	"strconv"
	"strings"
)

const editPINHeader = "X-Edit-PIN"

// pagination reads page and limit, falling back to defaults on bad input.
func pagination(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

// currentUserID returns the authenticated user id, or nil for anonymous callers.
func currentUserID(c *gin.Context) *string {
	userID := c.GetString("user_id")
	if userID == "" {
		return nil
	}
	return &userID
}

func isAdmin(c *gin.Context) bool {
	return c.GetString("user_role") == string(models.RoleAdmin)
}

// postFilter reads the listing query shared by the public and admin lists.
// A location search needs both lat and lng.
func postFilter(c *gin.Context) (models.PostListFilter, []models.FieldError) {
	page, limit := pagination(c, 20, 100)
	filter := models.PostListFilter{
		Category: models.Category(c.Query("category")),
		District: strings.TrimSpace(c.Query("district")),
		Query:    strings.TrimSpace(c.Query("q")),
		Page:     page,
		Limit:    limit,
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []models.PostStatus{models.PostStatus(status)}
	}

	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw == "" && lngRaw == "" {
		return filter, nil
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lng, lngErr := strconv.ParseFloat(lngRaw, 64)
	if latErr != nil || lngErr != nil {
		return filter, []models.FieldError{{Field: "lat,lng", Message: "both must be numbers"}}
	}
	filter.Near = &models.GeoPoint{Lat: lat, Lng: lng}
	if radius := c.Query("radius_km"); radius != "" {
		km, err := strconv.ParseFloat(radius, 64)
		if err != nil {
			return filter, []models.FieldError{{Field: "radius_km", Message: "must be a number"}}
		}
		filter.RadiusKm = km
	}
	return filter, nil
}

// postAccess collects every credential the caller offered for a post.
func postAccess(c *gin.Context) services.Access {
	return services.Access{
		UserID:  c.GetString("user_id"),
		IsAdmin: isAdmin(c),
		PIN:     c.GetHeader(editPINHeader),
	}
}
