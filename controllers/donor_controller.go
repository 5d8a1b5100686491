// File: /controllers/donor_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"reliefhub-api/services"
	"reliefhub-api/utils"
	"strconv"
)

type DonorController struct {
	stats *services.DonorStatsService
}

func NewDonorController(stats *services.DonorStatsService) *DonorController {
	return &DonorController{stats: stats}
}

// GetMyProfile returns the caller's donor stats and badges.
func (dc *DonorController) GetMyProfile(c *gin.Context) {
	profile, err := dc.stats.Profile(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Donor profile retrieved", profile)
}

func (dc *DonorController) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	entries, err := dc.stats.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
