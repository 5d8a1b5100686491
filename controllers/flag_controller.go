// File: /controllers/flag_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"reliefhub-api/models"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

type FlagController struct {
	moderation *services.ModerationService
}

func NewFlagController(moderation *services.ModerationService) *FlagController {
	return &FlagController{moderation: moderation}
}

type FlagPostRequest struct {
	Reason  string `json:"reason" binding:"required,oneof=spam fraud inappropriate duplicate other"`
	Details string `json:"details" binding:"max=1000"`
}

// FlagPost reports a post. Anonymous reporters are identified by client IP.
func (fc *FlagController) FlagPost(c *gin.Context) {
	var req FlagPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindError(c, err)
		return
	}

	outcome, err := fc.moderation.Flag(c.Request.Context(), services.FlagInput{
		PostID:     c.Param("id"),
		ReporterID: currentUserID(c),
		ClientIP:   c.ClientIP(),
		Reason:     models.FlagReason(req.Reason),
		Details:    req.Details,
	})
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendCreated(c, "Thank you, the post has been reported", outcome)
}
