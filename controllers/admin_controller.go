// File: /controllers/admin_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"reliefhub-api/models"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

type AdminController struct {
	posts      *services.PostService
	moderation *services.ModerationService
}

func NewAdminController(posts *services.PostService, moderation *services.ModerationService) *AdminController {
	return &AdminController{posts: posts, moderation: moderation}
}

type AdminUpdatePostRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=150"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Status      *string `json:"status" binding:"omitempty,oneof=active fulfilled flagged hidden"`
}

// GetPosts lists posts in any status, including flagged and hidden.
func (ac *AdminController) GetPosts(c *gin.Context) {
	filter, fieldErrs := postFilter(c)
	if fieldErrs != nil {
		utils.SendValidationError(c, fieldErrs)
		return
	}

	result, err := ac.posts.AdminList(c.Request.Context(), filter)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (ac *AdminController) UpdatePost(c *gin.Context) {
	var req AdminUpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindError(c, err)
		return
	}

	in := services.AdminUpdateInput{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		in.Status = &status
	}

	post, err := ac.posts.AdminUpdate(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Post updated", post)
}

func (ac *AdminController) DeletePost(c *gin.Context) {
	if err := ac.posts.AdminDelete(c.Request.Context(), c.Param("id")); err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Post deleted", nil)
}

// ResolveFlags returns a flagged post to active or fulfilled.
func (ac *AdminController) ResolveFlags(c *gin.Context) {
	post, err := ac.moderation.ResolveFlags(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Flags resolved", post)
}

func (ac *AdminController) GetFlags(c *gin.Context) {
	page, limit := pagination(c, 20, 100)

	flags, total, err := ac.moderation.ListFlags(c.Request.Context(), models.FlagStatus(c.Query("status")), page, limit)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendPaginated(c, flags, page, limit, total)
}

func (ac *AdminController) ApproveFlag(c *gin.Context) {
	flag, err := ac.moderation.Approve(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Flag approved", flag)
}

func (ac *AdminController) DismissFlag(c *gin.Context) {
	flag, err := ac.moderation.Dismiss(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Flag dismissed", flag)
}

func (ac *AdminController) GetSummary(c *gin.Context) {
	summary, err := ac.moderation.Summary(c.Request.Context())
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
