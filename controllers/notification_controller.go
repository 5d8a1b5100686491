// File: /controllers/notification_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"reliefhub-api/models"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// GetNotifications gets paginated notifications for the current user
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	page, limit := pagination(c, 20, 50)
	notificationType := models.NotificationType(c.Query("type"))

	response, err := nc.notifications.List(c.Request.Context(), c.GetString("user_id"), notificationType, page, limit)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetNotificationStats gets notification statistics (unread count, etc.)
func (nc *NotificationController) GetNotificationStats(c *gin.Context) {
	stats, err := nc.notifications.Stats(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// MarkAsRead marks a notification as read
func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	if err := nc.notifications.MarkRead(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead marks all notifications as read for the current user
func (nc *NotificationController) MarkAllAsRead(c *gin.Context) {
	updated, err := nc.notifications.MarkAllRead(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}
