// File: /controllers/donation_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

type DonationController struct {
	donations *services.DonationService
}

func NewDonationController(donations *services.DonationService) *DonationController {
	return &DonationController{donations: donations}
}

type CreateDonationRequest struct {
	DonorName string `json:"donor_name" binding:"required,max=100"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Message   string `json:"message" binding:"max=1000"`
}

// CreateDonation pledges items to a post. The response carries the post as
// it stands after reconciliation and whether this donation fulfilled it.
func (dc *DonationController) CreateDonation(c *gin.Context) {
	var req CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindError(c, err)
		return
	}

	result, err := dc.donations.CreateDonation(c.Request.Context(), services.CreateDonationInput{
		PostID:    c.Param("id"),
		DonorName: req.DonorName,
		Quantity:  req.Quantity,
		Message:   req.Message,
		DonorID:   currentUserID(c),
	})
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	message := "Donation recorded"
	if result.Fulfilled {
		message = "Donation recorded. This need is now fulfilled."
	}
	utils.SendCreated(c, message, result)
}

func (dc *DonationController) GetPostDonations(c *gin.Context) {
	page, limit := pagination(c, 20, 100)

	donations, total, err := dc.donations.ListByPost(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendPaginated(c, donations, page, limit, total)
}

func (dc *DonationController) GetMyDonations(c *gin.Context) {
	page, limit := pagination(c, 20, 100)

	donations, total, err := dc.donations.ListByDonor(c.Request.Context(), c.GetString("user_id"), page, limit)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendPaginated(c, donations, page, limit, total)
}

func (dc *DonationController) ConfirmReceipt(c *gin.Context) {
	donation, err := dc.donations.ConfirmReceipt(c.Request.Context(), c.Param("id"), postAccess(c))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Receipt confirmed", donation)
}
