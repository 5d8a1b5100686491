// File: /controllers/post_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"io"
	"net/http"
	"reliefhub-api/models"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

type PostController struct {
	posts *services.PostService
}

func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

type CreatePostRequest struct {
	RequesterName  string   `json:"requester_name" binding:"required,max=100"`
	ContactPhone   string   `json:"contact_phone" binding:"max=30"`
	Category       string   `json:"category" binding:"required,category"`
	Title          string   `json:"title" binding:"required,max=150"`
	Description    string   `json:"description" binding:"max=5000"`
	Unit           string   `json:"unit" binding:"max=30"`
	QuantityNeeded int      `json:"quantity_needed" binding:"required,gt=0"`
	District       string   `json:"district" binding:"max=100"`
	Area           string   `json:"area" binding:"max=100"`
	Address        string   `json:"address" binding:"max=255"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	EditPIN        string   `json:"edit_pin" binding:"omitempty,editpin"`
}

type UpdatePostRequest struct {
	Title          *string  `json:"title" binding:"omitempty,max=150"`
	Description    *string  `json:"description" binding:"omitempty,max=5000"`
	Category       *string  `json:"category" binding:"omitempty,category"`
	Unit           *string  `json:"unit" binding:"omitempty,max=30"`
	QuantityNeeded *int     `json:"quantity_needed" binding:"omitempty,gt=0"`
	District       *string  `json:"district" binding:"omitempty,max=100"`
	Area           *string  `json:"area" binding:"omitempty,max=100"`
	Address        *string  `json:"address" binding:"omitempty,max=255"`
	ContactPhone   *string  `json:"contact_phone" binding:"omitempty,max=30"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

// CreatePost accepts anonymous and authenticated posts. The edit PIN is only
// ever returned here.
func (pc *PostController) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindError(c, err)
		return
	}

	created, err := pc.posts.Create(c.Request.Context(), services.CreatePostInput{
		UserID:         currentUserID(c),
		RequesterName:  req.RequesterName,
		ContactPhone:   req.ContactPhone,
		Category:       models.Category(req.Category),
		Title:          req.Title,
		Description:    req.Description,
		Unit:           req.Unit,
		QuantityNeeded: req.QuantityNeeded,
		District:       req.District,
		Area:           req.Area,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		EditPIN:        req.EditPIN,
	})
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendCreated(c, "Post created. Keep the edit PIN to manage this post.", created)
}

// GetPosts lists public posts. Filters: category, district, status, q, and lat/lng/radius_km.
func (pc *PostController) GetPosts(c *gin.Context) {
	filter, fieldErrs := postFilter(c)
	if fieldErrs != nil {
		utils.SendValidationError(c, fieldErrs)
		return
	}

	result, err := pc.posts.List(c.Request.Context(), filter)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (pc *PostController) GetPost(c *gin.Context) {
	post, err := pc.posts.Get(c.Request.Context(), c.Param("id"), isAdmin(c))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Post retrieved", post)
}

func (pc *PostController) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindError(c, err)
		return
	}

	in := services.UpdatePostInput{
		Title:          req.Title,
		Description:    req.Description,
		Unit:           req.Unit,
		QuantityNeeded: req.QuantityNeeded,
		District:       req.District,
		Area:           req.Area,
		Address:        req.Address,
		ContactPhone:   req.ContactPhone,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		in.Category = &category
	}

	post, err := pc.posts.Update(c.Request.Context(), c.Param("id"), in, postAccess(c))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Post updated", post)
}

func (pc *PostController) DeletePost(c *gin.Context) {
	if err := pc.posts.Delete(c.Request.Context(), c.Param("id"), postAccess(c)); err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Post deleted", nil)
}

// UploadImage takes a multipart "image" field. The content type is sniffed
// from the bytes, not trusted from the client.
func (pc *PostController) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.SendValidationError(c, []models.FieldError{{Field: "image", Message: "required"}})
		return
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		utils.SendServiceError(c, err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		utils.SendServiceError(c, err)
		return
	}

	image, err := pc.posts.AddImage(c.Request.Context(), c.Param("id"), services.ImageUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(sniff[:n]),
		Size:        header.Size,
		Body:        file,
	}, postAccess(c))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendCreated(c, "Image uploaded", image)
}
