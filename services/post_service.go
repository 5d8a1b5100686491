package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"reliefhub-api/models"
	"reliefhub-api/utils"
)

type postStore interface {
	Create(ctx context.Context, post *models.NeedPost) error
	GetByID(ctx context.Context, id string) (*models.NeedPost, error)
	List(ctx context.Context, filter models.PostListFilter) (*models.PostPage, error)
	Update(ctx context.Context, id string, updates map[string]interface{}, quantityNeeded *int) (*models.NeedPost, error)
	Delete(ctx context.Context, id string) ([]models.PostImage, error)
	AddImage(ctx context.Context, image *models.PostImage) error
	CountImages(ctx context.Context, postID string) (int, error)
}

type imageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Access describes who is acting on a post: an account, an edit PIN, or both.
type Access struct {
	UserID  string
	IsAdmin bool
	PIN     string
}

// AuthorizePost allows admins, the owning account, or a matching edit PIN to
// manage a post.
func AuthorizePost(post *models.NeedPost, access Access) error {
	if access.IsAdmin || post.IsOwnedBy(access.UserID) {
		return nil
	}
	if access.PIN == "" {
		return errors.Wrap(models.ErrForbidden, "edit PIN or post ownership required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(post.EditPinHash), []byte(access.PIN)); err != nil {
		return errors.Wrap(models.ErrForbidden, "invalid edit PIN")
	}
	return nil
}

const (
	defaultSearchRadiusKm = 25
	maxSearchRadiusKm     = 200
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PostServiceConfig holds the limits the post service enforces.
type PostServiceConfig struct {
	MaxImageBytes    int64
	MaxImagesPerPost int
	HashCost         int
}

type PostService struct {
	posts  postStore
	images imageStore
	cfg    PostServiceConfig
}

func NewPostService(posts postStore, images imageStore, cfg PostServiceConfig) *PostService {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	if cfg.MaxImagesPerPost == 0 {
		cfg.MaxImagesPerPost = 5
	}
	return &PostService{posts: posts, images: images, cfg: cfg}
}

// CreatePostInput is a new need post. EditPIN is generated when empty.
type CreatePostInput struct {
	UserID         *string
	RequesterName  string
	ContactPhone   string
	Category       models.Category
	Title          string
	Description    string
	Unit           string
	QuantityNeeded int
	District       string
	Area           string
	Address        string
	Latitude       *float64
	Longitude      *float64
	EditPIN        string
}

func (in *CreatePostInput) Validate() error {
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.District = strings.TrimSpace(in.District)
	in.Area = strings.TrimSpace(in.Area)

	var errs []models.FieldError
	if in.RequesterName == "" {
		errs = append(errs, models.FieldError{Field: "requester_name", Message: "required"})
	}
	if !in.Category.IsValid() {
		errs = append(errs, models.FieldError{Field: "category", Message: "unknown category"})
	}
	switch {
	case in.Title == "":
		errs = append(errs, models.FieldError{Field: "title", Message: "required"})
	case utf8.RuneCountInString(in.Title) > 150:
		errs = append(errs, models.FieldError{Field: "title", Message: "must be at most 150 characters"})
	}
	if in.QuantityNeeded <= 0 {
		errs = append(errs, models.FieldError{Field: "quantity_needed", Message: "must be positive"})
	}
	if in.EditPIN != "" && !utils.IsValidPIN(in.EditPIN) {
		errs = append(errs, models.FieldError{Field: "edit_pin", Message: "must be 4 digits"})
	}
	errs = append(errs, coordinateErrors(in.Latitude, in.Longitude)...)
	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

// UpdatePostInput carries the fields an owner may change. Nil means unchanged.
type UpdatePostInput struct {
	Title          *string
	Description    *string
	Category       *models.Category
	Unit           *string
	QuantityNeeded *int
	District       *string
	Area           *string
	Address        *string
	ContactPhone   *string
	Latitude       *float64
	Longitude      *float64
}

func (in *UpdatePostInput) Validate() error {
	var errs []models.FieldError
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
		if title == "" || utf8.RuneCountInString(title) > 150 {
			errs = append(errs, models.FieldError{Field: "title", Message: "must be 1 to 150 characters"})
		}
	}
	if in.Category != nil && !in.Category.IsValid() {
		errs = append(errs, models.FieldError{Field: "category", Message: "unknown category"})
	}
	if in.QuantityNeeded != nil && *in.QuantityNeeded <= 0 {
		errs = append(errs, models.FieldError{Field: "quantity_needed", Message: "must be positive"})
	}
	errs = append(errs, coordinateErrors(in.Latitude, in.Longitude)...)
	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

func (in *UpdatePostInput) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Unit != nil {
		updates["unit"] = strings.TrimSpace(*in.Unit)
	}
	if in.District != nil {
		updates["district"] = strings.TrimSpace(*in.District)
	}
	if in.Area != nil {
		updates["area"] = strings.TrimSpace(*in.Area)
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*in.ContactPhone)
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}
	return updates
}

func coordinateErrors(lat, lng *float64) []models.FieldError {
	var errs []models.FieldError
	if lat != nil && !utils.IsValidLatitude(*lat) {
		errs = append(errs, models.FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if lng != nil && !utils.IsValidLongitude(*lng) {
		errs = append(errs, models.FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}
	return errs
}

// CreatedPost is a freshly created post with its plain edit PIN. The PIN is
// never readable again.
type CreatedPost struct {
	Post    *models.NeedPost `json:"post"`
	EditPIN string           `json:"edit_pin"`
}

// Create stores a new active post and returns its edit PIN.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*CreatedPost, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	pin := in.EditPIN
	if pin == "" {
		generated, err := generatePIN()
		if err != nil {
			return nil, errors.Wrap(err, "generate edit PIN")
		}
		pin = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cfg.HashCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash edit PIN")
	}

	post := &models.NeedPost{
		ID:             uuid.New().String(),
		UserID:         in.UserID,
		RequesterName:  in.RequesterName,
		ContactPhone:   strings.TrimSpace(in.ContactPhone),
		Category:       in.Category,
		Title:          in.Title,
		Description:    in.Description,
		Unit:           strings.TrimSpace(in.Unit),
		QuantityNeeded: in.QuantityNeeded,
		Status:         models.PostStatusActive,
		District:       in.District,
		Area:           in.Area,
		Address:        strings.TrimSpace(in.Address),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		EditPinHash:    string(hash),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	log.Info().Str("post_id", post.ID).Str("category", string(post.Category)).Msg("need post created")
	return &CreatedPost{Post: post, EditPIN: pin}, nil
}

// Get returns a post. Flagged and hidden posts are only visible to admins.
func (s *PostService) Get(ctx context.Context, id string, isAdmin bool) (*models.NeedPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !post.Status.IsPublic() {
		return nil, errors.Wrap(models.ErrNotFound, "get post")
	}
	return post, nil
}

// List returns public posts. A non-public status in the filter is ignored.
func (s *PostService) List(ctx context.Context, filter models.PostListFilter) (*models.PostPage, error) {
	var public []models.PostStatus
	for _, status := range filter.Statuses {
		if status.IsPublic() {
			public = append(public, status)
		}
	}
	if len(public) == 0 {
		public = []models.PostStatus{models.PostStatusActive, models.PostStatusFulfilled}
	}
	filter.Statuses = public
	return s.list(ctx, filter)
}

// AdminList returns posts in any status.
func (s *PostService) AdminList(ctx context.Context, filter models.PostListFilter) (*models.PostPage, error) {
	return s.list(ctx, filter)
}

func (s *PostService) list(ctx context.Context, filter models.PostListFilter) (*models.PostPage, error) {
	if filter.Near != nil {
		if !utils.IsValidLatitude(filter.Near.Lat) || !utils.IsValidLongitude(filter.Near.Lng) {
			return nil, models.NewValidationError("near", "invalid coordinates")
		}
		if filter.RadiusKm <= 0 || filter.RadiusKm > maxSearchRadiusKm {
			filter.RadiusKm = defaultSearchRadiusKm
		}
	}

	page, err := s.posts.List(ctx, filter)
	if err != nil || filter.Near == nil {
		return page, err
	}
	for i := range page.Posts {
		if loc := page.Posts[i].Location(); loc != nil {
			d := models.DistanceKm(*filter.Near, *loc)
			page.Posts[i].DistanceKm = &d
		}
	}
	return page, nil
}

// Update applies an owner edit. Changing the goal re-derives the donated
// total and status.
func (s *PostService) Update(ctx context.Context, id string, in UpdatePostInput, access Access) (*models.NeedPost, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizePost(post, access); err != nil {
		return nil, err
	}
	return s.posts.Update(ctx, id, in.columns(), in.QuantityNeeded)
}

// AdminUpdateInput is a moderator edit. Status is set as given.
type AdminUpdateInput struct {
	Title       *string
	Description *string
	Status      *models.PostStatus
}

// AdminUpdate edits a post and may set any status.
func (s *PostService) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput) (*models.NeedPost, error) {
	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("title", "required")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		if !in.Status.IsValid() {
			return nil, models.NewValidationError("status", "unknown status")
		}
		updates["status"] = *in.Status
	}

	post, err := s.posts.Update(ctx, id, updates, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Str("post_id", id).Str("status", string(post.Status)).Msg("post updated by admin")
	return post, nil
}

// Delete removes a post with its images, donations and flags.
func (s *PostService) Delete(ctx context.Context, id string, access Access) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizePost(post, access); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// AdminDelete removes any post.
func (s *PostService) AdminDelete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *PostService) delete(ctx context.Context, id string) error {
	images, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	for _, image := range images {
		if err := s.images.Delete(ctx, image.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", image.StorageKey).Msg("failed to remove stored image")
		}
	}
	log.Info().Str("post_id", id).Int("images", len(images)).Msg("need post deleted")
	return nil
}

// ImageUpload is one uploaded file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddImage stores an image and attaches it to the post.
func (s *PostService) AddImage(ctx context.Context, postID string, upload ImageUpload, access Access) (*models.PostImage, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizePost(post, access); err != nil {
		return nil, err
	}

	ext, ok := allowedImageTypes[upload.ContentType]
	if !ok {
		return nil, models.NewValidationError("image", "only jpeg, png and webp images are allowed")
	}
	if upload.Size <= 0 || upload.Size > s.cfg.MaxImageBytes {
		return nil, models.NewValidationError("image", fmt.Sprintf("must be at most %d bytes", s.cfg.MaxImageBytes))
	}

	count, err := s.posts.CountImages(ctx, postID)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxImagesPerPost {
		return nil, models.NewConflictError(fmt.Sprintf("a post can have at most %d images", s.cfg.MaxImagesPerPost))
	}

	id := uuid.New().String()
	key := path.Join("posts", postID, id+ext)
	url, err := s.images.Put(ctx, key, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return nil, errors.Wrap(err, "store image")
	}

	image := &models.PostImage{
		ID:          id,
		PostID:      postID,
		StorageKey:  key,
		URL:         url,
		ContentType: upload.ContentType,
		SizeBytes:   upload.Size,
	}
	if err := s.posts.AddImage(ctx, image); err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned image")
		}
		return nil, err
	}
	return image, nil
}

// generatePIN returns a random 4-digit edit PIN.
func generatePIN() (string, error) {
	const digits = "0123456789"
	pin := make([]byte, 4)
	for i := range pin {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		pin[i] = digits[num.Int64()]
	}
	return string(pin), nil
}
