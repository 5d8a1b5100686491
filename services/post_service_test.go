package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reliefhub-api/models"
	"reliefhub-api/repositories"
)

// memoryImageStore keeps uploaded objects in a map.
type memoryImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{objects: make(map[string][]byte)}
}

func (m *memoryImageStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memoryImageStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryImageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func newTestPostService(t *testing.T) (*PostService, *memoryImageStore, *repositories.PostRepository) {
	t.Helper()

	db := newTestDB(t)
	repo := repositories.NewPostRepository(db)
	images := newMemoryImageStore()
	service := NewPostService(repo, images, PostServiceConfig{
		MaxImageBytes:    1024,
		MaxImagesPerPost: 2,
		HashCost:         bcrypt.MinCost,
	})
	return service, images, repo
}

func validPostInput() CreatePostInput {
	return CreatePostInput{
		RequesterName:  "  Camp 4 ",
		Category:       models.CategoryDryRations,
		Title:          "Rice for 20 families",
		Unit:           "kg",
		QuantityNeeded: 40,
		District:       "Colombo",
	}
}

func TestPostService_CreateGeneratesPIN(t *testing.T) {
	service, _, _ := newTestPostService(t)

	created, err := service.Create(context.Background(), validPostInput())
	require.NoError(t, err)

	assert.Regexp(t, `^\d{4}$`, created.EditPIN)
	assert.Equal(t, "Camp 4", created.Post.RequesterName)
	assert.Equal(t, models.PostStatusActive, created.Post.Status)
	assert.Zero(t, created.Post.QuantityDonated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Post.EditPinHash), []byte(created.EditPIN)))
}

func TestPostService_CreateKeepsChosenPIN(t *testing.T) {
	service, _, _ := newTestPostService(t)

	in := validPostInput()
	in.EditPIN = "0420"
	created, err := service.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "0420", created.EditPIN)
}

func TestPostService_CreateValidation(t *testing.T) {
	service, _, _ := newTestPostService(t)
	badLat := 91.0

	in := validPostInput()
	in.RequesterName = ""
	in.Category = "furniture"
	in.QuantityNeeded = 0
	in.EditPIN = "12ab"
	in.Latitude = &badLat

	_, err := service.Create(context.Background(), in)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	var fields []string
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"requester_name", "category", "quantity_needed", "edit_pin", "latitude"}, fields)
}

func TestPostService_UpdateAccess(t *testing.T) {
	service, _, _ := newTestPostService(t)
	ctx := context.Background()

	in := validPostInput()
	in.UserID = strPtr("owner-1")
	in.EditPIN = "1111"
	created, err := service.Create(ctx, in)
	require.NoError(t, err)

	title := "Rice and dhal"
	update := UpdatePostInput{Title: &title}

	_, err = service.Update(ctx, created.Post.ID, update, Access{})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = service.Update(ctx, created.Post.ID, update, Access{PIN: "2222"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = service.Update(ctx, created.Post.ID, update, Access{UserID: "someone-else"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := service.Update(ctx, created.Post.ID, update, Access{PIN: "1111"})
	require.NoError(t, err)
	assert.Equal(t, "Rice and dhal", updated.Title)

	title = "Rice, dhal and oil"
	updated, err = service.Update(ctx, created.Post.ID, update, Access{UserID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "Rice, dhal and oil", updated.Title)
}

func TestPostService_UpdateQuantityRederivesStatus(t *testing.T) {
	service, _, repo := newTestPostService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPostInput())
	require.NoError(t, err)
	access := Access{PIN: created.EditPIN}

	_, err = repo.Update(ctx, created.Post.ID, map[string]interface{}{"quantity_donated": 30}, nil)
	require.NoError(t, err)

	lower := 25
	updated, err := service.Update(ctx, created.Post.ID, UpdatePostInput{QuantityNeeded: &lower}, access)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.QuantityNeeded)
	assert.Equal(t, 25, updated.QuantityDonated)
	assert.Equal(t, models.PostStatusFulfilled, updated.Status)

	higher := 60
	updated, err = service.Update(ctx, created.Post.ID, UpdatePostInput{QuantityNeeded: &higher}, access)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.QuantityDonated)
	assert.Equal(t, models.PostStatusActive, updated.Status)
}

func TestPostService_UpdateQuantityKeepsModeratedStatus(t *testing.T) {
	service, _, repo := newTestPostService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPostInput())
	require.NoError(t, err)

	_, err = repo.Update(ctx, created.Post.ID, map[string]interface{}{"status": models.PostStatusHidden}, nil)
	require.NoError(t, err)

	one := 1
	updated, err := service.Update(ctx, created.Post.ID, UpdatePostInput{QuantityNeeded: &one}, Access{IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusHidden, updated.Status)
}

func TestPostService_GetHidesModeratedPosts(t *testing.T) {
	service, _, _ := newTestPostService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPostInput())
	require.NoError(t, err)

	status := models.PostStatusFlagged
	_, err = service.AdminUpdate(ctx, created.Post.ID, AdminUpdateInput{Status: &status})
	require.NoError(t, err)

	_, err = service.Get(ctx, created.Post.ID, false)
	assert.ErrorIs(t, err, models.ErrNotFound)

	post, err := service.Get(ctx, created.Post.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusFlagged, post.Status)

	page, err := service.List(ctx, models.PostListFilter{Statuses: []models.PostStatus{models.PostStatusFlagged}})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)

	page, err = service.AdminList(ctx, models.PostListFilter{Statuses: []models.PostStatus{models.PostStatusFlagged}})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
}

func TestPostService_ListFilters(t *testing.T) {
	service, _, _ := newTestPostService(t)
	ctx := context.Background()

	rice := validPostInput()
	_, err := service.Create(ctx, rice)
	require.NoError(t, err)

	milk := validPostInput()
	milk.Category = models.CategoryBabyItems
	milk.Title = "Milk powder"
	milk.District = "Gampaha"
	_, err = service.Create(ctx, milk)
	require.NoError(t, err)

	page, err := service.List(ctx, models.PostListFilter{Category: models.CategoryBabyItems})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Milk powder", page.Posts[0].Title)

	page, err = service.List(ctx, models.PostListFilter{District: "Colombo"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Rice for 20 families", page.Posts[0].Title)

	page, err = service.List(ctx, models.PostListFilter{Query: "MILK"})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)

	page, err = service.List(ctx, models.PostListFilter{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, int64(2), page.Total)
	assert.True(t, page.HasMore)
}

func TestPostService_ListNear(t *testing.T) {
	service, _, _ := newTestPostService(t)
	ctx := context.Background()

	place := func(title string, lat, lng float64) {
		in := validPostInput()
		in.Title = title
		in.Latitude = &lat
		in.Longitude = &lng
		_, err := service.Create(ctx, in)
		require.NoError(t, err)
	}
	place("Near camp", 6.9300, 79.8700)
	place("Far camp", 9.6615, 80.0255)

	page, err := service.List(ctx, models.PostListFilter{
		Near:     &models.GeoPoint{Lat: 6.9271, Lng: 79.8612},
		RadiusKm: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Near camp", page.Posts[0].Title)
	require.NotNil(t, page.Posts[0].DistanceKm)
	assert.Less(t, *page.Posts[0].DistanceKm, 10.0)

	_, err = service.List(ctx, models.PostListFilter{Near: &models.GeoPoint{Lat: 95, Lng: 0}})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPostService_AddImage(t *testing.T) {
	service, images, _ := newTestPostService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPostInput())
	require.NoError(t, err)
	access := Access{PIN: created.EditPIN}

	upload := func(contentType string, body string) (*models.PostImage, error) {
		return service.AddImage(ctx, created.Post.ID, ImageUpload{
			Filename:    "photo",
			ContentType: contentType,
			Size:        int64(len(body)),
			Body:        strings.NewReader(body),
		}, access)
	}

	_, err = upload("image/gif", "GIF89a")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = upload("image/png", strings.Repeat("x", 2048))
	assert.ErrorIs(t, err, models.ErrValidation)

	image, err := upload("image/png", "png-bytes")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(image.StorageKey, ".png"))
	assert.Equal(t, "https://cdn.test/"+image.StorageKey, image.URL)

	_, err = upload("image/jpeg", "jpeg-bytes")
	require.NoError(t, err)

	_, err = upload("image/webp", "webp-bytes")
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 2, images.count())

	_, err = service.AddImage(ctx, created.Post.ID, ImageUpload{
		ContentType: "image/png",
		Size:        3,
		Body:        strings.NewReader("png"),
	}, Access{})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPostService_DeleteRemovesEverything(t *testing.T) {
	db := newTestDB(t)
	images := newMemoryImageStore()
	service := NewPostService(repositories.NewPostRepository(db), images, PostServiceConfig{HashCost: bcrypt.MinCost})
	ctx := context.Background()

	in := validPostInput()
	in.EditPIN = "1234"
	created, err := service.Create(ctx, in)
	require.NoError(t, err)
	postID := created.Post.ID

	_, err = service.AddImage(ctx, postID, ImageUpload{
		ContentType: "image/jpeg",
		Size:        4,
		Body:        strings.NewReader("jpeg"),
	}, Access{PIN: created.EditPIN})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Donation{ID: "d1", PostID: postID, DonorName: "A", Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.PostFlag{ID: "f1", PostID: postID, ReporterFP: "ip:1.2.3.4", Reason: models.FlagReasonSpam, Status: models.FlagStatusPending}).Error)

	err = service.Delete(ctx, postID, Access{PIN: "9999"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, service.Delete(ctx, postID, Access{PIN: created.EditPIN}))

	for _, model := range []interface{}{&models.NeedPost{}, &models.PostImage{}, &models.Donation{}, &models.PostFlag{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
	assert.Zero(t, images.count())

	err = service.Delete(ctx, postID, Access{IsAdmin: true})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
