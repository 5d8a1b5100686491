package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reliefhub-api/config"
	"reliefhub-api/database"
	"reliefhub-api/models"
)

// newTestDB opens a migrated in-memory SQLite database. A single connection
// keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func syncDispatch(fn func()) { fn() }

const testPIN = "4321"

// seedPost stores a post directly, bypassing validation.
func seedPost(t *testing.T, db *gorm.DB, post models.NeedPost) *models.NeedPost {
	t.Helper()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.Status == "" {
		post.Status = models.PostStatusActive
	}
	if post.RequesterName == "" {
		post.RequesterName = "Camp 4"
	}
	if post.Title == "" {
		post.Title = "Rice for families"
	}
	if post.Category == "" {
		post.Category = models.CategoryDryRations
	}
	if post.EditPinHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
		require.NoError(t, err)
		post.EditPinHash = string(hash)
	}
	require.NoError(t, db.Omit("Images").Create(&post).Error)
	return &post
}

func reloadPost(t *testing.T, db *gorm.DB, id string) models.NeedPost {
	t.Helper()

	var post models.NeedPost
	require.NoError(t, db.First(&post, "id = ?", id).Error)
	return post
}

func strPtr(s string) *string { return &s }

// mockNotifier records notifications through testify's mock.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, params models.NotifyParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockNotifier) types() []models.NotificationType {
	var kinds []models.NotificationType
	for _, call := range m.Calls {
		if call.Method == "Notify" {
			kinds = append(kinds, call.Arguments.Get(1).(models.NotifyParams).Type)
		}
	}
	return kinds
}

// recordingPublisher keeps published subjects.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
