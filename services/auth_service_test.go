package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reliefhub-api/models"
	"reliefhub-api/repositories"
)

const testPassword = "Relief#2026"

func newTestAuth(t *testing.T) (*AuthService, *TokenManager, *fakeClock) {
	t.Helper()

	db := newTestDB(t)
	tokens := NewTokenManager("test-secret", time.Hour)
	clock := newFakeClock()
	tracker := NewLoginAttemptTracker(NewMemoryAttemptStore(), DefaultLoginPolicy)
	tracker.now = clock.Now

	service := NewAuthService(repositories.NewUserRepository(db), tokens, tracker, nil)
	service.SetHashCost(bcrypt.MinCost)
	return service, tokens, clock
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "a@example.com", Role: models.RoleAdmin}

	token, err := tokens.Generate(user)
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewTokenManager("other-secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_Register(t *testing.T) {
	service, tokens, _ := newTestAuth(t)
	ctx := context.Background()

	result, err := service.Register(ctx, RegisterInput{Name: " Amaya ", Email: " Amaya@Example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Amaya", result.User.Name)
	assert.Equal(t, "amaya@example.com", result.User.Email)
	assert.Equal(t, models.RoleUser, result.User.Role)

	claims, err := tokens.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	_, err = service.Register(ctx, RegisterInput{Name: "Other", Email: "amaya@example.com", Password: testPassword})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = service.Register(ctx, RegisterInput{Name: "", Email: "nope", Password: "short"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}

func TestAuthService_Login(t *testing.T) {
	service, _, _ := newTestAuth(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{Name: "Amaya", Email: "amaya@example.com", Password: testPassword})
	require.NoError(t, err)

	result, err := service.Login(ctx, "AMAYA@example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	_, err = service.Login(ctx, "amaya@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Contains(t, err.Error(), "4 attempts remaining")

	_, err = service.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = service.Login(ctx, "", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAuthService_LoginLockout(t *testing.T) {
	service, _, clock := newTestAuth(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Name: "Amaya", Email: "amaya@example.com", Password: testPassword})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := service.Login(ctx, "amaya@example.com", "wrong")
		require.ErrorIs(t, err, models.ErrUnauthorized)
	}

	_, err = service.Login(ctx, "amaya@example.com", "wrong")
	var locked *models.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, clock.Now().Add(30*time.Minute), locked.UnlockAt)

	// The right password is refused while locked.
	_, err = service.Login(ctx, "amaya@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrLocked)

	clock.Advance(30 * time.Minute)
	_, err = service.Login(ctx, "amaya@example.com", testPassword)
	require.NoError(t, err)
}

func TestAuthService_SuccessfulLoginClearsFailures(t *testing.T) {
	service, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Name: "Amaya", Email: "amaya@example.com", Password: testPassword})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _ = service.Login(ctx, "amaya@example.com", "wrong")
	}
	_, err = service.Login(ctx, "amaya@example.com", testPassword)
	require.NoError(t, err)

	_, err = service.Login(ctx, "amaya@example.com", "wrong")
	assert.Contains(t, err.Error(), "4 attempts remaining")
}

func TestAuthService_MeAndCreateAdmin(t *testing.T) {
	service, _, _ := newTestAuth(t)
	ctx := context.Background()

	admin, err := service.CreateAdmin(ctx, "Ops", "ops@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	me, err := service.Me(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", me.Email)

	_, err = service.Me(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	registered, err := service.Register(ctx, RegisterInput{Name: "Amaya", Email: "amaya@example.com", Password: testPassword})
	require.NoError(t, err)

	promoted, err := service.CreateAdmin(ctx, "", "Amaya@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, promoted.ID)

	me, err = service.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, me.IsAdmin())
}
