package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"reliefhub-api/models"
	"reliefhub-api/utils"
)

// Claims are the JWT claims issued to logged in users.
type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(models.ErrUnauthorized, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.Wrap(models.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, id string, role models.UserRole) error
}

type welcomeMailer interface {
	SendWelcomeEmail(to, name string) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

func (in *RegisterInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	var errs []models.FieldError
	if in.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "required"})
	}
	if !utils.IsValidEmail(in.Email) {
		errs = append(errs, models.FieldError{Field: "email", Message: "invalid email address"})
	}
	if !utils.IsValidPassword(in.Password) {
		errs = append(errs, models.FieldError{Field: "password", Message: "must be at least 6 characters and mix 3 of upper, lower, digits and symbols"})
	}
	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users    userStore
	tokens   *TokenManager
	tracker  *LoginAttemptTracker
	mailer   welcomeMailer
	hashCost int
	dispatch Dispatcher
}

// NewAuthService builds the service. mailer may be nil.
func NewAuthService(users userStore, tokens *TokenManager, tracker *LoginAttemptTracker, mailer welcomeMailer) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		tracker:  tracker,
		mailer:   mailer,
		hashCost: bcrypt.DefaultCost,
		dispatch: goDispatch,
	}
}

// SetHashCost overrides the bcrypt cost.
func (s *AuthService) SetHashCost(cost int) {
	s.hashCost = cost
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
		Phone:    in.Phone,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, errors.Wrap(err, "generate token")
	}

	if s.mailer != nil {
		email, name := user.Email, user.Name
		s.dispatch(func() {
			if err := s.mailer.SendWelcomeEmail(email, name); err != nil {
				log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to send welcome email")
			}
		})
	}

	log.Info().Str("user_id", user.ID).Msg("user registered")
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks credentials. Repeated failures lock the e-mail address out.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("credentials", "email and password are required")
	}

	status, err := s.tracker.CheckLock(ctx, email)
	if err != nil {
		log.Warn().Err(err).Msg("login attempt store unavailable")
	} else if status.Locked {
		return nil, &models.LockedError{UnlockAt: status.UnlockAt}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, s.failLogin(ctx, email)
	}

	if err := s.tracker.Clear(ctx, email); err != nil {
		log.Warn().Err(err).Msg("failed to clear login attempts")
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, errors.Wrap(err, "generate token")
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) failLogin(ctx context.Context, email string) error {
	result, err := s.tracker.RecordFailure(ctx, email)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record login attempt")
		return errors.Wrap(models.ErrUnauthorized, "invalid email or password")
	}
	if result.Locked {
		log.Warn().Str("email", email).Time("unlock_at", result.UnlockAt).Msg("login locked after repeated failures")
		return &models.LockedError{UnlockAt: result.UnlockAt}
	}
	return errors.Wrap(models.ErrUnauthorized, fmt.Sprintf("invalid email or password, %d attempts remaining", result.RemainingAttempts))
}

// Me returns the account behind a token.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// CreateAdmin creates an admin account, or promotes an existing one.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Role = models.RoleAdmin
		return existing, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	in := RegisterInput{Name: name, Email: email, Password: password}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := &models.User{
		ID:       uuid.New().String(),
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
