package cmd

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"reliefhub-api/cache"
	"reliefhub-api/config"
	"reliefhub-api/database"
	"reliefhub-api/messaging"
	"reliefhub-api/repositories"
	"reliefhub-api/routes"
	"reliefhub-api/services"
	"reliefhub-api/storage"
)

type imageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// app holds the wired services shared by the commands.
type app struct {
	cfg   config.Config
	db    *gorm.DB
	redis *redis.Client
	nats  *messaging.NATSPublisher

	tokens        *services.TokenManager
	tracker       *services.LoginAttemptTracker
	auth          *services.AuthService
	posts         *services.PostService
	donations     *services.DonationService
	moderation    *services.ModerationService
	donorStats    *services.DonorStatsService
	notifications *services.NotificationService

	uploadsDir  string
	uploadsPath string
}

// openDatabase connects and migrates.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	postRepo := repositories.NewPostRepository(db)
	donationRepo := repositories.NewDonationRepository(db)
	profileRepo := repositories.NewDonorProfileRepository(db)
	flagRepo := repositories.NewFlagRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Login attempts are shared through redis when several instances run.
	var attempts services.AttemptStore = services.NewMemoryAttemptStore()
	if cfg.Redis.Enabled {
		a.redis, err = cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		attempts = cache.NewRedisAttemptStore(a.redis, cfg.Redis.Prefix)
	}

	var events services.EventPublisher = messaging.NopPublisher{}
	if cfg.NATS.Enabled {
		a.nats, err = messaging.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		events = a.nats
	}

	var images imageStore
	switch cfg.Storage.Driver {
	case "s3":
		images, err = storage.NewS3ImageStore(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3Prefix)
	default:
		var local *storage.LocalImageStore
		local, err = storage.NewLocalImageStore(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
		if err == nil {
			images = local
			a.uploadsDir = local.Dir()
			a.uploadsPath = cfg.Storage.LocalBaseURL
		}
	}
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "init image storage")
	}

	mailer := services.NewEmailService(cfg.Email)

	// Services
	a.tokens = services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	a.tracker = services.NewLoginAttemptTracker(attempts, services.LoginPolicy{
		MaxAttempts: cfg.Auth.MaxFailedAttempts,
		Window:      cfg.Auth.AttemptWindow,
		Lockout:     cfg.Auth.LockoutDuration,
	})
	a.auth = services.NewAuthService(userRepo, a.tokens, a.tracker, mailer)
	a.notifications = services.NewNotificationService(notificationRepo, userRepo, mailer, events)
	a.donorStats = services.NewDonorStatsService(profileRepo, donationRepo)
	a.posts = services.NewPostService(postRepo, images, services.PostServiceConfig{
		MaxImageBytes:    cfg.Storage.MaxImageBytes,
		MaxImagesPerPost: cfg.Storage.MaxPerPost,
	})
	a.donations = services.NewDonationService(donationRepo, a.notifications, a.donorStats, events,
		services.ExcessPolicy(cfg.Donations.ExcessPolicy))
	a.moderation = services.NewModerationService(flagRepo, postRepo, donationRepo, a.notifications,
		cfg.Moderation.FlagThreshold)

	return a, nil
}

func (a *app) routes() routes.Dependencies {
	return routes.Dependencies{
		Config:        &a.cfg,
		Tokens:        a.tokens,
		Auth:          a.auth,
		Posts:         a.posts,
		Donations:     a.donations,
		Moderation:    a.moderation,
		DonorStats:    a.donorStats,
		Notifications: a.notifications,
		UploadsDir:    a.uploadsDir,
		UploadsPath:   a.uploadsPath,
	}
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
