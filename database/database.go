package database

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reliefhub-api/config"
	"reliefhub-api/models"
)

// Initialize opens the database configured in cfg and tunes its pool.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.NeedPost{},
		&models.PostImage{},
		&models.Donation{},
		&models.DonorProfile{},
		&models.PostFlag{},
		&models.Notification{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	addCustomIndexes(db)

	return nil
}

type customIndex struct {
	table string
	name  string
	ddl   string
}

var customIndexes = []customIndex{
	{"need_posts", "idx_need_posts_status_created", "CREATE INDEX idx_need_posts_status_created ON need_posts(status, created_at)"},
	{"donations", "idx_donations_donor_created", "CREATE INDEX idx_donations_donor_created ON donations(donor_id, created_at)"},
	{"notifications", "idx_notifications_user_read", "CREATE INDEX idx_notifications_user_read ON notifications(user_id, is_read, created_at)"},
}

func addCustomIndexes(db *gorm.DB) {
	for _, idx := range customIndexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		if err := db.Exec(idx.ddl).Error; err != nil {
			log.Warn().Err(err).Str("index", idx.name).Msg("could not create index")
		}
	}
}
