package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Database    DatabaseConfig   `mapstructure:"database"`
	JWT         JWTConfig        `mapstructure:"jwt"`
	Redis       RedisConfig      `mapstructure:"redis"`
	NATS        NATSConfig       `mapstructure:"nats"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Email       EmailConfig      `mapstructure:"email"`
	Donations   DonationsConfig  `mapstructure:"donations"`
	Moderation  ModerationConfig `mapstructure:"moderation"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Jobs        JobsConfig       `mapstructure:"jobs"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CorsOrigins     []string      `mapstructure:"cors_origins"`
	// Requests per minute per client IP on public write endpoints.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the gorm dialector. Driver is one of mysql, postgres, sqlite.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// StorageConfig selects where post images live. Driver is s3 or local.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	MaxImageBytes int64  `mapstructure:"max_image_bytes"`
	MaxPerPost    int    `mapstructure:"max_per_post"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3Region      string `mapstructure:"s3_region"`
	S3Prefix      string `mapstructure:"s3_prefix"`
	LocalDir      string `mapstructure:"local_dir"`
	LocalBaseURL  string `mapstructure:"local_base_url"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
	PublicURL    string `mapstructure:"public_url"`
}

// DonationsConfig controls reconciliation. ExcessPolicy is clamp or reject.
type DonationsConfig struct {
	ExcessPolicy string `mapstructure:"excess_policy"`
}

type ModerationConfig struct {
	FlagThreshold int `mapstructure:"flag_threshold"`
}

type AuthConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	AttemptWindow     time.Duration `mapstructure:"attempt_window"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
}

type JobsConfig struct {
	LoginSweepInterval  time.Duration `mapstructure:"login_sweep_interval"`
	DonorStatsInterval  time.Duration `mapstructure:"donor_stats_interval"`
	DonorStatsBatchSize int           `mapstructure:"donor_stats_batch_size"`
}

var configFile string

// SetConfigFile points LoadConfig at an explicit file instead of the search paths.
func SetConfigFile(path string) {
	configFile = path
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(path)
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// No file is fine, env vars and defaults still apply.
	}

	v.SetEnvPrefix("RELIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings that would make the service misbehave silently.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Donations.ExcessPolicy {
	case "clamp", "reject":
	default:
		return fmt.Errorf("unsupported donations.excess_policy %q", c.Donations.ExcessPolicy)
	}
	switch c.Storage.Driver {
	case "s3", "local":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Environment == "production" && c.JWT.Secret == "change-me" {
		return fmt.Errorf("jwt.secret must be set in production")
	}
	if c.Moderation.FlagThreshold < 1 {
		return fmt.Errorf("moderation.flag_threshold must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "user:password@tcp(localhost:3306)/reliefhub?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.ttl", "168h")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "reliefhub")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "reliefhub")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.max_image_bytes", 5<<20)
	v.SetDefault("storage.max_per_post", 5)
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_prefix", "post-images")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("storage.local_base_url", "/uploads")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 2525)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("email.from_email", "noreply@reliefhub.local")
	v.SetDefault("email.from_name", "ReliefHub")
	v.SetDefault("email.public_url", "http://localhost:3000")

	v.SetDefault("donations.excess_policy", "clamp")
	v.SetDefault("moderation.flag_threshold", 5)

	v.SetDefault("auth.max_failed_attempts", 5)
	v.SetDefault("auth.attempt_window", "15m")
	v.SetDefault("auth.lockout_duration", "30m")

	v.SetDefault("jobs.login_sweep_interval", "1h")
	v.SetDefault("jobs.donor_stats_interval", "24h")
	v.SetDefault("jobs.donor_stats_batch_size", 200)
}
