package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
		// Пусто - разрешен любой Origin
		CORSOrigins     []string      `yaml:"cors_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		Driver       string `yaml:"driver"` // postgres, sqlite
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`

	JWT struct {
		Secret     string        `yaml:"secret"`
		Issuer     string        `yaml:"issuer"`
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Subscription struct {
		// Сколько планов питания в месяц доступно без одобренной подписки
		FreeNutritionPlanLimit int    `yaml:"free_nutrition_plan_limit"`
		FreePlanName           string `yaml:"free_plan_name"`
	} `yaml:"subscription"`

	Chat struct {
		Queue         string `yaml:"queue"` // memory, amqp
		AMQPURL       string `yaml:"amqp_url"`
		QueueName     string `yaml:"queue_name"`
		BufferSize    int    `yaml:"buffer_size"`
		RetentionDays int    `yaml:"retention_days"`
		// MaxAttempts переотправок, после которых сообщение становится FAILED
		MaxAttempts int           `yaml:"max_attempts"`
		RetryAfter  time.Duration `yaml:"retry_after"`
	} `yaml:"chat"`

	Redis struct {
		Addr     string        `yaml:"addr"` // пусто - кэш выключен
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PlansTTL time.Duration `yaml:"plans_ttl"`
	} `yaml:"redis"`

	Email struct {
		Enabled      bool   `yaml:"enabled"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Storage struct {
		Type       string `yaml:"type"`      // database, local, cloudflare_r2
		BasePath   string `yaml:"base_path"` // local
		BaseURL    string `yaml:"base_url"`
		Bucket     string `yaml:"bucket"`
		Region     string `yaml:"region"`
		AccessKey  string `yaml:"access_key"`
		SecretKey  string `yaml:"secret_key"`
		Endpoint   string `yaml:"endpoint"`
		PublicRead bool   `yaml:"public_read"`
	} `yaml:"storage"`

	Upload struct {
		MaxPhotoSize int64    `yaml:"max_photo_size"`
		AllowedTypes []string `yaml:"allowed_types"`
		MaxDimension int      `yaml:"max_dimension"`
		MaxPixels    int      `yaml:"max_pixels"`
		ImageQuality int      `yaml:"image_quality"`
	} `yaml:"upload"`

	RateLimit struct {
		AuthRPS   float64 `yaml:"auth_rps"`
		AuthBurst int     `yaml:"auth_burst"`
	} `yaml:"rate_limit"`

	Cron struct {
		Enabled            bool   `yaml:"enabled"`
		TokenCleanup       string `yaml:"token_cleanup"`
		ChatRetention      string `yaml:"chat_retention"`
		SubscriptionExpiry string `yaml:"subscription_expiry"`
		ChatRetry          string `yaml:"chat_retry"`
	} `yaml:"cron"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

// Defaults - конфигурация, с которой сервер стартует без config.yaml
func Defaults() *Config {
	var cfg Config

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Env = "development"
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Database.Driver = "postgres"
	cfg.Database.MaxOpenConns = 25
	cfg.Database.MaxIdleConns = 5

	cfg.JWT.Issuer = "nutriplan"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour

	cfg.Subscription.FreeNutritionPlanLimit = 5
	cfg.Subscription.FreePlanName = "Free"

	cfg.Chat.Queue = "memory"
	cfg.Chat.QueueName = "chat.messages"
	cfg.Chat.BufferSize = 256
	cfg.Chat.MaxAttempts = 5
	cfg.Chat.RetryAfter = time.Minute

	cfg.Redis.PlansTTL = 10 * time.Minute

	cfg.Email.SMTPPort = 587
	cfg.Email.FromName = "NutriPlan"

	cfg.Storage.Type = "database"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/uploads"

	cfg.Upload.MaxPhotoSize = 5 * 1024 * 1024
	cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif"}
	cfg.Upload.MaxDimension = 1024
	cfg.Upload.MaxPixels = 40_000_000
	cfg.Upload.ImageQuality = 85

	cfg.RateLimit.AuthRPS = 5
	cfg.RateLimit.AuthBurst = 10

	cfg.Cron.Enabled = true
	cfg.Cron.TokenCleanup = "0 0 3 * * *"
	cfg.Cron.ChatRetention = "0 30 3 * * *"
	cfg.Cron.SubscriptionExpiry = "0 */10 * * * *"
	cfg.Cron.ChatRetry = "30 * * * * *"

	return &cfg
}

// Load читает .env, затем YAML (если файл есть), затем переменные окружения.
// Каждый следующий источник перекрывает предыдущий.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// работаем только на env
	default:
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database url is required (database.url or DATABASE_URL)")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt ttl values must be positive")
	}
	switch c.Chat.Queue {
	case "memory":
	case "amqp":
		if c.Chat.AMQPURL == "" {
			return errors.New("chat.amqp_url is required for amqp queue")
		}
	default:
		return fmt.Errorf("unsupported chat queue %q", c.Chat.Queue)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Server.Env, "SERVER_ENV")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setDuration(&cfg.JWT.AccessTTL, "JWT_ACCESS_TTL")
	setDuration(&cfg.JWT.RefreshTTL, "JWT_REFRESH_TTL")
	setInt(&cfg.Subscription.FreeNutritionPlanLimit, "FREE_NUTRITION_PLAN_LIMIT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Chat.AMQPURL, "AMQP_URL")
	if cfg.Chat.AMQPURL != "" && os.Getenv("AMQP_URL") != "" {
		cfg.Chat.Queue = "amqp"
	}
	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&cfg.FirstAdminEmail, "FIRST_ADMIN_EMAIL")
	setString(&cfg.FirstAdminPassword, "FIRST_ADMIN_PASSWORD")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
