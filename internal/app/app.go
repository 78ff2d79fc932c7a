package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kobofi/kobopay/internal/cache"
	"github.com/kobofi/kobopay/internal/config"
	"github.com/kobofi/kobopay/internal/env"
	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/helper"
	"github.com/kobofi/kobopay/internal/payment"
	"github.com/kobofi/kobopay/internal/repository"
	"github.com/kobofi/kobopay/internal/smtp"
	"github.com/kobofi/kobopay/internal/stream"

	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	Cache        *cache.Cache
	Kafka        *stream.KafkaStream
	Payments     *payment.Service
	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Driver = env.GetString("DB_DRIVER", "postgres")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Kobopay <no_reply@example.org>")

	cfg.Redis.Addr = env.GetString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Db = env.GetInt("REDIS_DB", 0)

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	// The in-memory backend exists for tests and local development;
	// everything else runs on Postgres.
	var db repository.Database
	var err error
	if cfg.Db.Driver == "memory" {
		db = repository.NewInMemory()
	} else {
		db, err = repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Mailer: mailer,
	}

	app.helper = helper.New(&cfg.BaseURL, &app.WG, logger)
	app.errorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger, app.helper)
	app.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Db)
	app.Kafka = stream.New(cfg.KafkaServers)
	app.Payments = payment.New(db, app.Cache, app.Kafka, logger)

	return app, nil
}

func (app *Application) Helper() *helper.HelperRepository {
	return app.helper
}
