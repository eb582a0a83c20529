package main

import (
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sushihentaime/blogcms/internal/blogservice"
	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/mailservice"
	"github.com/sushihentaime/blogcms/internal/storage"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

type application struct {
	config          *Config
	logger          *slog.Logger
	userService     *userservice.UserService
	postService     *blogservice.PostService
	categoryService *blogservice.CategoryService
	mailService     *mailservice.MailService
	storage         *storage.LocalStorage
	registry        *prometheus.Registry
	metrics         *metrics

	limiter     *clientLimiter
	limiterOnce sync.Once
}

func newLogger(cfg *Config) *slog.Logger {
	if cfg.isProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// newApplication wires the services. broker may be nil, which disables registration events.
func newApplication(cfg *Config, logger *slog.Logger, db *sql.DB, broker *common.MessageBroker) (*application, error) {
	store, err := storage.NewLocalStorage(cfg.Media.Root, cfg.Media.URL)
	if err != nil {
		return nil, err
	}

	var producer common.MessageProducer
	if broker != nil {
		producer = broker
	}

	tokens := userservice.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	cache := common.NewCache(cfg.UserCacheTTL, 2*cfg.UserCacheTTL)

	registry := prometheus.NewRegistry()

	app := &application{
		config:          cfg,
		logger:          logger,
		userService:     userservice.NewUserService(db, producer, cache, tokens, store, logger),
		postService:     blogservice.NewPostService(db, store),
		categoryService: blogservice.NewCategoryService(db),
		storage:         store,
		registry:        registry,
		metrics:         newMetrics(registry),
	}

	if broker != nil && cfg.mailEnabled() {
		app.mailService = mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Port, logger)
	}

	return app, nil
}

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = ".env"
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	db, err := common.NewDB(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	m, err := common.MigrateDB(common.DSN(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name))
	if err != nil {
		logger.Error("failed to migrate the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	m.Close()

	var broker *common.MessageBroker
	if cfg.brokerEnabled() {
		broker, err = common.NewMessageBroker(common.BrokerURI(cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port))
		if err != nil {
			logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer broker.Close()

		err = common.SetupUserExchange(broker)
		if err != nil {
			logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Info("message broker not configured, welcome emails are disabled")
	}

	app, err := newApplication(cfg, logger, db, broker)
	if err != nil {
		logger.Error("failed to initialize the application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if app.mailService != nil {
		err = app.mailService.SendWelcomeEmail()
		if err != nil {
			logger.Error("failed to start the mail consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer app.mailService.Close()
	}

	err = app.serve(":" + cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
