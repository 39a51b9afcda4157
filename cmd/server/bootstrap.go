package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/api"
	"github.com/homegrid/homegrid/internal/app"
	"github.com/homegrid/homegrid/internal/app/maintenance"
	iauth "github.com/homegrid/homegrid/internal/auth"
	"github.com/homegrid/homegrid/internal/cache"
	"github.com/homegrid/homegrid/internal/database"
	"github.com/homegrid/homegrid/internal/middleware"
	"github.com/homegrid/homegrid/internal/notify"
	"github.com/homegrid/homegrid/internal/verification"
	"github.com/homegrid/homegrid/pkg/logger"
	"github.com/homegrid/homegrid/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	SessionSvc *iauth.SessionService
	Verifier   *verification.Service
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	var sharedCache cache.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
		} else {
			sharedCache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	sender, err := buildSender(ctx, cfg, stack.DB, log)
	if err != nil {
		return nil, err
	}

	stack.Verifier = verification.NewService(stack.DB, sender, cfg.Verification.Policy(),
		verification.WithCooldown(sharedCache, cfg.Verification.CooldownWindow()),
		verification.WithCodeEcho(cfg.Verification.EchoCodes))

	stack.Cleaner = maintenance.NewCleaner(stack.SessionSvc, stack.Verifier)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.RateStore = middleware.NewCacheRateStore(sharedCache)

	stack.Router, err = api.NewRouter(cfg, api.Deps{
		DB:           stack.DB,
		JWT:          jwtSvc,
		Sessions:     stack.SessionSvc,
		Verification: stack.Verifier,
		RateStore:    stack.RateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildSender assembles the notification router from the configured
// channels and wraps it with the audit recorder. Channels left disabled
// reject dispatches, which surfaces as a delivery failure to the caller.
func buildSender(ctx context.Context, cfg *app.Config, db *gorm.DB, log *zap.Logger) (verification.Sender, error) {
	router := notify.NewRouter()

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	router.Register(verification.ChannelEmail, notify.NewEmailSender(mailer))
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; email verification codes cannot be delivered")
	}

	if cfg.SMS.Enabled {
		client, err := notify.NewSNSClient(ctx, cfg.SMS.Region)
		if err != nil {
			return nil, fmt.Errorf("initialise sns client: %w", err)
		}
		router.Register(verification.ChannelSMS, notify.NewSMSSender(client))
	}

	if cfg.WhatsApp.Enabled {
		if strings.TrimSpace(cfg.WhatsApp.AccessToken) == "" {
			return nil, errors.New("whatsapp.access_token must be configured when whatsapp is enabled")
		}
		router.Register(verification.ChannelWhatsApp, notify.NewWhatsAppSender(cfg.WhatsApp.WhatsAppSenderConfig()))
	}

	return notify.NewRecorder(db, router), nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	dbCfg.Driver = strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if dbCfg.Driver == "" {
		dbCfg.Driver = "sqlite"
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
