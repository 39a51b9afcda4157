package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/app"
	iauth "github.com/homegrid/homegrid/internal/auth"
	"github.com/homegrid/homegrid/internal/middleware"
	"github.com/homegrid/homegrid/internal/verification"
)

// Deps bundles the services the router mounts.
type Deps struct {
	DB           *gorm.DB
	JWT          *iauth.JWTService
	Sessions     *iauth.SessionService
	Verification *verification.Service
	RateStore    middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(cfg *app.Config, deps Deps) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Verification == nil {
		return nil, fmt.Errorf("verification service must be provided")
	}

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	// Basic rate limiting: 100 requests/minute per client+path
	r.Use(middleware.RateLimit(rateStore, 100, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg)
	registerAuthRoutes(r, deps)
	registerVerificationRoutes(r, deps, rateStore)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	return r, nil
}
