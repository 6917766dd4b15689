// Package handler provides the HTTP API for Photoshare.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/auth"
	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/metrics"
	"github.com/prn-tf/photoshare/internal/service"
)

// RouterConfig contains everything the HTTP API is built from.
type RouterConfig struct {
	UserService   *service.UserService
	ImageService  *service.ImageService
	UploadService *service.UploadService

	Authenticator *auth.Authenticator
	AuthConfig    auth.Config

	// Health is pinged by GET /health. Optional.
	Health HealthChecker

	// Metrics instruments every request. Optional.
	Metrics *metrics.Metrics

	CORS config.CORSConfig

	// MaxBodySize caps JSON request bodies in bytes. Zero means no cap.
	MaxBodySize int64

	Logger zerolog.Logger
}

// NewRouter builds the HTTP handler serving the whole API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger.With().Str("component", "router").Logger()

	authConfig := cfg.AuthConfig
	if authConfig.SessionHeader == "" {
		authConfig.SessionHeader = auth.DefaultSessionHeader
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.Middleware)
	r.Use(cors(cfg.CORS, authConfig.SessionHeader))
	r.Use(maxBodySize(cfg.MaxBodySize))
	r.Use(auth.Middleware(cfg.Authenticator, authConfig))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Method(http.MethodGet, "/health", newHealthHandler(cfg.Health, cfg.Logger))

	NewUserHandler(UserHandlerConfig{
		UserService:  cfg.UserService,
		ImageService: cfg.ImageService,
		Logger:       cfg.Logger,
	}).RegisterRoutes(r)

	NewImageHandler(ImageHandlerConfig{
		ImageService:  cfg.ImageService,
		UploadService: cfg.UploadService,
		Logger:        cfg.Logger,
	}).RegisterRoutes(r)

	return r
}
