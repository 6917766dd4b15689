package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/auth"
	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/service"
)

// UserHandler serves the /users routes.
type UserHandler struct {
	userService  *service.UserService
	imageService *service.ImageService
	logger       zerolog.Logger
}

// UserHandlerConfig contains dependencies for UserHandler.
type UserHandlerConfig struct {
	UserService  *service.UserService
	ImageService *service.ImageService
	Logger       zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(cfg UserHandlerConfig) *UserHandler {
	return &UserHandler{
		userService:  cfg.UserService,
		imageService: cfg.ImageService,
		logger:       cfg.Logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers user routes.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Patch("/login", h.handleLogin)
		r.Patch("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Get("/me/images", h.handleMyImages)
	})
}

// =============================================================================
// Request/Response Types
// =============================================================================

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message   string    `json:"message"`
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse is returned by login and by the identity echo.
type sessionResponse struct {
	Message   string    `json:"message"`
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
	UserID    int64     `json:"userId"`
}

// =============================================================================
// Handlers
// =============================================================================

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.userService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Message:   "user registered",
		SessionID: out.SessionID,
		Name:      out.Name,
	})
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.userService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Message:   "user validated",
		SessionID: out.SessionID,
		Name:      out.Name,
		UserID:    out.UserID,
	})
}

func (h *UserHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Logout(r.Context(), auth.IdentityFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "user is logged out.")
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, r, h.logger, domain.ErrAuthenticationRequired)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Message:   "user validated",
		SessionID: identity.SessionID,
		Name:      identity.User.Name,
		UserID:    identity.User.ID,
	})
}

func (h *UserHandler) handleMyImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.ListOwnedBy(r.Context(), auth.IdentityFromContext(r.Context()), r.URL.Query().Get("lastid"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, images)
}
