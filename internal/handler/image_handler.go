package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/auth"
	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/service"
	"github.com/prn-tf/photoshare/internal/storage"
)

// ImageHandler serves the /images routes.
type ImageHandler struct {
	imageService  *service.ImageService
	uploadService *service.UploadService
	logger        zerolog.Logger
}

// ImageHandlerConfig contains dependencies for ImageHandler.
type ImageHandlerConfig struct {
	ImageService  *service.ImageService
	UploadService *service.UploadService
	Logger        zerolog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(cfg ImageHandlerConfig) *ImageHandler {
	return &ImageHandler{
		imageService:  cfg.ImageService,
		uploadService: cfg.UploadService,
		logger:        cfg.Logger.With().Str("handler", "image").Logger(),
	}
}

// RegisterRoutes registers image routes.
func (h *ImageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/images", func(r chi.Router) {
		r.Get("/", h.handleListPublic)
		r.Post("/", h.handleConfirmUpload)
		r.Post("/presigned", h.handlePresign)

		r.Route("/{imageId}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDelete)
			r.Patch("/like", h.handleLike)
			r.Patch("/unlike", h.handleUnlike)
		})
	})
}

// =============================================================================
// Request/Response Types
// =============================================================================

type presignRequest struct {
	ContentTypes []string `json:"contentTypes"`
}

type presignResponseItem struct {
	ImageKey  string                   `json:"imageKey"`
	Presigned *storage.PresignedUpload `json:"presigned"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

type confirmRequestItem struct {
	ImageKey     string `json:"imageKey"`
	OriginalName string `json:"originalname"`
}

type confirmRequest struct {
	Images []confirmRequestItem `json:"images"`
	Public bool                 `json:"public"`
}

// confirmResponseItem carries either the created image or the reason the
// item failed.
type confirmResponseItem struct {
	ImageKey string        `json:"imageKey"`
	Image    *domain.Image `json:"image"`
	Message  string        `json:"message,omitempty"`
}

type confirmResponse struct {
	Images []confirmResponseItem `json:"images"`
}

type deleteResponse struct {
	Message string        `json:"message"`
	Image   *domain.Image `json:"image,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (h *ImageHandler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.ListPublic(r.Context(), r.URL.Query().Get("lastid"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, images)
}

func (h *ImageHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	img, err := h.imageService.GetByID(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, img)
}

func (h *ImageHandler) handlePresign(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, r, h.logger, domain.ErrAuthenticationRequired)
		return
	}

	var req presignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	slots, err := h.uploadService.RequestUploadSlots(r.Context(), identity, req.ContentTypes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]presignResponseItem, len(slots))
	for i, slot := range slots {
		resp[i] = presignResponseItem{
			ImageKey:  slot.ImageKey,
			Presigned: slot.Presigned,
			ExpiresAt: slot.ExpiresAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ImageHandler) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, r, h.logger, domain.ErrAuthenticationRequired)
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]service.ConfirmItem, len(req.Images))
	for i, img := range req.Images {
		items[i] = service.ConfirmItem{ImageKey: img.ImageKey, OriginalName: img.OriginalName}
	}

	results, err := h.uploadService.ConfirmUpload(r.Context(), identity, service.ConfirmUploadInput{
		Items:  items,
		Public: req.Public,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := confirmResponse{Images: make([]confirmResponseItem, len(results))}
	for i, result := range results {
		item := confirmResponseItem{ImageKey: result.ImageKey, Image: result.Image}
		if result.Err != nil {
			item.Message = itemErrorMessage(result.Err)
		}
		resp.Images[i] = item
	}

	writeJSON(w, http.StatusOK, resp)
}

// itemErrorMessage hides infrastructure details of a failed confirm item.
func itemErrorMessage(err error) string {
	if domain.IsDomainError(err) {
		return err.Error()
	}
	return internalErrorMessage
}

func (h *ImageHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.imageService.DeleteByID(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if out.AlreadyDeleted {
		writeMessage(w, http.StatusOK, "the requested image was already deleted")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Message: "the requested image was deleted",
		Image:   out.Image,
	})
}

func (h *ImageHandler) handleLike(w http.ResponseWriter, r *http.Request) {
	img, err := h.imageService.Like(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, img)
}

func (h *ImageHandler) handleUnlike(w http.ResponseWriter, r *http.Request) {
	img, err := h.imageService.Unlike(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, img)
}
