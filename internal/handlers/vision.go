package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"ChipTrack/internal/config"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/vision"

	"go.uber.org/zap"
)

const imageField = "image"

// VisionHandler распознаёт фотографию бланка заказа.
type VisionHandler struct {
	Extractor vision.Extractor
	Logger    *zap.SugaredLogger
	Config    *config.Config
}

func NewVisionHandler(extractor vision.Extractor, logger *zap.SugaredLogger, cfg *config.Config) *VisionHandler {
	return &VisionHandler{Extractor: extractor, Logger: logger, Config: cfg}
}

type extractRequest struct {
	Image string `json:"image"`
}

// Extract принимает изображение (multipart-поле image или JSON с data URI)
// и возвращает распознанные поля.
func (h *VisionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if h.Extractor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "OCR service not configured")
		return
	}

	maxBytes := int64(h.Config.VisionMaxMB) << 20
	if maxBytes <= 0 {
		maxBytes = int64(config.DefaultVisionMaxMB) << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	data, err := h.readImage(r, maxBytes)
	if err != nil {
		h.Logger.Warnw("Vision: bad image upload", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Image is required")
		return
	}

	img, err := vision.PrepareImage(data, vision.DefaultMaxWidth)
	if err != nil {
		h.Logger.Warnw("Vision: cannot decode image", "error", err)
		middleware.WriteError(w, http.StatusBadRequest, "Invalid image")
		return
	}

	ex, err := h.Extractor.Extract(r.Context(), img)
	if err != nil {
		h.writeExtractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (h *VisionHandler) readImage(r *http.Request, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile(imageField)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, vision.ErrInvalidImage
		}
		return data, nil
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	data, _, err := vision.DecodeDataURI(req.Image)
	return data, err
}

func (h *VisionHandler) writeExtractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vision.ErrInvalidImage):
		h.Logger.Warnw("Vision: image rejected", "error", err)
		middleware.WriteError(w, http.StatusBadRequest, "Invalid image")
	case errors.Is(err, vision.ErrInvalidOutput):
		h.Logger.Warnw("Vision: unusable model output", "error", err)
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not read the job sheet")
	case errors.Is(err, vision.ErrQuotaExceeded):
		h.Logger.Warnw("Vision: quota exceeded", "error", err)
		middleware.WriteError(w, http.StatusTooManyRequests, "OCR quota exceeded, please try again later")
	case errors.Is(err, vision.ErrInvalidCredentials):
		h.Logger.Errorw("Vision: credentials rejected", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "OCR service misconfigured")
	case errors.Is(err, vision.ErrNotConfigured):
		middleware.WriteError(w, http.StatusServiceUnavailable, "OCR service not configured")
	default:
		h.Logger.Errorw("Vision: extraction failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "OCR extraction failed")
	}
}
