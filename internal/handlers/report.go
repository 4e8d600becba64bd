package handlers

import (
	"net/http"

	"ChipTrack/internal/config"
	"ChipTrack/internal/service"

	"go.uber.org/zap"
)

// ReportHandler - отчёты для администратора.
type ReportHandler struct {
	ItemService *service.ItemService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewReportHandler(itemService *service.ItemService, logger *zap.SugaredLogger, cfg *config.Config) *ReportHandler {
	return &ReportHandler{ItemService: itemService, Logger: logger, Config: cfg}
}

// Revenue - выручка по техникам за выданные заказы.
func (h *ReportHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	rep, err := h.ItemService.Revenue(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, h.Config.IsDevelopment(), "Revenue", err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
