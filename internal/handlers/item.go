package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"ChipTrack/internal/config"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const itemNotFound = "Item not found"

var timeNow = time.Now

type ItemHandler struct {
	ItemService *service.ItemService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewItemHandler(itemService *service.ItemService, logger *zap.SugaredLogger, cfg *config.Config) *ItemHandler {
	return &ItemHandler{ItemService: itemService, Logger: logger, Config: cfg}
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

type bulkStatusResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

func (h *ItemHandler) fail(w http.ResponseWriter, op string, err error) {
	writeServiceError(w, h.Logger, h.Config.IsDevelopment(), op, err, itemNotFound)
}

// List - страница заказов с фильтрами, сортировкой и статистикой.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())
	q := r.URL.Query()

	// некорректные page/limit трактуются как значения по умолчанию
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	includeMetadata, _ := strconv.ParseBool(q.Get("includeMetadata"))

	res, err := h.ItemService.List(r.Context(), *p, service.ListQuery{
		Page:            page,
		Limit:           limit,
		Search:          q.Get("search"),
		StatusGroup:     q.Get("statusGroup"),
		Technician:      q.Get("technician"),
		SortBy:          q.Get("sortBy"),
		SortOrder:       q.Get("sortOrder"),
		IncludeMetadata: includeMetadata,
	})
	if err != nil {
		h.fail(w, "ListItems", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())
	it, err := h.ItemService.Get(r.Context(), *p, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "GetItem", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Create создаёт заказ от имени текущего пользователя.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())

	var req service.CreateItemInput
	if !decodeJSON(w, r, h.Logger, "CreateItem", &req) {
		return
	}

	it, err := h.ItemService.Create(r.Context(), *p, req, requestMeta(r))
	if err != nil {
		h.fail(w, "CreateItem", err)
		return
	}
	h.Logger.Infow("CreateItem: item created", "id", it.ID, "jobNumber", it.JobNumber, "technician", it.TechnicianName)
	writeJSON(w, http.StatusCreated, it)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())

	var req service.UpdateItemInput
	if !decodeJSON(w, r, h.Logger, "UpdateItem", &req) {
		return
	}

	it, err := h.ItemService.Update(r.Context(), *p, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "UpdateItem", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Delete - мягкое удаление: заказ пропадает из списков, но остаётся в резервной копии.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ItemService.Delete(r.Context(), id); err != nil {
		h.fail(w, "DeleteItem", err)
		return
	}
	h.Logger.Infow("DeleteItem: item deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !decodeJSON(w, r, h.Logger, "BulkUpdateStatus", &req) {
		return
	}

	n, err := h.ItemService.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		h.fail(w, "BulkUpdateStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkStatusResponse{ModifiedCount: n})
}

// Backup отдаёт все заказы, включая удалённые, файлом для скачивания.
func (h *ItemHandler) Backup(w http.ResponseWriter, r *http.Request) {
	items, err := h.ItemService.Backup(r.Context())
	if err != nil {
		h.fail(w, "Backup", err)
		return
	}
	name := fmt.Sprintf("chiptrack-backup-%s.json", timeNow().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	writeJSON(w, http.StatusOK, items)
}

// Track - публичная проверка статуса по номеру заказа и телефону.
func (h *ItemHandler) Track(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.ItemService.Track(r.Context(), q.Get("jobNumber"), q.Get("phoneNumber"))
	if err != nil {
		h.fail(w, "Track", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func requestMeta(r *http.Request) service.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}
