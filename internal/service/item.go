package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/cache"
	"ChipTrack/internal/model"
	"ChipTrack/internal/repo"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Параметры пагинации списка заказов.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var phoneRe = regexp.MustCompile(`^\d{10}$`)

// ItemService инкапсулирует бизнес-логику работы с ремонтными заказами.
type ItemService struct {
	items  repo.ItemRepository
	stats  cache.StatsCache
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewItemService создаёт сервис заказов. stats == nil - кэш в памяти с TTL по умолчанию.
func NewItemService(items repo.ItemRepository, stats cache.StatsCache, logger *zap.SugaredLogger) *ItemService {
	if stats == nil {
		stats = cache.NewMemoryStats(cache.DefaultTTL)
	}
	return &ItemService{items: items, stats: stats, logger: logger, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (s *ItemService) WithClock(now func() time.Time) *ItemService {
	s.now = now
	return s
}

// ListQuery - параметры списка заказов в том виде, в каком их прислал клиент.
type ListQuery struct {
	Page            int
	Limit           int
	Search          string
	StatusGroup     string
	Technician      string
	SortBy          string
	SortOrder       string
	IncludeMetadata bool
}

// ListResult - страница заказов вместе со статистикой.
type ListResult struct {
	Items       []model.Item      `json:"items"`
	CurrentPage int               `json:"currentPage"`
	TotalPages  int               `json:"totalPages"`
	TotalItems  int64             `json:"totalItems"`
	Stats       model.StatusStats `json:"stats"`
}

// List возвращает страницу заказов, общее число подходящих и статистику.
// Три запроса выполняются параллельно; первая ошибка отменяет остальные.
func (s *ItemService) List(ctx context.Context, p auth.Principal, q ListQuery) (*ListResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// смещение (page-1)*limit должно помещаться в int
	if maxPage := math.MaxInt32 / limit; page > maxPage {
		page = maxPage
	}

	f := repo.ItemFilter{
		Search:     strings.TrimSpace(q.Search),
		Technician: repo.TechnicianBaseName(q.Technician),
		SortBy:     repo.SanitizeSort(q.SortBy),
		SortDesc:   !strings.EqualFold(strings.TrimSpace(q.SortOrder), "asc"),
		Offset:     (page - 1) * limit,
		Limit:      limit,
	}
	if g := strings.TrimSpace(q.StatusGroup); g != "" {
		statuses, ok := model.StatusGroup(strings.ToLower(g)).Statuses()
		if !ok {
			return nil, invalid("Invalid status group")
		}
		f.Statuses = statuses
	}

	var (
		items []model.Item
		total int64
		stats model.StatusStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items.List(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.items.Count(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.Stats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []model.Item{}
	}
	if !(q.IncludeMetadata && p.IsAdmin()) {
		for i := range items {
			items[i].Metadata = nil
		}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListResult{
		Items:       items,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Stats:       stats,
	}, nil
}

// Stats возвращает статистику по группам статусов из кэша или пересчитывает её.
// Ошибки кэша не фатальны: статистика считается напрямую.
// Поколение берётся до подсчёта, поэтому результат, обогнанный инвалидацией, в кэш не попадёт.
func (s *ItemService) Stats(ctx context.Context) (model.StatusStats, error) {
	if cached, ok, err := s.stats.Get(ctx); err != nil {
		s.logger.Warnw("ItemService: stats cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}
	gen, genErr := s.stats.Generation(ctx)
	if genErr != nil {
		s.logger.Warnw("ItemService: stats cache generation read failed", "error", genErr)
	}

	counts, err := s.items.CountByStatus(ctx)
	if err != nil {
		return model.StatusStats{}, fmt.Errorf("count by status: %w", err)
	}
	stats := model.FoldStatusCounts(counts)
	if genErr == nil {
		if err := s.stats.Set(ctx, stats, gen); err != nil {
			s.logger.Warnw("ItemService: stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

func (s *ItemService) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warnw("ItemService: stats cache invalidate failed", "error", err)
	}
}

// Get возвращает один неудалённый заказ. Метаданные видит только администратор.
func (s *ItemService) Get(ctx context.Context, p auth.Principal, id string) (*model.Item, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return visibleTo(p, it), nil
}

// CreateItemInput - тело запроса создания заказа.
type CreateItemInput struct {
	JobNumber    string   `json:"jobNumber"`
	CustomerName string   `json:"customerName"`
	PhoneNumber  string   `json:"phoneNumber"`
	Brand        string   `json:"brand"`
	Issue        string   `json:"issue"`
	Cost         *float64 `json:"cost"`
	DueDate      *string  `json:"dueDate"`
}

// RequestMeta - сведения о запросе, сохраняемые в метаданных заказа.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Create проверяет ввод и создаёт заказ в статусе Received.
func (s *ItemService) Create(ctx context.Context, p auth.Principal, in CreateItemInput, meta RequestMeta) (*model.Item, error) {
	it := &model.Item{
		JobNumber:    strings.TrimSpace(in.JobNumber),
		CustomerName: strings.TrimSpace(in.CustomerName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Brand:        strings.TrimSpace(in.Brand),
		Issue:        strings.TrimSpace(in.Issue),
	}
	if in.Cost != nil {
		it.Cost = *in.Cost
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		it.DueDate = due
	}
	if err := validateItem(it); err != nil {
		return nil, err
	}

	exists, err := s.items.JobNumberExists(ctx, it.JobNumber)
	if err != nil {
		return nil, fmt.Errorf("check job number: %w", err)
	}
	if exists {
		return nil, ErrJobNumberExists
	}

	now := s.now().UTC()
	it.Status = model.StatusReceived
	it.TechnicianName = p.DisplayName
	it.StatusHistory = []model.StatusChange{{Status: model.StatusReceived, Note: "Job created", ChangedAt: now}}
	it.Metadata = buildMetadata(meta, p.Role, now)
	it.CreatedAt = now
	it.UpdatedAt = now

	if err := s.items.Create(ctx, it); err != nil {
		if errors.Is(err, repo.ErrDuplicateJobNumber) {
			return nil, ErrJobNumberExists
		}
		return nil, err
	}
	s.invalidateStats(ctx)
	return visibleTo(p, it), nil
}

// UpdateItemInput - частичное обновление заказа; nil означает «не менять».
type UpdateItemInput struct {
	JobNumber    *string  `json:"jobNumber"`
	CustomerName *string  `json:"customerName"`
	PhoneNumber  *string  `json:"phoneNumber"`
	Brand        *string  `json:"brand"`
	Issue        *string  `json:"issue"`
	RepairNotes  *string  `json:"repairNotes"`
	Cost         *float64 `json:"cost"`
	FinalCost    *float64 `json:"finalCost"`
	DueDate      *string  `json:"dueDate"`
	Status       *string  `json:"status"`
	StatusNote   *string  `json:"statusNote"`
}

// Update применяет изменения. Смена статуса добавляет ровно одну запись в историю.
func (s *ItemService) Update(ctx context.Context, p auth.Principal, id string, in UpdateItemInput) (*model.Item, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldJob := it.JobNumber

	setTrimmed(&it.JobNumber, in.JobNumber)
	setTrimmed(&it.CustomerName, in.CustomerName)
	setTrimmed(&it.PhoneNumber, in.PhoneNumber)
	setTrimmed(&it.Brand, in.Brand)
	setTrimmed(&it.Issue, in.Issue)
	setTrimmed(&it.RepairNotes, in.RepairNotes)
	if in.Cost != nil {
		it.Cost = *in.Cost
	}
	if in.FinalCost != nil {
		it.FinalCost = *in.FinalCost
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		it.DueDate = due
	}
	if err := validateItem(it); err != nil {
		return nil, err
	}

	if it.JobNumber != oldJob {
		exists, err := s.items.JobNumberExists(ctx, it.JobNumber)
		if err != nil {
			return nil, fmt.Errorf("check job number: %w", err)
		}
		if exists {
			return nil, ErrJobNumberExists
		}
	}

	statusChanged := false
	if in.Status != nil {
		st, ok := model.ParseStatus(*in.Status)
		if !ok {
			return nil, invalid("Invalid status")
		}
		if st != it.Status {
			note := ""
			if in.StatusNote != nil {
				note = strings.TrimSpace(*in.StatusNote)
			}
			appendStatus(it, st, note, s.now().UTC())
			statusChanged = true
		}
	}

	if err := s.items.Update(ctx, it); err != nil {
		if errors.Is(err, repo.ErrDuplicateJobNumber) {
			return nil, ErrJobNumberExists
		}
		return nil, err
	}
	if statusChanged {
		s.invalidateStats(ctx)
	}
	return visibleTo(p, it), nil
}

// Delete помечает заказ удалённым.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := s.items.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// BulkUpdateStatus меняет статус у всех найденных неудалённых заказов одним запросом.
// История статусов при этом не дополняется. Некорректные идентификаторы
// пропускаются так же, как несуществующие.
func (s *ItemService) BulkUpdateStatus(ctx context.Context, ids []string, status string) (int64, error) {
	seen := make(map[string]struct{}, len(ids))
	clean := make([]string, 0, len(ids))
	given := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		given++
		if !validID(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	if given == 0 {
		return 0, invalid("Item ids are required")
	}
	st, ok := model.ParseStatus(status)
	if !ok {
		return 0, invalid("Invalid status")
	}
	if len(clean) == 0 {
		return 0, nil
	}

	n, err := s.items.BulkUpdateStatus(ctx, clean, st)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidateStats(ctx)
	}
	return n, nil
}

// Backup возвращает все заказы, включая удалённые, с метаданными.
func (s *ItemService) Backup(ctx context.Context) ([]model.Item, error) {
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// TrackView - то, что видит клиент мастерской при проверке статуса.
type TrackView struct {
	JobNumber     string               `json:"jobNumber"`
	CustomerName  string               `json:"customerName"`
	Brand         string               `json:"brand"`
	Status        model.Status         `json:"status"`
	StatusHistory []model.StatusChange `json:"statusHistory"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Track ищет заказ по номеру и телефону клиента.
func (s *ItemService) Track(ctx context.Context, jobNumber, phoneNumber string) (*TrackView, error) {
	jobNumber = strings.TrimSpace(jobNumber)
	phoneNumber = strings.TrimSpace(phoneNumber)
	if jobNumber == "" || phoneNumber == "" {
		return nil, invalid("Job number and phone number are required")
	}
	it, err := s.items.FindForTracking(ctx, jobNumber, phoneNumber)
	if err != nil {
		return nil, err
	}
	history := it.StatusHistory
	if history == nil {
		history = []model.StatusChange{}
	}
	return &TrackView{
		JobNumber:     it.JobNumber,
		CustomerName:  it.CustomerName,
		Brand:         it.Brand,
		Status:        it.Status,
		StatusHistory: history,
		DueDate:       it.DueDate,
		UpdatedAt:     it.UpdatedAt,
	}, nil
}

// RevenueReport - выручка по выданным заказам.
type RevenueReport struct {
	Technicians  []repo.RevenueRow `json:"technicians"`
	TotalJobs    int64             `json:"totalJobs"`
	TotalRevenue float64           `json:"totalRevenue"`
	Stats        model.StatusStats `json:"stats"`
}

// Revenue собирает отчёт по техникам и текущую статистику.
func (s *ItemService) Revenue(ctx context.Context) (*RevenueReport, error) {
	rows, err := s.items.RevenueByTechnician(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	rep := &RevenueReport{Technicians: rows, Stats: stats}
	if rep.Technicians == nil {
		rep.Technicians = []repo.RevenueRow{}
	}
	for _, r := range rep.Technicians {
		rep.TotalJobs += r.Jobs
		rep.TotalRevenue += r.Revenue
	}
	return rep, nil
}

// validateItem проверяет обязательные поля, телефон и стоимость.
func validateItem(it *model.Item) error {
	if it.JobNumber == "" || it.CustomerName == "" || it.Brand == "" || it.PhoneNumber == "" {
		return invalid("Job number, customer name, brand and phone number are required")
	}
	if !phoneRe.MatchString(it.PhoneNumber) {
		return invalid("Phone number must be exactly 10 digits")
	}
	if it.Cost < 0 || it.FinalCost < 0 {
		return invalid("Cost must not be negative")
	}
	return nil
}

var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDueDate принимает RFC 3339 или YYYY-MM-DD; пустая строка сбрасывает дату.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid("Invalid due date")
}

// appendStatus переводит заказ в новый статус и дописывает историю;
// время не может уйти назад относительно последней записи.
func appendStatus(it *model.Item, st model.Status, note string, now time.Time) {
	at := now
	if last := it.LastStatusChange(); last != nil && last.ChangedAt.After(at) {
		at = last.ChangedAt
	}
	it.StatusHistory = append(it.StatusHistory, model.StatusChange{Status: st, Note: note, ChangedAt: at})
	it.Status = st
}

// validID отсекает идентификаторы, которые не могут быть ключом заказа.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func visibleTo(p auth.Principal, it *model.Item) *model.Item {
	if !p.IsAdmin() {
		it.Metadata = nil
	}
	return it
}

func buildMetadata(meta RequestMeta, role model.Role, now time.Time) *model.Metadata {
	md := &model.Metadata{
		IP:            meta.IP,
		UserAgent:     meta.UserAgent,
		Referrer:      meta.Referrer,
		CreatedByRole: role,
		CreatedAt:     now,
	}
	if meta.UserAgent == "" {
		return md
	}
	ua := useragent.New(meta.UserAgent)
	name, version := ua.Browser()
	md.Browser = strings.TrimSpace(name + " " + version)
	md.OS = ua.OS()
	switch {
	case ua.Bot():
		md.Device = "bot"
	case ua.Mobile():
		md.Device = "mobile"
	default:
		md.Device = "desktop"
	}
	return md
}
