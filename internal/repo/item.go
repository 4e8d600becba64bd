package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"ChipTrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository определяет контракт доступа к ремонтным заказам.
// Все методы, кроме ListAll и JobNumberExists, не видят удалённые записи.
type ItemRepository interface {
	Create(ctx context.Context, it *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	// FindForTracking ищет заказ по номеру и телефону клиента.
	FindForTracking(ctx context.Context, jobNumber, phoneNumber string) (*model.Item, error)
	// JobNumberExists учитывает и удалённые записи: уникальный индекс общий.
	JobNumberExists(ctx context.Context, jobNumber string) (bool, error)
	Update(ctx context.Context, it *model.Item) error
	SoftDelete(ctx context.Context, id string) error
	BulkUpdateStatus(ctx context.Context, ids []string, status model.Status) (int64, error)

	List(ctx context.Context, f ItemFilter) ([]model.Item, error)
	Count(ctx context.Context, f ItemFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)

	// ListAll возвращает все записи, включая удалённые (для резервной копии).
	ListAll(ctx context.Context) ([]model.Item, error)
	RevenueByTechnician(ctx context.Context) ([]RevenueRow, error)
}

// RevenueRow - выручка по выданным заказам одного техника.
type RevenueRow struct {
	TechnicianName string  `json:"technicianName"`
	Jobs           int64   `json:"jobs"`
	Revenue        float64 `json:"revenue"`
}

var sortColumns = map[string]string{
	SortCreatedAt:    "created_at",
	SortCustomerName: "customer_name",
	SortCost:         "cost",
	SortStatus:       "status",
}

// поля, участвующие в поиске
var searchColumns = []string{"customer_name", "brand", "job_number", "phone_number"}

// колонки, которые перезаписывает Update
var updatableColumns = []string{
	"job_number", "customer_name", "phone_number", "brand", "status",
	"issue", "repair_notes", "cost", "final_cost", "due_date",
	"status_history", "updated_at",
}

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepository создаёт gorm-реализацию ItemRepository.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) Create(ctx context.Context, it *model.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(it).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateJobNumber
		}
		return err
	}
	return nil
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) FindForTracking(ctx context.Context, jobNumber, phoneNumber string) (*model.Item, error) {
	var it model.Item
	err := r.db.WithContext(ctx).
		Where("job_number = ? AND phone_number = ? AND is_deleted = ?", jobNumber, phoneNumber, false).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) JobNumberExists(ctx context.Context, jobNumber string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Item{}).Where("job_number = ?", jobNumber).Count(&n).Error
	return n > 0, err
}

func (r *itemRepo) Update(ctx context.Context, it *model.Item) error {
	tx := r.db.WithContext(ctx).Model(it).
		Where("is_deleted = ?", false).
		Select(updatableColumns).
		Updates(it)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return ErrDuplicateJobNumber
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) SoftDelete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) BulkUpdateStatus(ctx context.Context, ids []string, status model.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	return tx.RowsAffected, tx.Error
}

func (r *itemRepo) List(ctx context.Context, f ItemFilter) ([]model.Item, error) {
	q := r.applyFilter(r.db.WithContext(ctx).Model(&model.Item{}), f)

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := " ASC"
	if f.SortDesc {
		dir = " DESC"
	}
	q = q.Order(col + dir)
	if col != "created_at" {
		q = q.Order("created_at DESC")
	}
	q = q.Order("id ASC")

	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var items []model.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) Count(ctx context.Context, f ItemFilter) (int64, error) {
	var n int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Item{}), f).Count(&n).Error
	return n, err
}

func (r *itemRepo) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Item{}).
		Select("status, COUNT(*) AS n").
		Where("is_deleted = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.Status]int64, len(rows))
	for _, row := range rows {
		out[model.Status(row.Status)] = row.N
	}
	return out, nil
}

func (r *itemRepo) ListAll(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) RevenueByTechnician(ctx context.Context) ([]RevenueRow, error) {
	var rows []RevenueRow
	err := r.db.WithContext(ctx).Model(&model.Item{}).
		Select("technician_name, COUNT(*) AS jobs, COALESCE(SUM(final_cost), 0) AS revenue").
		Where("is_deleted = ? AND status = ?", false, string(model.StatusDelivered)).
		Group("technician_name").
		Order("revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// applyFilter добавляет условия ItemFilter к запросу.
func (r *itemRepo) applyFilter(q *gorm.DB, f ItemFilter) *gorm.DB {
	q = q.Where("is_deleted = ?", false)

	if tokens := SearchTokens(f.Search); len(tokens) > 0 {
		if r.db.Dialector.Name() == "postgres" {
			q = q.Where(searchExpr+" @@ to_tsquery('simple', ?)", strings.Join(tokens, " | "))
		} else {
			cond, args := tokenLikeCondition(tokens)
			q = q.Where(cond, args...)
		}
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where("status IN ?", statuses)
	}

	if f.Technician != "" {
		q = q.Where("(technician_name = ? OR lower(technician_name) = ?)",
			f.Technician, strings.ToLower(f.Technician+AdminSuffix))
	}
	return q
}

// tokenLikeCondition эмулирует токенный поиск для SQLite: токен должен совпасть
// с целым словом в одном из полей. Разделители '-', '.', '/', ',' считаются пробелами.
func tokenLikeCondition(tokens []string) (string, []any) {
	var parts []string
	var args []any
	for _, col := range searchColumns {
		norm := "(' ' || replace(replace(replace(replace(lower(coalesce(" + col + ", '')), '-', ' '), '.', ' '), '/', ' '), ',', ' ') || ' ')"
		for _, tok := range tokens {
			parts = append(parts, norm+" LIKE ?")
			args = append(args, "% "+tok+" %")
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
