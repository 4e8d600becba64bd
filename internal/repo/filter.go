package repo

import (
	"strings"
	"unicode"

	"ChipTrack/internal/model"
)

// Поля сортировки, допустимые в ItemFilter.SortBy.
const (
	SortCreatedAt    = "createdAt"
	SortCustomerName = "customerName"
	SortCost         = "cost"
	SortStatus       = "status"
)

// AdminSuffix - исторический суффикс отображаемого имени администратора.
const AdminSuffix = " (Admin)"

// ItemFilter - уже нормализованный запрос списка заказов.
// Удалённые записи исключаются всегда.
type ItemFilter struct {
	Search     string         // полнотекстовый поиск по токенам
	Statuses   []model.Status // пусто - без ограничения
	Technician string         // базовое имя техника, без " (Admin)"
	SortBy     string         // одно из Sort*
	SortDesc   bool
	Offset     int
	Limit      int
}

// SanitizeSort возвращает поле сортировки из белого списка.
func SanitizeSort(s string) string {
	switch strings.TrimSpace(s) {
	case SortCustomerName:
		return SortCustomerName
	case SortCost:
		return SortCost
	case SortStatus:
		return SortStatus
	default:
		return SortCreatedAt
	}
}

// TechnicianBaseName отрезает суффикс " (Admin)" без учёта регистра.
func TechnicianBaseName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= len(AdminSuffix) && strings.EqualFold(name[len(name)-len(AdminSuffix):], AdminSuffix) {
		return strings.TrimSpace(name[:len(name)-len(AdminSuffix)])
	}
	return name
}

// SearchTokens разбивает поисковую строку на токены (буквы и цифры), в нижнем регистре.
func SearchTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
