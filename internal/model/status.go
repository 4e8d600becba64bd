package model

import "strings"

// Status - статус ремонтного заказа.
type Status string

const (
	StatusReceived        Status = "Received"
	StatusSentToService   Status = "Sent to Service"
	StatusInProgress      Status = "In Progress"
	StatusWaitingForParts Status = "Waiting for Parts"
	StatusReady           Status = "Ready"
	StatusDelivered       Status = "Delivered"
	StatusReturn          Status = "Return"
	StatusPending         Status = "Pending"
)

// AllStatuses в порядке отображения.
var AllStatuses = []Status{
	StatusReceived,
	StatusSentToService,
	StatusInProgress,
	StatusWaitingForParts,
	StatusReady,
	StatusDelivered,
	StatusReturn,
	StatusPending,
}

// Valid проверяет, что статус входит в перечисление.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus ищет статус без учёта регистра.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, v := range AllStatuses {
		if strings.EqualFold(string(v), s) {
			return v, true
		}
	}
	return "", false
}

// StatusGroup - укрупнённая группа статусов для фильтров дашборда.
type StatusGroup string

const (
	GroupInProgress StatusGroup = "in-progress"
	GroupReady      StatusGroup = "ready"
	GroupReturned   StatusGroup = "returned"
)

var groupStatuses = map[StatusGroup][]Status{
	GroupInProgress: {StatusReceived, StatusInProgress, StatusWaitingForParts, StatusSentToService},
	GroupReady:      {StatusReady, StatusDelivered},
	GroupReturned:   {StatusPending, StatusReturn},
}

// Statuses возвращает копию списка статусов группы; ok=false для неизвестной группы.
func (g StatusGroup) Statuses() ([]Status, bool) {
	list, ok := groupStatuses[g]
	if !ok {
		return nil, false
	}
	out := make([]Status, len(list))
	copy(out, list)
	return out, true
}

// GroupOf возвращает группу, в которую входит статус.
func GroupOf(s Status) (StatusGroup, bool) {
	for g, list := range groupStatuses {
		for _, v := range list {
			if v == s {
				return g, true
			}
		}
	}
	return "", false
}

// StatusStats - агрегированные счётчики по группам.
type StatusStats struct {
	InProgress int64 `json:"inProgress"`
	Ready      int64 `json:"ready"`
	Returned   int64 `json:"returned"`
	Total      int64 `json:"total"`
}

// FoldStatusCounts сворачивает счётчики по статусам в счётчики по группам.
func FoldStatusCounts(counts map[Status]int64) StatusStats {
	var st StatusStats
	for s, n := range counts {
		st.Total += n
		g, ok := GroupOf(s)
		if !ok {
			continue
		}
		switch g {
		case GroupInProgress:
			st.InProgress += n
		case GroupReady:
			st.Ready += n
		case GroupReturned:
			st.Returned += n
		}
	}
	return st
}
