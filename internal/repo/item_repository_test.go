package repo

import (
	"context"
	"testing"
	"time"

	"ChipTrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// хелпер для создания базового item
func mkItem(job, customer, brand, phone string, status model.Status, tech string, minute int) *model.Item {
	created := baseTime.Add(time.Duration(minute) * time.Minute)
	return &model.Item{
		JobNumber:      job,
		CustomerName:   customer,
		PhoneNumber:    phone,
		Brand:          brand,
		Status:         status,
		TechnicianName: tech,
		StatusHistory:  []model.StatusChange{{Status: status, Note: "Job created", ChangedAt: created}},
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func seedItems(t *testing.T, r ItemRepository, items ...*model.Item) {
	t.Helper()
	for _, it := range items {
		require.NoError(t, r.Create(context.Background(), it))
	}
}

func jobNumbers(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.JobNumber)
	}
	return out
}

func TestItemRepository_Create_GetByID(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	it := mkItem("JOB-1", "Alice", "Dell", "9000000000", model.StatusReceived, "Rakesh", 0)
	it.Metadata = &model.Metadata{IP: "10.0.0.1", CreatedByRole: model.RoleUser}
	require.NoError(t, r.Create(ctx, it))
	assert.NotEmpty(t, it.ID)

	got, err := r.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "JOB-1", got.JobNumber)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, "Job created", got.StatusHistory[0].Note)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "10.0.0.1", got.Metadata.IP)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemRepository_DuplicateJobNumber(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	seedItems(t, r, mkItem("JOB-1", "Alice", "Dell", "9000000000", model.StatusReceived, "Rakesh", 0))
	err := r.Create(ctx, mkItem("JOB-1", "Bob", "HP", "9000000001", model.StatusReceived, "Rakesh", 1))
	assert.ErrorIs(t, err, ErrDuplicateJobNumber)

	ok, err := r.JobNumberExists(ctx, "JOB-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.JobNumberExists(ctx, "JOB-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestItemRepository_SoftDelete(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	it := mkItem("JOB-1", "Alice", "Dell", "9000000000", model.StatusReceived, "Rakesh", 0)
	seedItems(t, r, it)

	require.NoError(t, r.SoftDelete(ctx, it.ID))
	// повторное удаление - не найдено
	assert.ErrorIs(t, r.SoftDelete(ctx, it.ID), ErrNotFound)

	_, err := r.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindForTracking(ctx, "JOB-1", "9000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := r.Count(ctx, ItemFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	// номер остаётся занятым
	ok, err := r.JobNumberExists(ctx, "JOB-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// резервная копия видит удалённые записи
	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDeleted)
}

func TestItemRepository_Update(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	it := mkItem("JOB-1", "Alice", "Dell", "9000000000", model.StatusReceived, "Rakesh", 0)
	seedItems(t, r, it)

	it.Status = model.StatusReady
	it.FinalCost = 0
	it.RepairNotes = "replaced battery"
	it.StatusHistory = append(it.StatusHistory, model.StatusChange{Status: model.StatusReady, ChangedAt: baseTime.Add(time.Hour)})
	require.NoError(t, r.Update(ctx, it))

	got, err := r.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, got.Status)
	assert.Equal(t, "replaced battery", got.RepairNotes)
	assert.Len(t, got.StatusHistory, 2)
	assert.Equal(t, "Rakesh", got.TechnicianName)

	require.NoError(t, r.SoftDelete(ctx, it.ID))
	assert.ErrorIs(t, r.Update(ctx, it), ErrNotFound)
}

func TestItemRepository_FindForTracking(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	seedItems(t, r, mkItem("JOB-1", "Alice", "Dell", "9000000000", model.StatusReceived, "Rakesh", 0))

	got, err := r.FindForTracking(ctx, "JOB-1", "9000000000")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.CustomerName)

	_, err = r.FindForTracking(ctx, "JOB-1", "9000000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	seedItems(t, r,
		mkItem("JOB-1", "Alice Smith", "Dell", "9000000001", model.StatusReceived, "Rakesh", 0),
		mkItem("JOB-2", "Bob", "HP", "9000000002", model.StatusReady, "Shyam (Admin)", 1),
		mkItem("JOB-3", "Carol", "Dell Inspiron", "9000000003", model.StatusReturn, "Shyam", 2),
		mkItem("JOB-4", "Dellon", "Lenovo", "9000000004", model.StatusDelivered, "Rakesh", 3),
	)

	cases := []struct {
		name string
		f    ItemFilter
		want []string
	}{
		{"all newest first", ItemFilter{SortDesc: true}, []string{"JOB-4", "JOB-3", "JOB-2", "JOB-1"}},
		{"search whole token", ItemFilter{Search: "dell", SortDesc: true}, []string{"JOB-3", "JOB-1"}},
		{"search any token", ItemFilter{Search: "bob carol", SortDesc: true}, []string{"JOB-3", "JOB-2"}},
		{"search phone", ItemFilter{Search: "9000000002"}, []string{"JOB-2"}},
		{"group ready", ItemFilter{Statuses: []model.Status{model.StatusReady, model.StatusDelivered}}, []string{"JOB-2", "JOB-4"}},
		{"technician with admin suffix", ItemFilter{Technician: "Shyam"}, []string{"JOB-2", "JOB-3"}},
		{"search and group", ItemFilter{Search: "dell", Statuses: []model.Status{model.StatusReturn}}, []string{"JOB-3"}},
		{"sort by customer", ItemFilter{SortBy: SortCustomerName}, []string{"JOB-1", "JOB-2", "JOB-3", "JOB-4"}},
		{"page", ItemFilter{SortDesc: true, Offset: 1, Limit: 2}, []string{"JOB-3", "JOB-2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := r.List(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, jobNumbers(items))
		})
	}

	n, err := r.Count(ctx, ItemFilter{Search: "dell", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestItemRepository_SortTieBreak(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	a := mkItem("JOB-1", "Alice", "Dell", "9000000001", model.StatusReceived, "Rakesh", 0)
	b := mkItem("JOB-2", "Bob", "HP", "9000000002", model.StatusReceived, "Rakesh", 5)
	a.Cost, b.Cost = 100, 100
	seedItems(t, r, a, b)

	items, err := r.List(ctx, ItemFilter{SortBy: SortCost})
	require.NoError(t, err)
	// при равной стоимости сначала более новый
	assert.Equal(t, []string{"JOB-2", "JOB-1"}, jobNumbers(items))
}

func TestItemRepository_BulkAndStats(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	a := mkItem("JOB-1", "Alice", "Dell", "9000000001", model.StatusReceived, "Rakesh", 0)
	b := mkItem("JOB-2", "Bob", "HP", "9000000002", model.StatusInProgress, "Rakesh", 1)
	c := mkItem("JOB-3", "Carol", "Asus", "9000000003", model.StatusPending, "Shyam", 2)
	seedItems(t, r, a, b, c)
	require.NoError(t, r.SoftDelete(ctx, c.ID))

	n, err := r.BulkUpdateStatus(ctx, []string{a.ID, b.ID, c.ID, "missing"}, model.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = r.BulkUpdateStatus(ctx, nil, model.StatusReady)
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.Status]int64{model.StatusReady: 2}, counts)
}

func TestItemRepository_RevenueByTechnician(t *testing.T) {
	db := newTestDB(t)
	r := NewItemRepository(db)
	ctx := context.Background()

	a := mkItem("JOB-1", "Alice", "Dell", "9000000001", model.StatusDelivered, "Rakesh", 0)
	a.FinalCost = 1500
	b := mkItem("JOB-2", "Bob", "HP", "9000000002", model.StatusDelivered, "Rakesh", 1)
	b.FinalCost = 500
	c := mkItem("JOB-3", "Carol", "Asus", "9000000003", model.StatusDelivered, "Shyam (Admin)", 2)
	c.FinalCost = 700
	d := mkItem("JOB-4", "Dan", "Acer", "9000000004", model.StatusReady, "Shyam (Admin)", 3)
	d.FinalCost = 9999
	seedItems(t, r, a, b, c, d)

	rows, err := r.RevenueByTechnician(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RevenueRow{
		{TechnicianName: "Rakesh", Jobs: 2, Revenue: 2000},
		{TechnicianName: "Shyam (Admin)", Jobs: 1, Revenue: 700},
	}, rows)
}
