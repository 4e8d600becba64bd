// Package cache хранит агрегированную статистику по статусам заказов.
package cache

import (
	"context"
	"sync"
	"time"

	"ChipTrack/internal/model"
)

// DefaultTTL - время жизни закэшированной статистики.
const DefaultTTL = 5 * time.Minute

// StatsCache - один общий слот со статистикой дашборда.
// Get возвращает ok=false, если значение отсутствует или устарело.
//
// Каждый Invalidate увеличивает поколение. Читатель запоминает Generation до
// подсчёта, а Set с устаревшим поколением ничего не записывает: подсчёт,
// начатый до записи в базу, не переживёт её инвалидацию.
type StatsCache interface {
	Get(ctx context.Context) (model.StatusStats, bool, error)
	Generation(ctx context.Context) (uint64, error)
	Set(ctx context.Context, stats model.StatusStats, gen uint64) error
	Invalidate(ctx context.Context) error
}

// MemoryStats - in-process реализация StatsCache.
type MemoryStats struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	value     model.StatusStats
	expiresAt time.Time
	filled    bool
	gen       uint64
}

// NewMemoryStats создаёт кэш с заданным TTL (DefaultTTL при ttl <= 0).
func NewMemoryStats(ttl time.Duration) *MemoryStats {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStats{ttl: ttl, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (c *MemoryStats) WithClock(now func() time.Time) *MemoryStats {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *MemoryStats) Get(_ context.Context) (model.StatusStats, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filled || !c.now().Before(c.expiresAt) {
		return model.StatusStats{}, false, nil
	}
	return c.value, true, nil
}

func (c *MemoryStats) Generation(_ context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, nil
}

func (c *MemoryStats) Set(_ context.Context, stats model.StatusStats, gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.value = stats
	c.expiresAt = c.now().Add(c.ttl)
	c.filled = true
	return nil
}

func (c *MemoryStats) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.gen++
	c.filled = false
	c.value = model.StatusStats{}
	c.mu.Unlock()
	return nil
}
