package repo

import (
	"errors"
	"fmt"
	"strings"

	"ChipTrack/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// searchExpr - выражение, по которому строится tsvector и GIN-индекс в Postgres.
const searchExpr = `to_tsvector('simple', coalesce(customer_name, '') || ' ' || coalesce(brand, '') || ' ' || coalesce(job_number, '') || ' ' || coalesce(phone_number, ''))`

// InitDB подключается к Postgres и применяет миграции.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSQLite открывает SQLite через драйвер modernc (без cgo).
// Используется для локальной разработки и тестов.
func InitSQLite(dsn string) (*gorm.DB, error) {
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт таблицы, индексы и (в Postgres) полнотекстовый индекс.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Item{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		stmt := `CREATE INDEX IF NOT EXISTS idx_items_search ON items USING GIN (` + searchExpr + `)`
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create search index: %w", err)
		}
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникального индекса во всех поддерживаемых драйверах.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc.org/sqlite не поддерживает TranslateError, смотрим на текст
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
