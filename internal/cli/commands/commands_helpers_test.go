package commands

import (
	"path/filepath"
	"testing"

	"ChipTrack/internal/config"
	"ChipTrack/internal/service"
)

// withTempConfig возвращает конфиг с SQLite-файлом во временном каталоге,
// чтобы данные переживали открытие и закрытие хранилища между командами.
func withTempConfig(t *testing.T) *config.Config {
	t.Helper()
	db := filepath.Join(t.TempDir(), "chiptrack.db")
	return &config.Config{
		DatabaseDSN: "sqlite://file:" + db + "?_pragma=busy_timeout(5000)",
		AuthSecret:  "test-secret",
		SeedUsers:   service.DefaultSeedUsers,
	}
}
