package storage

import (
	"context"
	"testing"

	"ChipTrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBackend(t *testing.T) {
	cases := map[string]Backend{
		"mongodb://localhost:27017/chip":         BackendMongo,
		"mongodb+srv://cluster.example.net/db":   BackendMongo,
		"sqlite://file::memory:?cache=shared":    BackendSQLite,
		"postgres://user:pw@localhost:5432/chip": BackendPostgres,
		"host=localhost user=chip dbname=chip":   BackendPostgres,
		"  SQLITE://chip.db":                     BackendSQLite,
	}
	for dsn, want := range cases {
		assert.Equal(t, want, DetectBackend(dsn), dsn)
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, "sqlite://file:storage_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, BackendSQLite, st.Backend)
	_, err = st.Users.CreateUser(ctx, &model.User{Username: "u", PasswordHash: "h", DisplayName: "U", Role: model.RoleUser})
	require.NoError(t, err)
	n, err := st.Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpen_Empty(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}
