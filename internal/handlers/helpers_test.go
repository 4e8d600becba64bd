package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/config"
	"ChipTrack/internal/handlers"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/repo"
	"ChipTrack/internal/service"
	"ChipTrack/internal/vision"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testServer struct {
	router http.Handler
	cfg    *config.Config
	items  repo.ItemRepository
}

// session - cookie и CSRF-токен, полученные при входе.
type session struct {
	cookies []*http.Cookie
	csrf    string
}

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:  testSecret,
		AppEnv:      "test",
		CORSOrigins: []string{"http://localhost:5173"},
		VisionMaxMB: 1,
	}
}

// newTestServer поднимает весь стек поверх SQLite в памяти с пользователями по умолчанию.
func newTestServer(t *testing.T, extractor vision.Extractor, opts ...func(*config.Config)) *testServer {
	t.Helper()

	db, err := repo.InitSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zap.NewNop().Sugar()
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	users := repo.NewUserRepository(db)
	items := repo.NewItemRepository(db)
	userService := service.NewUserService(users, auth.NewTokenManager(cfg.AuthSecret), logger)
	itemService := service.NewItemService(items, nil, logger)

	seeds, err := service.ParseSeedUsers(service.DefaultSeedUsers)
	require.NoError(t, err)
	_, err = userService.SeedUsers(context.Background(), seeds)
	require.NoError(t, err)

	h := handlers.NewHandler(userService, itemService, extractor, logger, cfg)
	return &testServer{router: h.Router, cfg: cfg, items: items}
}

func (s *testServer) do(t *testing.T, method, path string, body any, sess *session) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		for _, c := range sess.cookies {
			req.AddCookie(c)
		}
		req.Header.Set(middleware.CSRFHeaderName, sess.csrf)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, username, password string) *session {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var p auth.Principal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.NotEmpty(t, p.CSRFToken)
	return &session{cookies: rr.Result().Cookies(), csrf: p.CSRFToken}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}

func newItemBody(job, customer, phone string) map[string]any {
	return map[string]any{
		"jobNumber":    job,
		"customerName": customer,
		"brand":        "Dell",
		"phoneNumber":  phone,
	}
}
