package handlers

import (
	"net/http"
	"time"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/config"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/service"
	"ChipTrack/internal/vision"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров.
// extractor может быть nil: тогда распознавание отвечает 503.
func NewHandler(
	userService *service.UserService,
	itemService *service.ItemService,
	extractor vision.Extractor,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()
	secure := config.SecureCookies()

	r.Use(chimw.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.CSRFHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	// Recoverer внутри gzip и логирования: ответ 500 сжимается и попадает в лог.
	r.Use(middleware.Recoverer(config.IsDevelopment()))
	r.Use(rateLimit(config.RateLimitPerMinute))
	r.Use(middleware.WithAuth(auth.NewTokenManager(config.AuthSecret), secure))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	itemHandler := NewItemHandler(itemService, logger, config)
	reportHandler := NewReportHandler(itemService, logger, config)
	visionHandler := NewVisionHandler(extractor, logger, config)

	perm := middleware.RequirePermission

	r.Get("/healthz", Health)

	r.Route("/api", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit(config.LoginRateLimitPerMinute)).Post("/login", userHandler.Login)
			r.With(middleware.WithSessionCSRF).Post("/logout", userHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, middleware.WithCSRF)
				r.Get("/session", userHandler.Session)
				r.With(perm(auth.PermItemsRead)).Get("/users", userHandler.ListUsers)
				r.Put("/users/{username}/password", userHandler.ChangePassword)
			})
		})

		// Item routes
		r.Route("/items", func(r chi.Router) {
			r.With(rateLimit(config.TrackRateLimitPerMinute)).Get("/track", itemHandler.Track)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, middleware.WithCSRF)
				r.With(perm(auth.PermItemsRead)).Get("/", itemHandler.List)
				r.With(perm(auth.PermItemsCreate)).Post("/", itemHandler.Create)
				r.With(perm(auth.PermItemsBackup)).Get("/backup", itemHandler.Backup)
				r.With(perm(auth.PermItemsUpdate)).Patch("/bulk-status", itemHandler.BulkUpdateStatus)
				r.With(perm(auth.PermItemsRead)).Get("/{id}", itemHandler.Get)
				r.With(perm(auth.PermItemsUpdate)).Put("/{id}", itemHandler.Update)
				r.With(perm(auth.PermItemsDelete)).Delete("/{id}", itemHandler.Delete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, middleware.WithCSRF)
			r.With(perm(auth.PermAdminAccess)).Get("/reports/revenue", reportHandler.Revenue)
			r.With(perm(auth.PermItemsCreate)).Post("/vision/extract", visionHandler.Extract)
		})
	})

	return &Handler{Router: r}
}

// rateLimit ограничивает число запросов с одного IP в минуту; n <= 0 отключает лимит.
func rateLimit(n int) func(http.Handler) http.Handler {
	if n <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(n, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
		}),
	)
}

// Health - проверка живости для балансировщика.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
