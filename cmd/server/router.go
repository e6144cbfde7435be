package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/vidgen-api/internal/api"
	apiMiddleware "github.com/phrazzld/vidgen-api/internal/api/middleware"
	"github.com/phrazzld/vidgen-api/internal/platform/ratelimit"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
)

// routerDeps is everything the HTTP surface needs. Limiter may be nil.
type routerDeps struct {
	Logger         *slog.Logger
	JWT            auth.JWTService
	Users          service.UserService
	Videos         service.VideoService
	Templates      service.TemplateService
	Scripts        service.ScriptService
	Limiter        ratelimit.Limiter
	RequestTimeout time.Duration
}

func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		Logger:         app.logger,
		JWT:            app.jwtService,
		Users:          app.userService,
		Videos:         app.videoService,
		Templates:      app.templateService,
		Scripts:        app.scriptService,
		Limiter:        app.limiter,
		RequestTimeout: time.Duration(app.config.Server.RequestTimeoutSeconds) * time.Second,
	})
}

// newRouter registers every route under /api/v1 plus /health.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(deps.Logger))
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	authHandler := api.NewAuthHandler(deps.Users, deps.JWT, deps.Logger)
	videoHandler := api.NewVideoHandler(deps.Videos, deps.Scripts, deps.Logger)
	templateHandler := api.NewTemplateHandler(deps.Templates, deps.Logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.JWT)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuthenticate)
			r.Get("/video/templates", templateHandler.List)
			r.Get("/video/templates/{id}", templateHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(apiMiddleware.RateLimit(deps.Limiter, rateLimitWindow))
			}

			r.Get("/auth/me", authHandler.Me)

			r.Post("/video/generate", videoHandler.CreateTask)
			r.Post("/video/generate-script", videoHandler.GenerateScript)
			r.Get("/video/tasks", videoHandler.ListTasks)
			r.Get("/video/tasks/{id}", videoHandler.GetTask)
			r.Delete("/video/tasks/{id}", videoHandler.DeleteTask)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin)
				r.Post("/video/templates", templateHandler.Create)
				r.Put("/video/templates/{id}", templateHandler.Update)
				r.Delete("/video/templates/{id}", templateHandler.Delete)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.Logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
