package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/handlers"
	appMiddleware "github.com/campusconnect/backend/internal/middleware"
)

type application struct {
	logger            *zap.Logger
	verifier          appMiddleware.TokenVerifier
	serviceRoleSecret string

	profiles  *handlers.ProfileHandler
	avatars   *handlers.AvatarHandler
	reports   *handlers.ReportHandler
	bootstrap *handlers.BootstrapHandler
	// resets is nil when no identity provider is configured.
	resets *handlers.PasswordResetHandler
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/avatars", app.avatars.ListAvatars)
		r.Get("/avatars/resolve", app.avatars.ResolveAvatar)
		r.Post("/reports", app.reports.SubmitReport)
		if app.resets != nil {
			r.Post("/password-reset/request", app.resets.RequestCode)
			r.Post("/password-reset/verify", app.resets.VerifyCode)
		}

		// Service-role routes
		r.With(appMiddleware.ServiceRoleAuth(app.serviceRoleSecret)).
			Post("/bootstrap-profile", app.bootstrap.BootstrapProfile)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.FirebaseAuth(app.verifier))

			r.Route("/profiles/{role}", func(r chi.Router) {
				r.Get("/", app.profiles.GetProfile)
				r.Put("/", app.profiles.UpdateProfile)
				r.Post("/avatar", app.profiles.AssignAvatar)
			})
		})
	})

	return r
}
