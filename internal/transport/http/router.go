package http

import (
	"net/http"

	"github.com/go-auth-api/internal/application/auth"
	"github.com/go-auth-api/internal/config"
	"github.com/go-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Coarse in-process safeguard in front of the Redis counters.
	r.Use(appmiddleware.NewRateLimiter(rate.Limit(20), 40).Limit)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:  deps.UserRepo,
		Codes:     deps.Store,
		Notifier:  deps.Notifier,
		Tokens:    deps.JWTProvider,
		Google:    deps.Google,
		Facebook:  deps.Facebook,
		OTPExpiry: cfg.OTPExpiry,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)

	throttle := func(scope string) func(http.Handler) http.Handler {
		return appmiddleware.Throttle(deps.Store, appmiddleware.Policy{
			Scope:  scope,
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health-check", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			r.With(throttle("register")).Post("/register", authH.Register)
			r.With(throttle("verify")).Post("/verify", authH.Verify)
			r.With(throttle("resend-otp")).Post("/resend-register-otp", authH.ResendOTP)
			r.With(throttle("forgot-password")).Post("/forgot-password", authH.ForgotPassword)
			r.With(throttle("reset-password")).Post("/reset-password", authH.ResetPassword)
			r.With(throttle("login")).Post("/login", authH.Login)
			r.With(throttle("login-google")).Post("/google", authH.LoginGoogle)
			r.With(throttle("login-facebook")).Post("/facebook", authH.LoginFacebook)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Get("/me", authH.Me)
			})
		})
	})

	return r
}
