package httpserver

import (
	"net/http"

	"marginfx/internal/accounts"
	"marginfx/internal/auth"
	"marginfx/internal/health"
	"marginfx/internal/httputil"
	"marginfx/internal/orders"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler     *auth.Handler
	AccountsHandler *accounts.Handler
	OrderHandler    *orders.Handler
	HealthHandler   *health.Handler
	AuthService     *auth.Service
	WSHandler       http.Handler
}

// withUser adapts a user-scoped handler to http.HandlerFunc; it must only be
// used under WithAuth.
func withUser(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r, userID)
	}
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Status)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", withUser(d.AuthHandler.Me))

			r.Route("/account", func(r chi.Router) {
				r.Get("/", withUser(d.OrderHandler.Snapshot))
				r.Post("/reset", withUser(d.OrderHandler.Reset))
				r.Post("/mode", withUser(d.AccountsHandler.SwitchMode))
				r.Patch("/leverage", withUser(d.AccountsHandler.UpdateLeverage))
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", withUser(d.AccountsHandler.List))
				r.Post("/", withUser(d.AccountsHandler.Create))
				r.Post("/{id}/activate", withUser(d.AccountsHandler.Activate))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", withUser(d.OrderHandler.Place))
				r.Get("/", withUser(d.OrderHandler.List))
				r.Patch("/{id}", withUser(d.OrderHandler.Modify))
				r.Delete("/{id}", withUser(d.OrderHandler.Close))
			})
		})
	})

	return r
}
