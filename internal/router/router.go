package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/getlife/backend/internal/auth"
	"github.com/getlife/backend/internal/dashboard"
	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/notify"
	"github.com/getlife/backend/internal/onboarding"
	"github.com/getlife/backend/internal/wallet"
	"github.com/getlife/backend/internal/worksession"
)

type Handlers struct {
	Auth          *auth.Handler
	Orders        *worksession.Handler
	Wallet        *wallet.Handler
	Onboarding    *onboarding.Handler
	Dashboard     *dashboard.Handler
	Notifications *notify.Handler
}

// New returns an http.Handler that serves the API under /api/v1.
// authenticate must put the caller's account into the request context.
func New(h Handlers, authenticate func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/applications", h.Onboarding.Submit)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/account/me", h.Dashboard.Me)
			r.Patch("/account/profile", h.Dashboard.UpdateProfile)
			r.Get("/ledger", h.Dashboard.Ledger)
			r.Get("/orders/{id}", h.Orders.Get)

			r.Post("/topups", h.Wallet.RequestTopup)
			r.Get("/topups", h.Wallet.ListMine)

			r.Get("/notifications", h.Notifications.List)
			r.Post("/notifications/read-all", h.Notifications.MarkAllRead)
			r.Post("/notifications/{id}/read", h.Notifications.MarkRead)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleUser))
				r.Get("/mitras", h.Orders.ListMitras)
				r.Post("/orders", h.Orders.CreateOrder)
				r.Get("/orders", h.Orders.ListForUser)
				r.Post("/orders/{id}/cancel", h.Orders.Cancel)
			})

			r.Route("/mitra", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleMitra))
				r.Get("/orders", h.Orders.ListForMitra)
				r.Get("/orders/{id}/elapsed", h.Orders.Elapsed)
				r.Get("/statistics", h.Dashboard.MitraStatistics)
				// A blocked mitra may still finish a running session.
				r.Post("/orders/{id}/finish", h.Orders.Finish)
				r.With(middleware.RejectBlocked).Post("/orders/{id}/accept", h.Orders.Accept)
				r.With(middleware.RejectBlocked).Post("/orders/{id}/start", h.Orders.Start)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/applications", h.Onboarding.ListPending)
				r.Post("/applications/{id}/approve", h.Onboarding.Approve)
				r.Post("/applications/{id}/reject", h.Onboarding.Reject)
				r.Get("/topups", h.Wallet.ListPending)
				r.Post("/topups/{id}/approve", h.Wallet.Approve)
				r.Post("/topups/{id}/reject", h.Wallet.Reject)
				r.Get("/accounts", h.Dashboard.AdminAccounts)
				r.Post("/accounts/{id}/transfer", h.Wallet.Transfer)
				r.Post("/accounts/{id}/unblock", h.Wallet.Unblock)
				r.Get("/earnings", h.Dashboard.AdminEarnings)
			})
		})
	})
	return r
}
