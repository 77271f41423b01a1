// Package api serves the dashboard screens as JSON, CSV downloads and
// server-sent change streams.
package api

import (
	"net/http"
	"time"

	"meal-admin/auth"
	"meal-admin/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Server struct {
	store    Store
	verifier *auth.Verifier
	hub      *realtime.Hub
	images   ImageUploader
	logger   zerolog.Logger
	now      func() time.Time
}

// NewServer wires the handlers. hub and images may be nil, in which case the
// stream and upload endpoints answer 503.
func NewServer(store Store, verifier *auth.Verifier, hub *realtime.Hub, images ImageUploader, logger zerolog.Logger) *Server {
	return &Server{
		store:    store,
		verifier: verifier,
		hub:      hub,
		images:   images,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the HTTP handler.
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/admin/dashboard?days=
//	GET    /api/admin/orders?q=
//	GET    /api/admin/orders/export.csv?q=
//	GET    /api/admin/orders/{id}
//	PATCH  /api/admin/orders/{id}/status
//	GET    /api/admin/meals?q=
//	POST   /api/admin/meals
//	POST   /api/admin/meals/images
//	GET    /api/admin/meals/{id}
//	PUT    /api/admin/meals/{id}
//	DELETE /api/admin/meals/{id}
//	GET    /api/admin/categories
//	GET    /api/admin/payments?q=
//	GET    /api/admin/payments/export.csv?q=
//	GET    /api/admin/payments/{id}
//	GET    /api/admin/referrals?q=
//	POST   /api/admin/referrals/expire
//	GET    /api/admin/partners?q=
//	GET    /api/admin/partners/{id}
//	GET    /api/admin/partners/{id}/metrics?from=&to=
//	GET    /api/admin/partners/{id}/ledger?from=&to=&limit=&offset=
//	POST   /api/admin/partners/{id}/settlements
//	GET    /api/admin/users?q=
//	POST   /api/admin/users/{id}/promote
//	GET    /api/admin/stream/{screen}
//	GET    /api/partner/dashboard
//	GET    /api/partner/stream
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.requireAdmin)

		r.Get("/dashboard", s.handleDashboard)

		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/export.csv", s.handleExportOrders)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Patch("/orders/{id}/status", s.handleUpdateOrderStatus)

		r.Get("/meals", s.handleListMeals)
		r.Post("/meals", s.handleCreateMeal)
		r.Post("/meals/images", s.handleUploadImage)
		r.Get("/meals/{id}", s.handleGetMeal)
		r.Put("/meals/{id}", s.handleUpdateMeal)
		r.Delete("/meals/{id}", s.handleDeleteMeal)
		r.Get("/categories", s.handleListCategories)

		r.Get("/payments", s.handleListPayments)
		r.Get("/payments/export.csv", s.handleExportPayments)
		r.Get("/payments/{id}", s.handleGetPayment)

		r.Get("/referrals", s.handleListReferrals)
		r.Post("/referrals/expire", s.handleExpireReferrals)

		r.Get("/partners", s.handleListPartners)
		r.Get("/partners/{id}", s.handleGetPartner)
		r.Get("/partners/{id}/metrics", s.handlePartnerMetrics)
		r.Get("/partners/{id}/ledger", s.handlePartnerLedger)
		r.Post("/partners/{id}/settlements", s.handleGenerateSettlement)

		r.Get("/users", s.handleListUsers)
		r.Post("/users/{id}/promote", s.handlePromoteUser)

		r.Get("/stream/{screen}", s.handleAdminStream)
	})

	r.Route("/api/partner", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.requirePartner)

		r.Get("/dashboard", s.handlePartnerDashboard)
		r.Get("/stream", s.handlePartnerStream)
	})

	return r
}
