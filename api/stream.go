package api

import (
	"context"
	"fmt"
	"net/http"

	"meal-admin/realtime"
	"meal-admin/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// screen is a view that can be followed live: the tables whose changes make
// it stale and the query that rebuilds it.
type screen struct {
	tables []string
	fetch  func(ctx context.Context, s *Server) (any, error)
}

var screens = map[string]screen{
	"dashboard": {
		tables: []string{"orders", "profiles", "meals"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.DashboardStats(ctx, services.DefaultRevenueDays)
		},
	},
	"orders": {
		tables: []string{"orders"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListOrders(ctx)
		},
	},
	"meals": {
		tables: []string{"meals"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListMeals(ctx)
		},
	},
	"payments": {
		tables: []string{"payments"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListPayments(ctx)
		},
	},
	"referrals": {
		tables: []string{"referrals"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListReferrals(ctx)
		},
	},
	"partners": {
		tables: []string{"partners"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListPartners(ctx)
		},
	},
	"users": {
		tables: []string{"profiles"},
		fetch: func(ctx context.Context, s *Server) (any, error) {
			return s.store.ListProfiles(ctx)
		},
	},
}

func (s *Server) handleAdminStream(w http.ResponseWriter, r *http.Request) {
	sc, ok := screens[chi.URLParam(r, "screen")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown screen"})
		return
	}
	filters := make([]realtime.Filter, 0, len(sc.tables))
	for _, t := range sc.tables {
		filters = append(filters, realtime.Filter{Table: t, Kind: realtime.Any})
	}
	s.stream(w, r, filters, func(ctx context.Context) (any, error) {
		return sc.fetch(ctx, s)
	})
}

// handlePartnerStream follows the caller's own referrals and commissions.
func (s *Server) handlePartnerStream(w http.ResponseWriter, r *http.Request) {
	p := partnerFromContext(r.Context())
	filters := []realtime.Filter{
		{Table: "referrals", Kind: realtime.Any, Column: "partner_id", Value: p.ID},
		{Table: "partner_commissions", Kind: realtime.Any, Column: "partner_id", Value: p.ID},
	}
	s.stream(w, r, filters, func(ctx context.Context) (any, error) {
		return s.store.PartnerDashboard(ctx, p)
	})
}

// stream sends a "snapshot" event with the full view, then a fresh snapshot
// after every matching change until the client goes away. Failed re-fetches
// send an "error" event and the client keeps its last snapshot.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, filters []realtime.Filter, fetch func(ctx context.Context) (any, error)) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "live updates are not available"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}
	events, cancel := s.hub.Subscribe(filters...)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := hlog.FromRequest(r)
	live := realtime.NewLive(fetch)
	_ = live.Run(r.Context(), events,
		func(v any) {
			if err := writeEvent(w, "snapshot", v); err != nil {
				logger.Debug().Err(err).Msg("stream write")
				return
			}
			flusher.Flush()
		},
		func(err error) {
			logger.Error().Err(err).Msg("stream refresh failed")
			if writeEvent(w, "error", errorBody{Error: "Failed to refresh"}) == nil {
				flusher.Flush()
			}
		},
	)
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
	return err
}
