package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"meal-admin/auth"
	"meal-admin/models"
	"meal-admin/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/hlog"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meal_admin",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal_admin",
		Subsystem: "http",
		Name:      "auth_failures_total",
		Help:      "Requests rejected by authentication or authorization.",
	}, []string{"reason"})
)

func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// authenticate verifies the access token and stores the caller in the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.verifier.Verify(auth.TokenFromRequest(r))
		if errors.Is(err, auth.ErrNoToken) {
			authFailures.WithLabelValues("no_token").Inc()
			authFailure(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if err != nil {
			authFailures.WithLabelValues("invalid_token").Inc()
			hlog.FromRequest(r).Debug().Err(err).Msg("rejected token")
			if wait := s.throttle(r); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				authFailure(w, http.StatusTooManyRequests, fmt.Sprintf("Too many failed attempts, try again in %d seconds", wait))
				return
			}
			authFailure(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// requireAdmin lets through callers with an active admin_users row.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.FromContext(r.Context())
		ok, err := s.store.IsActiveAdmin(r.Context(), p.UserID)
		if err != nil {
			fail(w, r, err, "Failed to verify admin access")
			return
		}
		if !ok {
			authFailures.WithLabelValues("not_admin").Inc()
			authFailure(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttle records a failed token check for the client and returns the
// cooldown still running from earlier failures. Store errors never block a
// request.
func (s *Server) throttle(r *http.Request) int {
	key := clientKey(r)
	logger := hlog.FromRequest(r)
	wait, err := s.store.AuthThrottleWait(r.Context(), key)
	if err != nil {
		logger.Error().Err(err).Msg("auth throttle lookup")
		return 0
	}
	if wait > 0 {
		return wait
	}
	if err := s.store.RecordAuthFailure(r.Context(), key); err != nil {
		logger.Error().Err(err).Msg("auth throttle record")
	}
	return 0
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type partnerKey struct{}

// requirePartner resolves the caller's active partner account by email.
func (s *Server) requirePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.FromContext(r.Context())
		partner, err := s.store.GetActivePartnerByEmail(r.Context(), p.Email)
		if errors.Is(err, services.ErrPartnerNotFound) {
			authFailures.WithLabelValues("not_partner").Inc()
			authFailure(w, http.StatusForbidden, "Partner account not found")
			return
		}
		if err != nil {
			fail(w, r, err, "Failed to verify partner access")
			return
		}
		ctx := context.WithValue(r.Context(), partnerKey{}, *partner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func partnerFromContext(ctx context.Context) models.Partner {
	p, _ := ctx.Value(partnerKey{}).(models.Partner)
	return p
}
