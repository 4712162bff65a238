package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/metrics"
	"github.com/roadside-ops/mission-log/backend/internal/ratelimit"
	"github.com/roadside-ops/mission-log/backend/internal/session"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.StatusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		slog.Info("request handled", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				// printed raw, slog would fold the trace onto one line
				fmt.Fprint(os.Stderr, string(debug.Stack()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// currentSession returns the session named by the request cookie.
func (h *Handler) currentSession(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(h.config.Session.CookieName)
	if err != nil {
		return nil, session.ErrNoSession
	}
	return h.sessions.Lookup(r.Context(), cookie.Value)
}

// authenticate attaches the caller's identity to the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.currentSession(r)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNoSession):
				h.serviceError(w, r, domain.ErrUnauthorized)
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), IdentityCtx, &sess.Identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// require rejects callers without capability c. It must run after authenticate.
func (h *Handler) require(c domain.Capability) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := domain.Authorize(identityFrom(r), c); err != nil {
				h.serviceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requirePage is require for HTML pages: failures redirect instead of
// answering with JSON.
func (h *Handler) requirePage(c domain.Capability) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity *domain.Identity
			sess, err := h.currentSession(r)
			switch {
			case err == nil:
				identity = &sess.Identity
			case !errors.Is(err, session.ErrNoSession):
				h.logInternalServerError(r, err)
			}

			switch err := domain.Authorize(identity, c); {
			case errors.Is(err, domain.ErrUnauthorized):
				http.Redirect(w, r, "/login.html", http.StatusFound)
			case errors.Is(err, domain.ErrForbidden):
				http.Redirect(w, r, "/driver.html", http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// realIP replaces RemoteAddr with the address the trusted proxy appended to
// X-Forwarded-For. Only the rightmost entry is used: everything left of it,
// and headers like X-Real-IP, come from the client and can be forged.
func (h *Handler) realIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := forwardedFor(r.Header.Values("X-Forwarded-For")); ip != "" {
			r.RemoteAddr = net.JoinHostPort(ip, "0")
		}
		next.ServeHTTP(w, r)
	})
}

func forwardedFor(values []string) string {
	if len(values) == 0 {
		return ""
	}
	entries := strings.Split(values[len(values)-1], ",")
	ip := net.ParseIP(strings.TrimSpace(entries[len(entries)-1]))
	if ip == nil {
		return ""
	}
	return ip.String()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit rejects clients over the limiter's budget. When Redis cannot be
// reached the request is let through.
func (h *Handler) rateLimit(l *ratelimit.Limiter) func(next http.Handler) http.Handler {
	timeout := time.Duration(h.config.RateLimit.StoreTimeout) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			res, err := l.Allow(ctx, ip)
			cancel()
			if err != nil {
				slog.Error("rate limiter unavailable", "limiter", l.Name(), "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(l.Name()).Inc()
				slog.Warn("rate limit exceeded", "limiter", l.Name(), "ip", ip, "path", r.URL.Path)

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				if strings.HasPrefix(r.URL.Path, "/api") {
					h.serviceError(w, r, domain.ErrRateLimited)
				} else {
					http.Error(w, domain.ErrRateLimited.Error(), http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
