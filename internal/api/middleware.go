package api

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/metrics"
	"taskflow-leads/internal/common/observability"

	"github.com/gorilla/mux"
)

const adminPasswordHeader = "X-Admin-Password"

// requireAdmin rejects requests without the configured admin password.
// An empty password disables the check.
func requireAdmin(password string, errs *apperrors.ErrorHandler) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if password == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(adminPasswordHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
				errs.HandleHTTPError(w, r, apperrors.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// instrument records request duration per route template in Prometheus and
// one OpenTelemetry operation per named route.
func instrument(obs *observability.Observability) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			template, name := "unknown", "unknown"
			if route := mux.CurrentRoute(r); route != nil {
				if t, err := route.GetPathTemplate(); err == nil {
					template = t
				}
				if n := route.GetName(); n != "" {
					name = n
				}
			}

			metrics.HTTPRequestDuration.
				WithLabelValues(template, r.Method, strconv.Itoa(rec.status)).
				Observe(elapsed.Seconds())
			obs.RecordOperation(r.Context(), name, statusClass(rec.status), elapsed)
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "rejected"
	default:
		return "ok"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket handshake take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return hj.Hijack()
}

// withCORS allows any origin, like the dashboard's original backend.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,HEAD,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+adminPasswordHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
