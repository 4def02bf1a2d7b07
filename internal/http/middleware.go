package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"docassist/internal/contextutil"
)

// RequestLogger attaches a request-scoped logger to the context and logs one
// line per completed request. The logger carries the chi request id so
// handler logs can be correlated with the access line.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := slog.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := contextutil.WithLogger(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		// Probe endpoints are polled constantly; only log them on failure.
		if quietPath(r.URL.Path) && ww.Status() < http.StatusBadRequest {
			return
		}

		logger.InfoContext(ctx, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func quietPath(path string) bool {
	return path == "/health" || path == "/metrics"
}
