package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/intentionbank/backend/internal/logger"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request once the handler has returned. The
// request id is attached to a request-scoped logger handlers can pick up with
// logger.FromContext.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			scoped := log.With(zap.String("request_id", reqID))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				}
				switch {
				case status >= 500:
					scoped.Error("request", fields...)
				case status >= 400:
					scoped.Warn("request", fields...)
				default:
					scoped.Info("request", fields...)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), scoped)))
		})
	}
}
