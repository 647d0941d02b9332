package middleware

import (
	"net/http"
	"time"

	"markethub-be/internal/logger"
	"markethub-be/internal/utils"

	"go.uber.org/zap"
)

// responseRecorder captures the status code written downstream.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging emits one structured entry per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", r.RemoteAddr),
		}
		if actorID, ok := utils.GetActorIDFromContext(r.Context()); ok {
			fields = append(fields, zap.Int64("actor_id", actorID))
		}

		logger.FromCtx(r.Context()).Info("incoming request", fields...)
	})
}
