package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	requestNoteKey
)

// requestNote carries what inner handlers learn about a request, the matched
// route and the authenticated user, back out to the request log line.
type requestNote struct {
	route  string
	userID string
}

func noteRoute(ctx context.Context, pattern string) {
	if n, ok := ctx.Value(requestNoteKey).(*requestNote); ok {
		n.route = pattern
	}
}

func noteUser(ctx context.Context, userID string) {
	if n, ok := ctx.Value(requestNoteKey).(*requestNote); ok {
		n.userID = userID
	}
}

// noteFields returns the request id and anything noted so far as slog args.
func noteFields(ctx context.Context) []any {
	var fields []any
	if rid, ok := GetRequestID(ctx); ok {
		fields = append(fields, "request_id", rid)
	}
	if n, ok := ctx.Value(requestNoteKey).(*requestNote); ok {
		if n.route != "" {
			fields = append(fields, "route", n.route)
		}
		if n.userID != "" {
			fields = append(fields, "user_id", n.userID)
		}
	}
	return fields
}

func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			ctx := context.WithValue(r.Context(), requestNoteKey, &requestNote{})
			r = r.WithContext(ctx)

			next.ServeHTTP(rec, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", clientIP(r),
			}
			fields = append(fields, noteFields(ctx)...)

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request", fields...)
		})
	}
}

// Recoverer turns a handler panic into a 500 envelope. It sits inside
// RequestLogger so the failed request is still logged with its status.
func Recoverer(logger *slog.Logger, isProd bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					fields := []any{"panic", rec, "method", r.Method, "path", r.URL.Path}
					fields = append(fields, noteFields(r.Context())...)
					if !isProd {
						fields = append(fields, "stack", string(debug.Stack()))
					}
					logger.Error("panic", fields...)
					WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func newRequestID() string {
	var b [16]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return time.Now().UTC().Format("20060102T150405.000000000Z07:00")
	}
	return hex.EncodeToString(b[:])
}
