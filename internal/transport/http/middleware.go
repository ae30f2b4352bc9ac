package httptransport

import (
	"bytes"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/goccy/go-json"
	"github.com/lmittmann/tint"

	"puzzle-party/internal/logging"
)

func requestLogger() *slog.Logger {
	if logging.Pretty() {
		return slog.New(tint.NewHandler(logging.Writer(), &tint.Options{Level: logging.HTTPLevel()}))
	}
	return slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{Level: logging.HTTPLevel()}))
}

// APILogMiddleware writes one access line per request, tagged with the room
// code when the route carries one.
func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(requestLogger(), &httplog.Options{
		Level:              logging.HTTPLevel(),
		Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
		LogRequestBody:     func(*http.Request) bool { return false },
		LogResponseBody:    func(*http.Request) bool { return false },
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
			return roomAttrs(req)
		},
	})
}

func roomAttrs(req *http.Request) []slog.Attr {
	attrs := []slog.Attr{slog.String("request_id", chimw.GetReqID(req.Context()))}
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		return append(attrs, slog.String("route", req.URL.Path))
	}
	if pattern := rc.RoutePattern(); pattern != "" {
		attrs = append(attrs, slog.String("route", pattern))
	}
	if code := rc.URLParam("code"); code != "" {
		attrs = append(attrs, slog.String("room", strings.ToUpper(code)))
	}
	if variant := req.URL.Query().Get("variant"); variant != "" {
		attrs = append(attrs, slog.String("variant", variant))
	}
	return attrs
}

// BodyCaptureMiddleware attaches up to limit bytes of the admin request and
// response bodies to the access line. Event streams pass through untouched.
func BodyCaptureMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSSERequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			in, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(in))

			cw := &captureWriter{ResponseWriter: w, limit: limit}
			next.ServeHTTP(cw, r)

			reqBody := in[:min(len(in), limit)]
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", bodyValue(reqBody)),
				slog.Bool("request_body_truncated", len(in) > limit),
				slog.Any("response_body", bodyValue(cw.buf)),
				slog.Bool("response_body_truncated", cw.seen > limit),
			)
		})
	}
}

// captureWriter keeps the first limit bytes written and counts the rest.
type captureWriter struct {
	http.ResponseWriter
	limit int
	buf   []byte
	seen  int
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if room := c.limit - len(c.buf); room > 0 {
		c.buf = append(c.buf, p[:min(room, len(p))]...)
	}
	c.seen += len(p)
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// bodyValue logs JSON bodies as structured values and anything else as text.
func bodyValue(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if json.Unmarshal(b, &v) != nil {
		return string(b)
	}
	return v
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// AdminAuthMiddleware accepts the key as X-Admin-Key or a bearer token. It is
// open when adminKey is empty.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	want := []byte(adminKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && subtle.ConstantTimeCompare([]byte(presentedKey(r)), want) != 1 {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if v := r.Header.Get("X-Admin-Key"); v != "" {
		return v
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// ParseLimit reads ?limit= clamped to [1, ceiling]; unparsable values give def.
func ParseLimit(r *http.Request, def, ceiling int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		n = def
	}
	return max(1, min(n, ceiling))
}

// isSSERequest covers clients that cannot set Accept, such as EventSource polyfills.
func isSSERequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		strings.HasSuffix(r.URL.Path, "/events")
}
