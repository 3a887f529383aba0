package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/HammerMeetNail/cotravels/internal/logging"
)

// statusWriter records the status code and body size written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestLogger writes one access log line per request.
type RequestLogger struct {
	logger *logging.Logger
	now    func() time.Time
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger, now: time.Now}
}

func (l *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := l.now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		fields := logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"size":        sw.size,
			"duration_ms": l.now().Sub(start).Milliseconds(),
			"remote_addr": remoteHost(r.RemoteAddr),
		}

		switch {
		case sw.status >= http.StatusInternalServerError:
			l.logger.Error("HTTP request", fields)
		case sw.status >= http.StatusBadRequest:
			l.logger.Warn("HTTP request", fields)
		default:
			l.logger.Info("HTTP request", fields)
		}
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
