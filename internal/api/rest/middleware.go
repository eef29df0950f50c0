package rest

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/alarm-bridge/internal/logger"
)

// maxBodyBytes caps signed request bodies.
const maxBodyBytes = 1 << 20

// headerPassword carries the wall-panel password.
const headerPassword = "Password"

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logging attaches request fields to the context logger and logs completion.
func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithKV(r.Context(), "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r.WithContext(ctx))

		logger.DebugKV(ctx, "HTTP request", "status", recorder.status, "duration", time.Since(start))
	})
}

// recovery turns handler panics into 500 responses.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorKV(r.Context(), "Panic recovered", "panic", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// signed rejects requests without a valid body signature with 400.
// The body is restored for the next handler.
func (s *Server) signed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.reject(w, r, http.StatusBadRequest, "body", err)

			return
		}

		timestamp := firstHeader(r, HeaderTimestamp, headerSlackTimestamp)
		signature := firstHeader(r, HeaderSignature, headerSlackSignature)

		err = Verify(s.opts.SigningSecret, s.opts.SignatureTolerance, s.now(), timestamp, signature, body)
		if err != nil {
			s.reject(w, r, http.StatusBadRequest, "signature", err)

			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// authorized rejects wall-panel requests without the right password with 403.
// An empty configured password rejects everything.
func (s *Server) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		given := r.Header.Get(headerPassword)
		if s.opts.FrontPassword == "" ||
			subtle.ConstantTimeCompare([]byte(given), []byte(s.opts.FrontPassword)) != 1 {
			s.reject(w, r, http.StatusForbidden, "password", nil)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, reason string, err error) {
	logger.WarnKV(r.Context(), "Request rejected", "reason", reason, "error", err)
	s.opts.Metrics.Rejected(reason)
	http.Error(w, http.StatusText(status), status)
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if value := r.Header.Get(name); value != "" {
			return value
		}
	}

	return ""
}
