package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/xxng1/searchpilot/pkg/logger"
)

// Timeout returns middleware that abandons requests exceeding the deadline
// and answers with a gateway timeout. Index reads are snapshot isolated, so
// an abandoned request leaves no partial state behind.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if dw.claim(ownerTimeout) {
					logger.FromContext(r.Context()).Warn("request timed out",
						"method", r.Method,
						"path", r.URL.Path,
						"timeout", timeout,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

// Exactly one side may touch the underlying ResponseWriter: whichever of the
// handler and the timeout branch claims it first. A handler finishing after
// the timeout response went out has its writes dropped instead of appended
// to (or raced against) the 504 body.
const (
	ownerNone int32 = iota
	ownerHandler
	ownerTimeout
)

type deadlineWriter struct {
	http.ResponseWriter
	owner       atomic.Int32
	wroteHeader atomic.Bool
}

// claim takes ownership for who, or reports whether who already owns the
// writer.
func (dw *deadlineWriter) claim(who int32) bool {
	return dw.owner.CompareAndSwap(ownerNone, who) || dw.owner.Load() == who
}

func (dw *deadlineWriter) WriteHeader(code int) {
	if dw.claim(ownerHandler) && dw.wroteHeader.CompareAndSwap(false, true) {
		dw.ResponseWriter.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	if !dw.claim(ownerHandler) {
		// Timed out; report success so the abandoned handler unwinds
		// normally instead of surfacing a write error.
		return len(b), nil
	}
	dw.wroteHeader.Store(true)
	return dw.ResponseWriter.Write(b)
}
