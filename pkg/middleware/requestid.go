package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/xxng1/searchpilot/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a unique id, propagated via context and the
// X-Request-ID response header. An id supplied by the caller is preserved.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}
