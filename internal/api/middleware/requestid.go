package middleware

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// upstream proxies that already tag requests
var forwardedIDHeaders = []string{RequestIDHeader, "X-Vercel-Id"}

// RequestID tags every request with an id taken from a known inbound header or
// freshly generated. The id is stored under chi's request id key so
// chimiddleware.GetReqID works downstream, and is echoed in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		for _, h := range forwardedIDHeaders {
			if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
