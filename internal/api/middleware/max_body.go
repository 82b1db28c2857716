package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
)

// LimitBody caps request bodies at limit bytes. A declared Content-Length over
// the limit is rejected with 413 before the handler runs. Bodies of unknown
// length are cut off while the handler reads them; BodyLimitError recognises
// the resulting read error.
func LimitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, bodyTooLargeMessage(limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimitError returns the client-facing message for a read error caused by
// LimitBody.
func BodyLimitError(err error) (string, bool) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return bodyTooLargeMessage(maxErr.Limit), true
	}
	return "", false
}

func bodyTooLargeMessage(limit int64) string {
	return fmt.Sprintf("request body exceeds %d bytes", limit)
}
