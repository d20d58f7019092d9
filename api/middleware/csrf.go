package middleware

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

// CSRFField is the hidden form input carrying the session token.
const CSRFField = "csrf_token"

// CSRF rejects unsafe requests whose csrf_token field does not match the
// session token. It must run after Session.
func CSRF(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			sess := SessionFromContext(r.Context())
			token := r.PostFormValue(CSRFField)
			if token == "" {
				token = r.Header.Get("X-CSRF-Token")
			}
			if sess == nil || !sess.ValidCSRF(token) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "CSRF verification failed. Request aborted."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
