package middleware

import (
	"net/http"
	"net/url"

	"github.com/angelmondragon/moviestore/api/responses"
)

// LoginURL is where anonymous users are sent for protected pages.
const LoginURL = "/login/"

// RequireLogin redirects anonymous requests to the login page, carrying the
// original path in next.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			responses.Redirect(w, r, LoginURL+"?next="+url.QueryEscape(r.URL.RequestURI()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
