package controllers

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/api/validators"
	"github.com/angelmondragon/moviestore/internal/cart"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

const cartURL = "/cart/"

func CartDetail(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Resolve(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Render(r.Context(), logg, w, http.StatusOK, "cart.html", newPage(r, "Cart", summary))
	}
}

// CartAdd puts one more copy of the movie in the cart. Unknown movies 404.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movieID, err := validators.ParseUUIDParam(r, "movieID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movie, err := svc.Add(r.Context(), sess, movieID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flashSuccess(r, movie.Title+" was added to your cart.")
		responses.Redirect(w, r, cartURL)
	}
}

// CartRemove takes one copy out; ids that are not in the cart are ignored.
func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if movieID, err := validators.ParseUUIDParam(r, "movieID"); err == nil {
			svc.Remove(sess, movieID)
		}
		responses.Redirect(w, r, cartURL)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		svc.Clear(sess)
		flashInfo(r, "Your cart is empty.")
		responses.Redirect(w, r, cartURL)
	}
}
