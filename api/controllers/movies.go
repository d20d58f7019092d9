package controllers

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/api/validators"
	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/reviews"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

const maxQueryLength = 200

type movieListView struct {
	Query  string
	Movies []movies.MovieSummary
}

type movieDetailView struct {
	Movie   *models.Movie
	Reviews *reviews.MovieReviews
}

// MovieList renders the catalog, filtered by the optional q parameter.
func MovieList(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		rows, err := svc.List(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Render(r.Context(), logg, w, http.StatusOK, "movie_list.html",
			newPage(r, "Movies", movieListView{Query: q, Movies: rows}))
	}
}

func MovieDetail(svc movies.Service, reviewSvc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "movieID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movie, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := reviewSvc.ListForMovie(r.Context(), movie.ID, currentUserID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Render(r.Context(), logg, w, http.StatusOK, "movie_detail.html",
			newPage(r, movie.Title, movieDetailView{Movie: movie, Reviews: list}))
	}
}
