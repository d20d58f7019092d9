package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/api/validators"
	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/reviews"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

type reportRecorder interface {
	ReviewReported()
}

type reviewFormView struct {
	Movie    *models.Movie
	ReviewID uuid.UUID
}

type reviewDeleteView struct {
	Review *models.Review
}

func movieURL(id uuid.UUID) string {
	return "/movies/" + id.String() + "/"
}

// ReviewAdd creates or updates the caller's review of a movie. Invalid input
// re-renders the movie page with the form errors.
func ReviewAdd(movieSvc movies.Service, svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movieID, err := validators.ParseUUIDParam(r, "movieID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := currentUserID(r)

		var input reviews.ReviewInput
		err = validators.DecodeForm(r, &input)
		if err == nil {
			_, err = svc.Add(r.Context(), movieID, userID, input)
		}
		if err == nil {
			flashSuccess(r, "Your review was saved.")
			responses.Redirect(w, r, movieURL(movieID))
			return
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movie, loadErr := movieSvc.Get(r.Context(), movieID)
		if loadErr != nil {
			responses.WriteError(r.Context(), logg, w, loadErr)
			return
		}
		list, loadErr := svc.ListForMovie(r.Context(), movieID, userID)
		if loadErr != nil {
			responses.WriteError(r.Context(), logg, w, loadErr)
			return
		}
		page := newPage(r, movie.Title, movieDetailView{Movie: movie, Reviews: list})
		page.Form = validators.FormValues(r, "rating", "text")
		page.FormErrors = pkgerrors.FieldErrors(err)
		responses.Render(r.Context(), logg, w, formStatus(err), "movie_detail.html", page)
	}
}

// ReviewEdit serves and processes the edit form for the caller's own review.
func ReviewEdit(movieSvc movies.Service, svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := validators.ParseUUIDParam(r, "reviewID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := currentUserID(r)
		review, err := svc.Get(r.Context(), reviewID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movie, err := movieSvc.Get(r.Context(), review.MovieID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := reviewFormView{Movie: movie, ReviewID: review.ID}

		if r.Method == http.MethodGet {
			page := newPage(r, "Edit review", view)
			page.Form = map[string]string{"rating": strconv.Itoa(review.Rating), "text": review.Text}
			responses.Render(r.Context(), logg, w, http.StatusOK, "review_form.html", page)
			return
		}

		var input reviews.ReviewInput
		err = validators.DecodeForm(r, &input)
		if err == nil {
			_, err = svc.Edit(r.Context(), reviewID, userID, input)
		}
		if err == nil {
			flashSuccess(r, "Your review was updated.")
			responses.Redirect(w, r, movieURL(movie.ID))
			return
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := newPage(r, "Edit review", view)
		page.Form = validators.FormValues(r, "rating", "text")
		page.FormErrors = pkgerrors.FieldErrors(err)
		responses.Render(r.Context(), logg, w, formStatus(err), "review_form.html", page)
	}
}

// ReviewDelete shows a confirmation page on GET and deletes on POST.
func ReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := validators.ParseUUIDParam(r, "reviewID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := currentUserID(r)

		if r.Method == http.MethodGet {
			review, err := svc.Get(r.Context(), reviewID, userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.Render(r.Context(), logg, w, http.StatusOK, "review_confirm_delete.html",
				newPage(r, "Delete review", reviewDeleteView{Review: review}))
			return
		}

		movieID, err := svc.Delete(r.Context(), reviewID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flashSuccess(r, "Your review was deleted.")
		responses.Redirect(w, r, movieURL(movieID))
	}
}

// ReviewReport hides a review from the reporting user.
func ReviewReport(svc reviews.Service, recorder reportRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := validators.ParseUUIDParam(r, "reviewID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input reviews.ReportInput
		if err := validators.DecodeForm(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Report(r.Context(), reviewID, currentUserID(r), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Created {
			if recorder != nil {
				recorder.ReviewReported()
			}
			flashInfo(r, "Thanks. That review is now hidden from you.")
		} else {
			flashInfo(r, "You already reported that review.")
		}
		responses.Redirect(w, r, movieURL(result.MovieID))
	}
}
