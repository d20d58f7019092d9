package controllers

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/api/validators"
	"github.com/angelmondragon/moviestore/internal/petitions"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

const petitionsURL = "/petitions/"

type voteRecorder interface {
	VoteCast(outcome string)
}

type petitionListView struct {
	Petitions []petitions.PetitionView
}

func renderPetitions(w http.ResponseWriter, r *http.Request, svc petitions.Service, logg *logger.Logger, status int, form, formErrors map[string]string) {
	list, err := svc.List(r.Context(), currentUserID(r))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page := newPage(r, "Petitions", petitionListView{Petitions: list})
	page.Form = form
	page.FormErrors = formErrors
	responses.Render(r.Context(), logg, w, status, "petitions.html", page)
}

// PetitionList is public; voting and creating need a login.
func PetitionList(svc petitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPetitions(w, r, svc, logg, http.StatusOK, nil, nil)
	}
}

func PetitionCreate(svc petitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input petitions.PetitionInput
		err := validators.DecodeForm(r, &input)
		if err == nil {
			_, err = svc.Create(r.Context(), currentUserID(r), input)
		}
		if err == nil {
			flashSuccess(r, "Your petition was created.")
			responses.Redirect(w, r, petitionsURL)
			return
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renderPetitions(w, r, svc, logg, formStatus(err),
			validators.FormValues(r, "movie_title", "description"), pkgerrors.FieldErrors(err))
	}
}

// PetitionVote records a yes/no vote. An unusable vote value is flashed
// back rather than rendered as an error page.
func PetitionVote(svc petitions.Service, recorder voteRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petitionID, err := validators.ParseUUIDParam(r, "petitionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input petitions.VoteInput
		if err := validators.DecodeForm(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Vote(r.Context(), petitionID, currentUserID(r), input.VoteType)
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			flashError(r, "Invalid vote.")
			responses.Redirect(w, r, petitionsURL)
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if recorder != nil {
			recorder.VoteCast(string(outcome))
		}
		switch outcome {
		case petitions.VoteCreated:
			flashSuccess(r, "Your vote was recorded.")
		case petitions.VoteChanged:
			flashSuccess(r, "Your vote was changed.")
		default:
			flashInfo(r, "You already voted that way.")
		}
		responses.Redirect(w, r, petitionsURL)
	}
}

func PetitionDelete(svc petitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petitionID, err := validators.ParseUUIDParam(r, "petitionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), petitionID, currentUserID(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flashSuccess(r, "Your petition was deleted.")
		responses.Redirect(w, r, petitionsURL)
	}
}
