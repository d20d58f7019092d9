package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/api/middleware"
	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/api/validators"
	"github.com/angelmondragon/moviestore/internal/auth"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

const postLoginURL = "/movies/"

// SessionManager is the slice of session.Manager the auth pages need.
type SessionManager interface {
	Login(ctx context.Context, sess *session.Session, userID uuid.UUID) error
	Flush(ctx context.Context, sess *session.Session) error
}

// Signup registers a new account and logs it in.
func Signup(svc auth.RegisterService, manager SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			responses.Render(r.Context(), logg, w, http.StatusOK, "signup.html", newPage(r, "Sign up", nil))
			return
		}

		var req auth.RegisterRequest
		err := validators.DecodeForm(r, &req)
		if err == nil {
			var user *models.User
			user, err = svc.Register(r.Context(), req)
			if err == nil {
				flashSuccess(r, "Welcome! Your account was created.")
				err = startSession(r, manager, user.ID)
			}
		}
		if err == nil {
			responses.Redirect(w, r, postLoginURL)
			return
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) && !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := newPage(r, "Sign up", nil)
		page.Form = validators.FormValues(r, "username", "email")
		page.FormErrors = pkgerrors.FieldErrors(err)
		responses.Render(r.Context(), logg, w, formStatus(err), "signup.html", page)
	}
}

// Login authenticates and sends the user to ?next when it is a local path.
func Login(svc auth.Service, manager SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			page := newPage(r, "Log in", nil)
			page.Form = map[string]string{"next": validators.SafeNext(r.URL.Query().Get("next"), "")}
			responses.Render(r.Context(), logg, w, http.StatusOK, "login.html", page)
			return
		}

		var req auth.LoginRequest
		err := validators.DecodeForm(r, &req)
		if err == nil {
			var user *models.User
			user, err = svc.Login(r.Context(), req)
			if err == nil {
				err = startSession(r, manager, user.ID)
			}
		}
		if err == nil {
			responses.Redirect(w, r, validators.SafeNext(r.PostForm.Get("next"), postLoginURL))
			return
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) && !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := newPage(r, "Log in", nil)
		page.Form = validators.FormValues(r, "username", "next")
		page.Form["next"] = validators.SafeNext(page.Form["next"], "")
		page.FormErrors = pkgerrors.FieldErrors(err)
		if len(page.FormErrors) == 0 {
			page.FormErrors = map[string]string{"form": pkgerrors.As(err).Message()}
		}
		responses.Render(r.Context(), logg, w, formStatus(err), "login.html", page)
	}
}

// Logout drops the whole session, cart included.
func Logout(manager SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := manager.Flush(r.Context(), sess); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flush session"))
			return
		}
		responses.Redirect(w, r, "/")
	}
}

func startSession(r *http.Request, manager SessionManager, userID uuid.UUID) error {
	sess, err := requestSession(r)
	if err != nil {
		return err
	}
	if err := manager.Login(r.Context(), sess, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session")
	}
	return middleware.CommitSession(r.Context())
}
