package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/api/middleware"
	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
)

// newPage seeds a template page with the request's user, pending flashes and
// CSRF token.
func newPage(r *http.Request, title string, data any) responses.Page {
	page := responses.Page{Title: title, Data: data}
	page.User = middleware.UserFromContext(r.Context())
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		page.Flashes = sess.PopFlashes()
		page.CSRFToken = sess.CSRFToken
	}
	return page
}

func currentUserID(r *http.Request) uuid.UUID {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return uuid.Nil
}

func flash(r *http.Request, level, message string) {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(level, message)
	}
}

func flashSuccess(r *http.Request, message string) { flash(r, session.FlashSuccess, message) }

func flashInfo(r *http.Request, message string) { flash(r, session.FlashInfo, message) }

func flashError(r *http.Request, message string) { flash(r, session.FlashError, message) }

func requestSession(r *http.Request) (*session.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session middleware not installed")
	}
	return sess, nil
}

// formStatus is the status used when a form is re-rendered because of err.
func formStatus(err error) int {
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.MetadataFor(typed.Code()).HTTPStatus
	}
	return pkgerrors.MetadataFor(pkgerrors.CodeValidation).HTTPStatus
}
