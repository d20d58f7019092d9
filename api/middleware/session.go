package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

type sessionManager interface {
	CookieName() string
	Load(ctx context.Context, token string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) (string, error)
	Cookie(token string) *http.Cookie
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Session loads the cookie session and the logged-in user into the request
// context. A changed session is saved, and its cookie set, right before the
// response headers go out.
func Session(manager sessionManager, users userLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := ""
			if c, err := r.Cookie(manager.CookieName()); err == nil {
				token = c.Value
			}
			sess, err := manager.Load(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session"))
				return
			}
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID)
			}

			if userID, ok := sess.UserUUID(); ok {
				user, err := users.FindByID(ctx, userID)
				switch {
				case err == nil && user.IsActive:
					ctx = WithUser(ctx, user)
					if logg != nil {
						ctx = logg.WithUserID(ctx, user.ID.String())
					}
				case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
					// Account removed or disabled since login.
					sess.ClearUser()
				default:
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session user"))
					return
				}
			}
			ctx = WithSession(ctx, sess)

			sw := &sessionWriter{ResponseWriter: w, commit: func() error {
				if !sess.Modified() {
					return nil
				}
				token, err := manager.Save(ctx, sess)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
				}
				http.SetCookie(w, manager.Cookie(token))
				return nil
			}}
			ctx = context.WithValue(ctx, ctxCommit, sw.flush)
			next.ServeHTTP(sw, r.WithContext(ctx))
			if err := sw.flush(); err != nil && logg != nil {
				logg.Error(ctx, "session.save_failed", err)
			}
		})
	}
}

// CommitSession saves the request session now instead of when the response
// starts. Handlers call it before reporting an outcome that must not be lost,
// such as a placed order or a login. Later changes to the session in the same
// request are not saved.
func CommitSession(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if commit, ok := ctx.Value(ctxCommit).(func() error); ok {
		return commit()
	}
	return nil
}

type sessionWriter struct {
	http.ResponseWriter
	commit func() error
	once   sync.Once
	err    error
}

func (w *sessionWriter) flush() error {
	w.once.Do(func() { w.err = w.commit() })
	return w.err
}

func (w *sessionWriter) WriteHeader(status int) {
	_ = w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	_ = w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
