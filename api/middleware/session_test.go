package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/models"
)

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(session.NewMemoryStore(), config.SessionConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)
	return m
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionIssuesCookieAndPersistsCart(t *testing.T) {
	manager := newManager(t)
	movieID := uuid.NewString()
	handler := Session(manager, stubUsers{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		require.NotNil(t, sess)
		lines := sess.Lines()
		lines[movieID]++
		sess.SetLines(lines)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/add/x/", nil))
	cookie := sessionCookie(t, rec, manager.CookieName())
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodPost, "/cart/add/x/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	next := sessionCookie(t, rec, manager.CookieName())
	require.NotNil(t, next)
	sess, err := manager.Load(context.Background(), next.Value)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Lines()[movieID])
}

func TestSessionDropsDeletedUser(t *testing.T) {
	manager := newManager(t)
	sess, err := manager.New()
	require.NoError(t, err)
	require.NoError(t, manager.Login(context.Background(), sess, uuid.New()))
	token, err := manager.Save(context.Background(), sess)
	require.NoError(t, err)

	var seen *models.User
	handler := Session(manager, stubUsers{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		assert.False(t, SessionFromContext(r.Context()).IsAuthenticated())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(manager.Cookie(token))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)
}

func TestSessionLoadsActiveUser(t *testing.T) {
	manager := newManager(t)
	user := &models.User{ID: uuid.New(), Username: "alice", IsActive: true}
	sess, err := manager.New()
	require.NoError(t, err)
	require.NoError(t, manager.Login(context.Background(), sess, user.ID))
	token, err := manager.Save(context.Background(), sess)
	require.NoError(t, err)

	var seen *models.User
	handler := Session(manager, stubUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = UserFromContext(r.Context())
		}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(manager.Cookie(token))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	manager := newManager(t)
	var token string
	handler := Session(manager, stubUsers{}, nil)(CSRF(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = SessionFromContext(r.Context()).CSRFToken
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec, manager.CookieName())
	require.NotNil(t, cookie)

	post := func(csrf string) int {
		form := url.Values{CSRFField: {csrf}}
		req := httptest.NewRequest(http.MethodPost, "/cart/clear/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusForbidden, post("wrong"))
	assert.Equal(t, http.StatusForbidden, post(""))
	assert.Equal(t, http.StatusOK, post(token))
}

func TestRequireLoginRedirects(t *testing.T) {
	handler := RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Forders%2F", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: uuid.New()}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommitSessionSavesBeforeResponse(t *testing.T) {
	manager := newManager(t)
	movieID := uuid.NewString()
	var sessionID string
	handler := Session(manager, stubUsers{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		sess.SetLines(map[string]int{movieID: 1})
		require.NoError(t, CommitSession(r.Context()))
		sessionID = sess.ID

		cookie, err := http.ParseSetCookie(w.Header().Get("Set-Cookie"))
		require.NoError(t, err)
		stored, err := manager.Load(r.Context(), cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Lines()[movieID])
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/", nil))
	assert.NotEmpty(t, sessionID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestCommitSessionOutsideMiddlewareIsNoop(t *testing.T) {
	assert.NoError(t, CommitSession(context.Background()))
}
