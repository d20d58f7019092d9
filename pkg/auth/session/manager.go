package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/auth"
	"github.com/angelmondragon/moviestore/pkg/config"
)

const csrfTokenBytes = 32

// Manager loads and persists sessions and issues the signed cookie.
type Manager struct {
	store Store
	cfg   config.SessionConfig
	now   func() time.Time
}

func NewManager(store Store, cfg config.SessionConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "moviestore_session"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "moviestore"
	}
	return &Manager{store: store, cfg: cfg, now: time.Now}, nil
}

// CookieName is the cookie carrying the session token.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// New returns an empty, unsaved session.
func (m *Manager) New() (*Session, error) {
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		Cart:      map[string]int{},
		CSRFToken: csrf,
		isNew:     true,
	}, nil
}

// Load resolves the cookie token into a session. Missing, forged, expired or
// evicted sessions silently start over; only store failures are returned.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return m.New()
	}
	claims, err := auth.ParseSessionToken(m.cfg, token)
	if err != nil {
		return m.New()
	}

	raw, err := m.store.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return m.New()
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return m.New()
	}
	sess.ID = claims.SessionID()
	if sess.Cart == nil {
		sess.Cart = map[string]int{}
	}
	if sess.CSRFToken == "" {
		if sess.CSRFToken, err = randomToken(); err != nil {
			return nil, err
		}
		sess.modified = true
	}
	return sess, nil
}

// Save persists the session and returns a freshly signed cookie token.
func (m *Manager) Save(ctx context.Context, sess *Session) (string, error) {
	if sess == nil || sess.ID == "" {
		return "", fmt.Errorf("session is required")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Put(ctx, sess.ID, raw, m.cfg.TTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	token, err := auth.MintSessionToken(m.cfg, m.now(), sess.ID)
	if err != nil {
		return "", err
	}
	sess.modified = false
	sess.isNew = false
	return token, nil
}

// Login binds the user and rotates the session id; the cart carries over.
func (m *Manager) Login(ctx context.Context, sess *Session, userID uuid.UUID) error {
	if err := m.rotate(ctx, sess); err != nil {
		return err
	}
	sess.setUser(userID)
	return nil
}

// Flush discards everything, including the cart, and starts a new session.
func (m *Manager) Flush(ctx context.Context, sess *Session) error {
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fresh, err := m.New()
	if err != nil {
		return err
	}
	*sess = *fresh
	return nil
}

func (m *Manager) rotate(ctx context.Context, sess *Session) error {
	if sess.ID != "" && !sess.isNew {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	csrf, err := randomToken()
	if err != nil {
		return err
	}
	sess.ID = uuid.NewString()
	sess.CSRFToken = csrf
	sess.modified = true
	return nil
}

// Cookie builds the Set-Cookie value for token.
func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
