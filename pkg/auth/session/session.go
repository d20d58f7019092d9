package session

import (
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
)

const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Session is the server-side state behind the browser cookie.
type Session struct {
	ID        string         `json:"-"`
	UserID    string         `json:"user_id,omitempty"`
	Cart      map[string]int `json:"cart,omitempty"`
	Flashes   []Flash        `json:"flashes,omitempty"`
	CSRFToken string         `json:"csrf_token"`

	modified bool
	isNew    bool
}

// Lines returns a copy of the cart mapping movie id -> quantity.
func (s *Session) Lines() map[string]int {
	out := make(map[string]int, len(s.Cart))
	for k, v := range s.Cart {
		out[k] = v
	}
	return out
}

// SetLines replaces the cart mapping.
func (s *Session) SetLines(lines map[string]int) {
	s.Cart = make(map[string]int, len(lines))
	for k, v := range lines {
		s.Cart[k] = v
	}
	s.modified = true
}

func (s *Session) AddFlash(level, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
	s.modified = true
}

// PopFlashes returns queued flashes and clears them.
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	s.modified = true
	return out
}

// UserUUID returns the logged-in user, if any.
func (s *Session) UserUUID() (uuid.UUID, bool) {
	if s == nil || s.UserID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.UserUUID()
	return ok
}

func (s *Session) setUser(userID uuid.UUID) {
	s.UserID = userID.String()
	s.modified = true
}

// ValidCSRF compares the submitted token in constant time.
func (s *Session) ValidCSRF(token string) bool {
	token = strings.TrimSpace(token)
	if s == nil || s.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// ClearUser drops the user binding but keeps the cart.
func (s *Session) ClearUser() {
	s.UserID = ""
	s.modified = true
}

// Modified reports whether the session needs persisting.
func (s *Session) Modified() bool {
	return s.modified || s.isNew
}
