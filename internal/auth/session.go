package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no session token")

// Session is the authenticated technician identity handed to the ticket
// lifecycle. It is read-only once built; whoever performs the login owns
// its creation.
type Session struct {
	token        string
	technicianID string
	name         string
	expiresAt    time.Time
}

// NewSession builds a session around a bearer token issued by the ISP
// backend. The token is decoded without signature verification: only the
// backend holds the key, the client reads identity for display.
func NewSession(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	s := &Session{token: token}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		s.technicianID = claims.TechnicianID
		if s.technicianID == "" {
			s.technicianID = claims.Subject
		}
		s.name = claims.Name
		if claims.ExpiresAt != nil {
			s.expiresAt = claims.ExpiresAt.Time
		}
	}

	return s, nil
}

func (s *Session) TechnicianID() string { return s.technicianID }

func (s *Session) Name() string { return s.name }

// Expired reports whether the token carries an expiry that lies before now.
// Opaque tokens never expire from the client's point of view.
func (s *Session) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}

func (s *Session) Authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
}
