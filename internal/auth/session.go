// Package auth tracks the user a roomdb process acts on behalf of.
package auth

import (
	"strings"
	"sync"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
	"github.com/maruel/roomdb/internal/models"
)

// Authenticator verifies credentials and returns the matching user.
type Authenticator interface {
	Authenticate(email, password string) (csvdb.Record, error)
}

// Session holds the email of the logged-in user, if any.
type Session struct {
	domain string

	mu    sync.RWMutex
	email string
	user  csvdb.Record
}

// NewSession returns an anonymous session accepting emails of domain. An
// empty domain means models.DefaultEmailDomain.
func NewSession(domain string) *Session {
	if domain == "" {
		domain = models.DefaultEmailDomain
	}
	return &Session{domain: domain}
}

// SetEmail records email as the acting user without checking a password.
func (s *Session) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if err := models.CheckEmail(email, s.domain); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
	s.user = nil
	return nil
}

// Login authenticates email and password through a and makes the user the
// acting user. A failed login leaves the session unchanged.
func (s *Session) Login(a Authenticator, email, password string) (csvdb.Record, error) {
	email = strings.TrimSpace(email)
	if err := models.CheckEmail(email, s.domain); err != nil {
		return nil, apierrors.Unauthorized("invalid email").Wrap(err)
	}
	user, err := a.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = user.Get(models.UserEmail)
	s.user = user
	return user, nil
}

// Logout clears the session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = ""
	s.user = nil
}

// Email returns the acting user's email, or "" when anonymous.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// User returns the authenticated user record, or nil when the session was
// set without a password check.
func (s *Session) User() csvdb.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}
