package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
	"github.com/maruel/roomdb/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCreds = apierrors.Unauthorized("invalid credentials")
	errInactiveUser = apierrors.Unauthorized("account is inactive")
)

// UserService handles user accounts and authentication.
//
// Passwords are stored as bcrypt hashes and never returned.
type UserService struct {
	*repository
}

func newUserService(repo *repository) *UserService {
	s := &UserService{repository: repo}
	repo.encode = hashPassword
	return s
}

func hashPassword(stored *csvdb.Record, input csvdb.Record) error {
	pwd, ok := input.Lookup(models.UserPassword)
	if !ok {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	stored.Set(models.UserPassword, string(hash))
	return nil
}

// Insert creates a user. The email must not be in use already.
func (s *UserService) Insert(rec csvdb.Record) (csvdb.Record, error) {
	if email := rec.Get(models.UserEmail); email != "" {
		if _, err := s.GetByEmail(email); err == nil {
			return nil, apierrors.Conflict("user already exists").WithField(models.UserEmail)
		} else if apierrors.CodeOf(err) != apierrors.ErrNotFound {
			return nil, err
		}
	}
	stored, err := s.repository.Insert(rec)
	if err != nil {
		return nil, err
	}
	return stored.Without(models.UserPassword), nil
}

// Get retrieves a user by id.
func (s *UserService) Get(id string) (csvdb.Record, error) {
	rec, err := s.repository.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Without(models.UserPassword), nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserService) GetByEmail(email string) (csvdb.Record, error) {
	rec, err := s.byEmail(email)
	if err != nil {
		return nil, err
	}
	return rec.Without(models.UserPassword), nil
}

func (s *UserService) byEmail(email string) (csvdb.Record, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apierrors.MissingField(models.UserEmail)
	}
	rec, ok, err := s.Find(func(r csvdb.Record) bool {
		return strings.EqualFold(r.Get(models.UserEmail), email)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NotFound("user").WithField(models.UserEmail)
	}
	return rec, nil
}

// Update changes the supplied fields of a user. A new password is hashed.
func (s *UserService) Update(rec csvdb.Record) (csvdb.Record, error) {
	if email := rec.Get(models.UserEmail); email != "" {
		other, err := s.byEmail(email)
		if err == nil && other.Get(models.UserID) != rec.Get(models.UserID) {
			return nil, apierrors.Conflict("email already in use").WithField(models.UserEmail)
		}
		if err != nil && apierrors.CodeOf(err) != apierrors.ErrNotFound {
			return nil, err
		}
	}
	stored, err := s.repository.Update(rec)
	if err != nil {
		return nil, err
	}
	return stored.Without(models.UserPassword), nil
}

// List returns up to take users after skipping skip.
func (s *UserService) List(skip, take int) ([]csvdb.Record, error) {
	recs, err := s.repository.List(skip, take)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i] = recs[i].Without(models.UserPassword)
	}
	return recs, nil
}

// Authenticate returns the active user matching email and password.
func (s *UserService) Authenticate(email, password string) (csvdb.Record, error) {
	if email == "" || password == "" {
		return nil, errInvalidCreds
	}
	rec, err := s.byEmail(email)
	if err != nil {
		if apierrors.CodeOf(err) == apierrors.ErrNotFound {
			return nil, errInvalidCreds
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Get(models.UserPassword)), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errInvalidCreds
		}
		return nil, apierrors.Unauthorized("stored password is unusable").Wrap(err)
	}
	if rec.Get(models.UserActive) != "true" {
		return nil, errInactiveUser
	}
	return rec.Without(models.UserPassword), nil
}
