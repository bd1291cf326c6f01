package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
)

const (
	minNameLength  = 3
	maxNameLength  = 100
	maxObservation = 500

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func required(rec csvdb.Record, field string) (string, error) {
	v, ok := rec.Lookup(field)
	if !ok {
		return "", apierrors.MissingField(field)
	}
	return v, nil
}

func nonEmpty(rec csvdb.Record, field string) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	if strings.TrimSpace(v) == "" {
		return apierrors.Validation(field, "cannot be empty")
	}
	return nil
}

func length(rec csvdb.Record, field string, lo, hi int) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(v); n < lo || n > hi {
		return apierrors.Validation(field, fmt.Sprintf("must have between %d and %d characters", lo, hi))
	}
	return nil
}

func oneOf(rec csvdb.Record, field string, valid ...string) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	if !slices.Contains(valid, v) {
		return apierrors.Validation(field, "must be one of "+strings.Join(valid, ", ")).WithDetail("value", v)
	}
	return nil
}

func digits(field, v string) error {
	if v == "" {
		return apierrors.Validation(field, "cannot be empty")
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return apierrors.InvalidFormat(field, "a positive integer")
		}
	}
	return nil
}

func numeric(rec csvdb.Record, field string) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	return digits(field, v)
}

func intRange(rec csvdb.Record, field string, lo, hi int) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return apierrors.InvalidFormat(field, "an integer")
	}
	if n < lo || n > hi {
		return apierrors.Validation(field, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return nil
}

func observation(rec csvdb.Record, field string) error {
	if v, ok := rec.Lookup(field); ok && utf8.RuneCountInString(v) > maxObservation {
		return apierrors.Validation(field, fmt.Sprintf("must have at most %d characters", maxObservation))
	}
	return nil
}

func date(rec csvdb.Record, field string) error {
	v, err := required(rec, field)
	if err != nil {
		return err
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return apierrors.InvalidFormat(field, "a date formatted as YYYY-MM-DD")
	}
	return nil
}

func clock(rec csvdb.Record, field string) (time.Time, error) {
	v, err := required(rec, field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil || len(v) != len(timeLayout) {
		return time.Time{}, apierrors.InvalidFormat(field, "a time formatted as HH:MM")
	}
	return t, nil
}

// CheckEmail verifies email belongs to domain, ignoring case, and has a
// non-empty local part.
func CheckEmail(email, domain string) error {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	if strings.TrimSpace(email) == "" {
		return apierrors.MissingField(UserEmail)
	}
	lower := strings.ToLower(email)
	if !strings.HasSuffix(lower, strings.ToLower(domain)) {
		return apierrors.Validation(UserEmail, "must belong to the "+domain+" domain")
	}
	if len(lower) == len(domain) {
		return apierrors.Validation(UserEmail, "local part cannot be empty")
	}
	return nil
}

// checkAll returns the first error of checks.
func checkAll(checks ...func() error) error {
	for _, c := range checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}
