// Package models describes the record kinds stored by roomdb: their file
// names, columns, and validation rules.
package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
)

// Kind names a record kind.
type Kind string

// Record kinds.
const (
	KindUsers                Kind = "users"
	KindRooms                Kind = "rooms"
	KindResources            Kind = "resources"
	KindRoomReservations     Kind = "room-reservations"
	KindResourceReservations Kind = "resource-reservations"
)

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindUsers, KindRooms, KindResources, KindRoomReservations, KindResourceReservations}
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return k, nil
}

// DefaultEmailDomain is the domain user emails must belong to unless
// configured otherwise.
const DefaultEmailDomain = "@fatec.sp.gov.br"

// Entity describes how one kind is stored and validated.
type Entity struct {
	Kind Kind
	// File is the default table file name, relative to the data directory.
	File string
	// IDField holds the numeric id assigned on insert.
	IDField string
	// Fields lists every column in header order. IDField comes first.
	Fields   []string
	validate func(csvdb.Record) error
}

// Validate checks rec against the kind's rules. The id field is optional;
// when present it must be a positive integer.
func (e *Entity) Validate(rec csvdb.Record) error {
	for _, f := range rec {
		if !slices.Contains(e.Fields, f.Name) {
			return apierrors.Validation(f.Name, "unknown field")
		}
		if strings.ContainsAny(f.Value, csvdb.Delimiter+"\r\n") {
			return apierrors.InvalidFormat(f.Name, "free of commas and line breaks")
		}
	}
	if v, ok := rec.Lookup(e.IDField); ok {
		if err := digits(e.IDField, v); err != nil {
			return err
		}
	}
	return e.validate(rec)
}

// Normalize returns rec with exactly the entity's fields, in header order.
// Absent fields are set to "".
func (e *Entity) Normalize(rec csvdb.Record) csvdb.Record {
	out := make(csvdb.Record, 0, len(e.Fields))
	for _, name := range e.Fields {
		out = append(out, csvdb.Field{Name: name, Value: rec.Get(name)})
	}
	return out
}

// Header returns the table header line of the entity.
func (e *Entity) Header() csvdb.Header {
	return csvdb.Header(slices.Clone(e.Fields))
}

// Entities returns the descriptors of every kind. emailDomain constrains user
// emails; empty means DefaultEmailDomain.
func Entities(emailDomain string) []*Entity {
	return []*Entity{
		Users(emailDomain),
		Rooms(),
		Resources(),
		RoomReservations(),
		ResourceReservations(),
	}
}

// Lookup returns the descriptor of kind.
func Lookup(kind Kind, emailDomain string) (*Entity, error) {
	for _, e := range Entities(emailDomain) {
		if e.Kind == kind {
			return e, nil
		}
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}
