// Allocates numeric record ids.

package csvdb

import (
	"strconv"
)

// SeedPolicy decides the first value of a Sequence.
type SeedPolicy string

const (
	// SeedOne starts every sequence at 1 on each run. Ids issued before a
	// restart collide with new ones; inserts then fail with ErrDuplicateKey.
	SeedOne SeedPolicy = "one"
	// SeedMax starts after the largest numeric id found in the table.
	SeedMax SeedPolicy = "max"
)

// ParseSeedPolicy parses "one" or "max". The empty string means SeedOne.
func ParseSeedPolicy(s string) (SeedPolicy, error) {
	switch p := SeedPolicy(s); p {
	case "":
		return SeedOne, nil
	case SeedOne, SeedMax:
		return p, nil
	default:
		return "", invalidArg("unknown seed policy %q", s)
	}
}

// Sequence is an in-memory monotonic counter. It is not persisted and not
// safe for concurrent use.
type Sequence struct {
	next int64
}

// NewSequence returns a sequence whose first value is start, or 1 if start is
// lower.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: max(start, 1)}
}

// Next returns the current value and advances the counter.
func (s *Sequence) Next() int64 {
	id := s.next
	s.next++
	return id
}

// Peek returns the value the next call to Next will return.
func (s *Sequence) Peek() int64 {
	return s.next
}

// Seed builds the sequence for a table according to policy. SeedMax scans
// field for the largest base-10 value; non-numeric values are ignored.
func Seed(t *Table, field string, policy SeedPolicy) (*Sequence, error) {
	switch policy {
	case "", SeedOne:
		return NewSequence(1), nil
	case SeedMax:
		if t == nil {
			return nil, invalidArg("table is nil")
		}
		if isBlank(field) {
			return nil, invalidArg("id field is blank")
		}
		var highest int64
		for row, err := range t.All() {
			if err != nil {
				return nil, err
			}
			if n, err := strconv.ParseInt(row.Get(field), 10, 64); err == nil && n > highest {
				highest = n
			}
		}
		return NewSequence(highest + 1), nil
	default:
		return nil, invalidArg("unknown seed policy %q", policy)
	}
}

// Sequences holds one Sequence per entity kind.
type Sequences struct {
	byKind map[string]*Sequence
}

// NewSequences returns an empty set of sequences.
func NewSequences() *Sequences {
	return &Sequences{byKind: make(map[string]*Sequence)}
}

// Set installs the sequence of a kind, replacing any previous one.
func (s *Sequences) Set(kind string, seq *Sequence) {
	s.byKind[kind] = seq
}

// For returns the sequence of a kind, creating one starting at 1 if needed.
func (s *Sequences) For(kind string) *Sequence {
	seq, ok := s.byKind[kind]
	if !ok {
		seq = NewSequence(1)
		s.byKind[kind] = seq
	}
	return seq
}

// Next returns the next id of a kind.
func (s *Sequences) Next(kind string) int64 {
	return s.For(kind).Next()
}
