package storage

import (
	"github.com/maruel/roomdb/internal/csvdb"
)

// ResourceService manages bookable equipment.
type ResourceService struct {
	*repository
}

// Upsert writes a resource whose id is chosen by the caller. An existing
// resource with that id has the supplied fields replaced; otherwise the
// resource is appended. The allocator is not consulted.
func (s *ResourceService) Upsert(rec csvdb.Record) (csvdb.Record, error) {
	return s.upsert(rec)
}
