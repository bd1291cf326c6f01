package storage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
	"github.com/maruel/roomdb/internal/models"
)

// Repository is the set of operations every record kind supports.
type Repository interface {
	Entity() *models.Entity
	Insert(rec csvdb.Record) (csvdb.Record, error)
	Get(id string) (csvdb.Record, error)
	Update(rec csvdb.Record) (csvdb.Record, error)
	Delete(id string) error
	List(skip, take int) ([]csvdb.Record, error)
}

// repository implements Repository over one table.
type repository struct {
	entity *models.Entity
	table  *csvdb.Table
	seq    *csvdb.Sequence
	// encode runs after validation, before stored is written. input is the
	// caller's record.
	encode func(stored *csvdb.Record, input csvdb.Record) error
}

func (r *repository) key() csvdb.KeyFunc {
	return csvdb.FieldKey(r.entity.IDField)
}

// Entity returns the kind's descriptor.
func (r *repository) Entity() *models.Entity {
	return r.entity
}

// Table returns the underlying table.
func (r *repository) Table() *csvdb.Table {
	return r.table
}

// Insert validates rec, assigns it the next id of the kind and appends it.
// rec must not carry an id.
func (r *repository) Insert(rec csvdb.Record) (csvdb.Record, error) {
	if len(rec) == 0 {
		return nil, apierrors.New(apierrors.ErrValidationFailed, "record is empty")
	}
	if rec.Has(r.entity.IDField) {
		return nil, apierrors.Validation(r.entity.IDField, "must not be set on insert")
	}
	if err := r.entity.Validate(rec); err != nil {
		return nil, err
	}
	stored := r.entity.Normalize(rec)
	if err := r.prepare(&stored, rec); err != nil {
		return nil, err
	}
	stored.Set(r.entity.IDField, strconv.FormatInt(r.seq.Next(), 10))
	if err := r.table.InsertUnique(stored, r.key()); err != nil {
		return nil, r.wrap(err)
	}
	return stored, nil
}

// Get returns the record with the given id.
func (r *repository) Get(id string) (csvdb.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierrors.MissingField(r.entity.IDField)
	}
	rec, ok, err := r.table.GetByKey(id, r.key())
	if err != nil {
		return nil, r.wrap(err)
	}
	if !ok {
		return nil, r.notFound(id)
	}
	return rec, nil
}

// Update merges rec over the stored record with the same id. Fields absent
// from rec keep their stored value. The merged record is validated.
func (r *repository) Update(rec csvdb.Record) (csvdb.Record, error) {
	id := rec.Get(r.entity.IDField)
	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	merged := existing.Merge(rec)
	if err := r.entity.Validate(merged); err != nil {
		return nil, err
	}
	stored := r.entity.Normalize(merged)
	if err := r.prepare(&stored, rec); err != nil {
		return nil, err
	}
	if err := r.table.InsertOrUpdate(stored, r.key()); err != nil {
		return nil, r.wrap(err)
	}
	return stored, nil
}

// upsert validates rec, which must carry an id, and writes it: an existing
// record is merged, otherwise rec is appended.
func (r *repository) upsert(rec csvdb.Record) (csvdb.Record, error) {
	id := rec.Get(r.entity.IDField)
	if strings.TrimSpace(id) == "" {
		return nil, apierrors.MissingField(r.entity.IDField)
	}
	if err := r.entity.Validate(rec); err != nil {
		return nil, err
	}
	stored := r.entity.Normalize(rec)
	if _, ok, err := r.table.GetByKey(id, r.key()); err != nil {
		return nil, r.wrap(err)
	} else if ok {
		// Only overwrite the fields the caller supplied.
		stored = project(stored, rec)
	}
	if err := r.prepare(&stored, rec); err != nil {
		return nil, err
	}
	if err := r.table.InsertOrUpdate(stored, r.key()); err != nil {
		return nil, r.wrap(err)
	}
	return r.Get(id)
}

// Delete removes the record with the given id.
func (r *repository) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return apierrors.MissingField(r.entity.IDField)
	}
	removed, err := r.table.Delete(id, r.key())
	if err != nil {
		return r.wrap(err)
	}
	if !removed {
		return r.notFound(id)
	}
	return nil
}

// List returns up to take records after skipping skip, in file order.
func (r *repository) List(skip, take int) ([]csvdb.Record, error) {
	recs, err := r.table.GetRange(skip, take)
	if err != nil {
		return nil, r.wrap(err)
	}
	return recs, nil
}

// ListWhere is List restricted to the records matching pred.
func (r *repository) ListWhere(pred csvdb.Predicate, skip, take int) ([]csvdb.Record, error) {
	recs, err := r.table.GetRangeByPredicate(pred, skip, take)
	if err != nil {
		return nil, r.wrap(err)
	}
	return recs, nil
}

// Find returns the first record matching pred.
func (r *repository) Find(pred csvdb.Predicate) (csvdb.Record, bool, error) {
	rec, ok, err := r.table.GetFirst(pred)
	if err != nil {
		return nil, false, r.wrap(err)
	}
	return rec, ok, nil
}

func (r *repository) prepare(stored *csvdb.Record, input csvdb.Record) error {
	if r.encode == nil {
		return nil
	}
	return r.encode(stored, input)
}

func (r *repository) notFound(id string) error {
	return apierrors.NotFound(string(r.entity.Kind)+" "+id).WithField(r.entity.IDField)
}

// wrap maps store errors to coded errors.
func (r *repository) wrap(err error) error {
	switch {
	case errors.Is(err, csvdb.ErrDuplicateKey):
		return apierrors.Conflict(string(r.entity.Kind)+" id already in use").Wrap(err)
	case errors.Is(err, csvdb.ErrInvalidArgument):
		return apierrors.New(apierrors.ErrValidationFailed, "invalid request").Wrap(err)
	default:
		return apierrors.Storage("failed to access "+string(r.entity.Kind), err)
	}
}

// project keeps the fields of rec that input carries, in rec's order.
func project(rec, input csvdb.Record) csvdb.Record {
	out := make(csvdb.Record, 0, len(input))
	for _, f := range rec {
		if input.Has(f.Name) {
			out = append(out, f)
		}
	}
	return out
}
