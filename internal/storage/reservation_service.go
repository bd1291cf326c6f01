package storage

import (
	"github.com/maruel/roomdb/internal/csvdb"
	"github.com/maruel/roomdb/internal/models"
)

// ReservationService manages bookings of rooms or of resources.
type ReservationService struct {
	*repository
}

// ListByUser returns up to take reservations made by userID after skipping
// skip of them.
func (s *ReservationService) ListByUser(userID string, skip, take int) ([]csvdb.Record, error) {
	return s.ListWhere(func(r csvdb.Record) bool {
		return r.Get(models.ReservationUserID) == userID
	}, skip, take)
}

// ListActive returns up to take reservations whose status is active.
func (s *ReservationService) ListActive(skip, take int) ([]csvdb.Record, error) {
	return s.ListWhere(func(r csvdb.Record) bool {
		return r.Get(models.ReservationStatus) == models.StatusActive
	}, skip, take)
}

// Cancel marks a reservation as cancelled.
func (s *ReservationService) Cancel(id string) (csvdb.Record, error) {
	return s.Update(csvdb.NewRecord(
		s.entity.IDField, id,
		models.ReservationStatus, models.StatusCancelled,
	))
}
