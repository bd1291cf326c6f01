package storage

// RoomService manages bookable rooms.
type RoomService struct {
	*repository
}
