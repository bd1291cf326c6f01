// Package storage exposes one service per record kind on top of csvdb tables
// in a data directory.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/roomdb/internal/csvdb"
	"github.com/maruel/roomdb/internal/models"
)

// Options configures Open.
type Options struct {
	// DataDir holds the table files. Required.
	DataDir string
	// Files overrides the file name of a kind, relative to DataDir.
	Files map[models.Kind]string
	// SeedPolicy decides where id sequences start. Defaults to csvdb.SeedOne.
	SeedPolicy csvdb.SeedPolicy
	// EmailDomain constrains user emails. Defaults to models.DefaultEmailDomain.
	EmailDomain string
	Logger      *slog.Logger
	// Observers are notified of every table write.
	Observers []csvdb.Observer
}

// Store holds the services of every kind.
type Store struct {
	Users                *UserService
	Rooms                *RoomService
	Resources            *ResourceService
	RoomReservations     *ReservationService
	ResourceReservations *ReservationService

	dataDir   string
	sequences *csvdb.Sequences
	repos     map[models.Kind]Repository
}

// Open prepares the store in opts.DataDir, creating the directory if needed.
// Table files are created by their first write.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		dataDir:   opts.DataDir,
		sequences: csvdb.NewSequences(),
		repos:     make(map[models.Kind]Repository),
	}
	for _, e := range models.Entities(opts.EmailDomain) {
		repo, err := s.openRepository(e, opts, logger)
		if err != nil {
			return nil, err
		}
		switch e.Kind {
		case models.KindUsers:
			s.Users = newUserService(repo)
			s.repos[e.Kind] = s.Users
		case models.KindRooms:
			s.Rooms = &RoomService{repository: repo}
			s.repos[e.Kind] = s.Rooms
		case models.KindResources:
			s.Resources = &ResourceService{repository: repo}
			s.repos[e.Kind] = s.Resources
		case models.KindRoomReservations:
			s.RoomReservations = &ReservationService{repository: repo}
			s.repos[e.Kind] = s.RoomReservations
		case models.KindResourceReservations:
			s.ResourceReservations = &ReservationService{repository: repo}
			s.repos[e.Kind] = s.ResourceReservations
		}
	}
	logger.Debug("Store opened", "dir", opts.DataDir, "seed", opts.SeedPolicy)
	return s, nil
}

func (s *Store) openRepository(e *models.Entity, opts Options, logger *slog.Logger) (*repository, error) {
	name := e.File
	if f := opts.Files[e.Kind]; f != "" {
		name = f
	}
	tableOpts := []csvdb.Option{csvdb.WithLogger(logger.With("kind", e.Kind))}
	for _, o := range opts.Observers {
		tableOpts = append(tableOpts, csvdb.WithObserver(o))
	}
	table, err := csvdb.NewTable(filepath.Join(opts.DataDir, name), tableOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s table: %w", e.Kind, err)
	}
	seq, err := csvdb.Seed(table, e.IDField, opts.SeedPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to seed %s ids: %w", e.Kind, err)
	}
	s.sequences.Set(string(e.Kind), seq)
	return &repository{entity: e, table: table, seq: s.sequences.For(string(e.Kind))}, nil
}

// DataDir returns the directory holding the tables.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Repository returns the service of kind through the common interface.
func (s *Store) Repository(kind models.Kind) (Repository, error) {
	r, ok := s.repos[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return r, nil
}

// Tables returns the table file of every kind.
func (s *Store) Tables() map[models.Kind]string {
	out := make(map[models.Kind]string, len(s.repos))
	for kind, r := range s.repos {
		if t, ok := r.(interface{ Table() *csvdb.Table }); ok {
			out[kind] = t.Table().Path()
		}
	}
	return out
}
