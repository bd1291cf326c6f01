package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/maruel/roomdb/internal/auditlog"
	"github.com/maruel/roomdb/internal/auth"
	"github.com/maruel/roomdb/internal/config"
	"github.com/maruel/roomdb/internal/csvdb"
	"github.com/maruel/roomdb/internal/history"
	"github.com/maruel/roomdb/internal/models"
	"github.com/maruel/roomdb/internal/storage"
)

// app is the state shared by every command.
type app struct {
	// Flags.
	dataDir  string
	logLevel string
	email    string
	password string

	out   io.Writer
	level *slog.LevelVar

	cfg     *config.Config
	session *auth.Session
	audit   *auditlog.Logger
	history *history.Recorder
	store   *storage.Store
}

// loadConfig reads roomdb.yaml and applies the log level. The --log-level
// flag wins over the file.
func (a *app) loadConfig(logLevelSet bool) error {
	cfg, err := config.Load(a.dataDir)
	if err != nil {
		return err
	}
	if logLevelSet {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.level.Set(cfg.Level())
	a.cfg = cfg
	return nil
}

// open wires the store with its observers and logs the user in when
// credentials were given. Environment variables fill in missing flags.
func (a *app) open(logLevelSet bool) error {
	if err := a.loadConfig(logLevelSet); err != nil {
		return err
	}
	a.session = auth.NewSession(a.cfg.EmailDomain)

	var observers []csvdb.Observer
	if path := a.cfg.AuditLogPath(a.dataDir); path != "" {
		l, _, err := auditlog.Open(path, a.session.Email)
		if err != nil {
			return err
		}
		a.audit = l
		observers = append(observers, l)
	}
	if a.cfg.History {
		h, err := history.Open(a.dataDir, a.session.Email)
		if err != nil {
			return err
		}
		a.history = h
		observers = append(observers, h)
	}

	store, err := storage.Open(storage.Options{
		DataDir:     a.dataDir,
		Files:       a.cfg.Files(),
		SeedPolicy:  a.cfg.SeedPolicy(),
		EmailDomain: a.cfg.EmailDomain,
		Logger:      slog.Default(),
		Observers:   observers,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.store = store

	if a.email == "" {
		a.email = os.Getenv("ROOMDB_EMAIL")
	}
	if a.password == "" {
		a.password = os.Getenv("ROOMDB_PASSWORD")
	}
	switch {
	case a.email == "":
	case a.password == "":
		if err := a.session.SetEmail(a.email); err != nil {
			return err
		}
	default:
		if err := a.login(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) login() error {
	user, err := a.session.Login(a.store.Users, a.email, a.password)
	if err != nil {
		a.record(a.email, "LOGIN_FAILED", err.Error())
		return err
	}
	a.record(a.session.Email(), "LOGIN", "User "+user.Get(models.UserID)+" logged in")
	slog.Debug("Logged in", "email", a.session.Email())
	return nil
}

// record appends a row to the operations log if one is configured.
func (a *app) record(user, action, detail string) {
	if a.audit == nil {
		return
	}
	if err := a.audit.Log(user, action, detail); err != nil {
		slog.Warn("Failed to record operation", "action", action, "error", err)
	}
}
