package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maruel/roomdb/internal/config"
	"github.com/maruel/roomdb/internal/history"
	"github.com/maruel/roomdb/internal/models"
	"github.com/maruel/roomdb/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd(out io.Writer, level *slog.LevelVar) *cobra.Command {
	a := &app{out: out, level: level}
	root := &cobra.Command{
		Use:           "roomdb",
		Short:         "Manage room and resource bookings stored in flat files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.StringVar(&a.dataDir, "data-dir", "./data", "Data directory")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error); overrides roomdb.yaml")
	pf.StringVar(&a.email, "email", "", "Email of the acting user (default $ROOMDB_EMAIL)")
	pf.StringVar(&a.password, "password", "", "Password to log in with (default $ROOMDB_PASSWORD)")

	root.AddCommand(
		newUsersCmd(a),
		newRoomsCmd(a),
		newResourcesCmd(a),
		newReservationsCmd(a, false),
		newReservationsCmd(a, true),
		newConfigCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printVersion(out)
			},
		},
	)
	return root
}

// withStore opens the store before running fn.
func (a *app) withStore(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Flags().Changed("log-level")); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

// withRepo opens the store and runs fn with the repository of kind.
func (a *app) withRepo(kind models.Kind, fn func(repo storage.Repository, args []string) error) func(*cobra.Command, []string) error {
	return a.withStore(func(cmd *cobra.Command, args []string) error {
		repo, err := a.store.Repository(kind)
		if err != nil {
			return err
		}
		return fn(repo, args)
	})
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON Schema of roomdb.yaml",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := config.Schema()
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.loadConfig(cmd.Flags().Changed("log-level")); err != nil {
					return err
				}
				enc := yaml.NewEncoder(a.out)
				enc.SetIndent(2)
				if err := enc.Encode(a.cfg); err != nil {
					return err
				}
				return enc.Close()
			},
		},
	)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	n := 20
	cmd := &cobra.Command{
		Use:   "history [FILE]",
		Short: "List snapshots of the table files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd.Flags().Changed("log-level")); err != nil {
				return err
			}
			if !a.cfg.History {
				return errors.New("history is disabled; set history: true in " + config.FileName)
			}
			rec, err := history.Open(a.dataDir, nil)
			if err != nil {
				return err
			}
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			commits, err := rec.Log(file, n)
			if err != nil {
				return err
			}
			for _, c := range commits {
				if _, err := fmt.Fprintf(a.out, "%.10s %s %s %s\n", c.Hash, c.When.Format("2006-01-02 15:04:05"), c.Author, c.Message); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", n, "Maximum number of snapshots")
	return cmd
}
