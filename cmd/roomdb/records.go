package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/maruel/roomdb/internal/csvdb"
	"github.com/maruel/roomdb/internal/models"
	"github.com/maruel/roomdb/internal/storage"
	"github.com/spf13/cobra"
)

const addHelp = `Insert a record; its id is assigned automatically.

Ids start at 1 in every run unless roomdb.yaml sets sequence_seed: max, so
under the default a second add in a new run fails with CONFLICT.`

// newKindCmd returns the command managing one kind with the operations every
// kind supports.
func newKindCmd(a *app, kind models.Kind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
	}

	skip, take := 0, 20
	list := &cobra.Command{
		Use:   "list",
		Short: "List records in file order",
		Args:  cobra.NoArgs,
		RunE: a.withRepo(kind, func(repo storage.Repository, args []string) error {
			recs, err := repo.List(skip, take)
			if err != nil {
				return err
			}
			return printRecords(a.out, repo.Entity(), recs)
		}),
	}
	list.Flags().IntVar(&skip, "skip", skip, "Number of records to skip")
	list.Flags().IntVar(&take, "take", take, "Maximum number of records to print")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "get ID",
			Short: "Print one record",
			Args:  cobra.ExactArgs(1),
			RunE: a.withRepo(kind, func(repo storage.Repository, args []string) error {
				rec, err := repo.Get(args[0])
				if err != nil {
					return err
				}
				return printRecord(a.out, rec)
			}),
		},
		&cobra.Command{
			Use:   "add FIELD=VALUE...",
			Short: "Insert a record; its id is assigned automatically",
			Long:  addHelp,
			Args:  cobra.MinimumNArgs(1),
			RunE: a.withRepo(kind, func(repo storage.Repository, args []string) error {
				rec, err := parseFields(args)
				if err != nil {
					return err
				}
				stored, err := repo.Insert(rec)
				if err != nil {
					return err
				}
				return printRecord(a.out, stored)
			}),
		},
		&cobra.Command{
			Use:   "update ID FIELD=VALUE...",
			Short: "Change fields of a record",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.withRepo(kind, func(repo storage.Repository, args []string) error {
				rec, err := withID(repo.Entity(), args[0], args[1:])
				if err != nil {
					return err
				}
				stored, err := repo.Update(rec)
				if err != nil {
					return err
				}
				return printRecord(a.out, stored)
			}),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a record",
			Args:  cobra.ExactArgs(1),
			RunE: a.withRepo(kind, func(repo storage.Repository, args []string) error {
				if err := repo.Delete(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(a.out, "deleted %s %s\n", kind, args[0])
				return err
			}),
		},
	)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := newKindCmd(a, models.KindUsers, "Manage user accounts")
	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Check the credentials given with --email and --password",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if a.email == "" || a.password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			_, err := fmt.Fprintf(a.out, "logged in as %s\n", a.session.Email())
			return err
		}),
	})
	return cmd
}

func newRoomsCmd(a *app) *cobra.Command {
	return newKindCmd(a, models.KindRooms, "Manage rooms")
}

func newResourcesCmd(a *app) *cobra.Command {
	cmd := newKindCmd(a, models.KindResources, "Manage resources")
	cmd.AddCommand(&cobra.Command{
		Use:   "upsert ID FIELD=VALUE...",
		Short: "Insert or replace a resource with a chosen id",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			rec, err := withID(a.store.Resources.Entity(), args[0], args[1:])
			if err != nil {
				return err
			}
			stored, err := a.store.Resources.Upsert(rec)
			if err != nil {
				return err
			}
			return printRecord(a.out, stored)
		}),
	})
	return cmd
}

func newReservationsCmd(a *app, resources bool) *cobra.Command {
	kind, short := models.KindRoomReservations, "Manage room reservations"
	if resources {
		kind, short = models.KindResourceReservations, "Manage resource reservations"
	}
	service := func() *storage.ReservationService {
		if resources {
			return a.store.ResourceReservations
		}
		return a.store.RoomReservations
	}
	cmd := newKindCmd(a, kind, short)

	skip, take := 0, 20
	mine := &cobra.Command{
		Use:   "by-user USER_ID",
		Short: "List the reservations of a user",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			recs, err := service().ListByUser(args[0], skip, take)
			if err != nil {
				return err
			}
			return printRecords(a.out, service().Entity(), recs)
		}),
	}
	mine.Flags().IntVar(&skip, "skip", skip, "Number of reservations to skip")
	mine.Flags().IntVar(&take, "take", take, "Maximum number of reservations to print")

	cmd.AddCommand(
		mine,
		&cobra.Command{
			Use:   "cancel ID",
			Short: "Mark a reservation as cancelled",
			Args:  cobra.ExactArgs(1),
			RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
				rec, err := service().Cancel(args[0])
				if err != nil {
					return err
				}
				return printRecord(a.out, rec)
			}),
		},
	)
	return cmd
}

// parseFields parses FIELD=VALUE arguments. A repeated field keeps the last
// value.
func parseFields(args []string) (csvdb.Record, error) {
	var rec csvdb.Record
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected FIELD=VALUE, got %q", arg)
		}
		rec.Set(k, v)
	}
	return rec, nil
}

func withID(e *models.Entity, id string, args []string) (csvdb.Record, error) {
	fields, err := parseFields(args)
	if err != nil {
		return nil, err
	}
	if fields.Has(e.IDField) {
		return nil, fmt.Errorf("%s is given as the first argument", e.IDField)
	}
	return csvdb.NewRecord(e.IDField, id).Merge(fields), nil
}

// printRecords prints recs as an aligned table of the entity's columns that
// the records carry.
func printRecords(w io.Writer, e *models.Entity, recs []csvdb.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}
	cols := slices.DeleteFunc(slices.Clone(e.Fields), func(name string) bool {
		return !recs[0].Has(name)
	})
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range recs {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = r.Get(c)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	return tw.Flush()
}

func printRecord(w io.Writer, rec csvdb.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, f := range rec {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", f.Name, f.Value)
	}
	return tw.Flush()
}
