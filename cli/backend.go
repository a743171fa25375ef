// ABOUTME: Backend factory plus the seed and charm sync commands
// ABOUTME: Opens SQLite, fixture, charm, or remote record stores from config
package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/pagen-admin/charm"
	"github.com/harperreed/pagen-admin/config"
	"github.com/harperreed/pagen-admin/db"
	"github.com/harperreed/pagen-admin/remote"
	"github.com/harperreed/pagen-admin/store"
)

var errNotCharm = errors.New("sync commands need the charm backend (--backend charm)")

// importer is a backend that can take records with their identities intact.
type importer interface {
	Import(ctx context.Context, collection string, records []store.Record) (int, error)
}

func openBackend(cfg *config.Config, logger *log.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("sqlite backend", "path", cfg.DBPath)
		return s, nil
	case config.BackendFixture:
		return store.NewFixtureBackend(cfg.FixtureLatency)
	case config.BackendCharm:
		client, err := charm.NewClient(&cfg.Charm)
		if err != nil {
			return nil, err
		}
		logger.Debug("charm backend", "host", cfg.Charm.Host)
		return charm.NewStore(client), nil
	case config.BackendRemote:
		return remote.New(cfg.RemoteURL, cfg.RemoteTimeout, logger)
	}
	return nil, fmt.Errorf("unknown backend %q: %w", cfg.Backend, config.ErrInvalidConfig)
}

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Import the bundled sample records into the configured backend",
		Long: `Copies the sample contacts, companies, deals, quotes, transactions, and
activities into the SQLite or charm store, keeping their IDs. Records with
the same ID are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			target, ok := ws.Backend().(importer)
			if !ok {
				return errors.New("the configured backend cannot be seeded")
			}

			fixtures, err := store.Fixtures()
			if err != nil {
				return err
			}
			collections := make([]string, 0, len(fixtures))
			for name := range fixtures {
				collections = append(collections, name)
			}
			sort.Strings(collections)

			out := cmd.OutOrStdout()
			for _, name := range collections {
				n, err := target.Import(cmd.Context(), name, fixtures[name])
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", name, err)
				}
				fmt.Fprintf(out, "✓ %s: %d records\n", name, n)
			}
			return nil
		},
	}
}

func (a *app) syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage charm KV sync",
	}

	var verbose, confirm bool

	charmStore := func() (*charm.Store, error) {
		ws, err := a.workspace()
		if err != nil {
			return nil, err
		}
		s, ok := ws.Backend().(*charm.Store)
		if !ok {
			return nil, errNotCharm
		}
		return s, nil
	}

	link := &cobra.Command{
		Use:   "link",
		Short: "Link this device to the charm server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := charmStore()
			if err != nil {
				return err
			}
			return charm.Link(cmd.OutOrStdout(), s.Client())
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show sync settings and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := charmStore()
			if err != nil {
				return err
			}
			return charm.Status(cmd.OutOrStdout(), s)
		},
	}

	now := &cobra.Command{
		Use:   "now",
		Short: "Sync immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := charmStore()
			if err != nil {
				return err
			}
			return charm.SyncNow(cmd.OutOrStdout(), s.Client(), verbose)
		},
	}
	now.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print progress")

	unlink := &cobra.Command{
		Use:   "unlink",
		Short: "Explain how to unlink this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			charm.Unlink(cmd.OutOrStdout())
			return nil
		},
	}

	wipe := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every local record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := charmStore()
			if err != nil {
				return err
			}
			return charm.Wipe(cmd.OutOrStdout(), s.Client(), confirm)
		},
	}
	wipe.Flags().BoolVar(&confirm, "confirm", false, "Really delete everything")

	cmd.AddCommand(link, status, now, unlink, wipe)
	return cmd
}
