// ABOUTME: Root cobra command, global flags, and workspace construction
// ABOUTME: Loads config, builds the logger and metrics, and opens the configured backend
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/pagen-admin/config"
	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/logging"
	"github.com/harperreed/pagen-admin/metrics"
	"github.com/harperreed/pagen-admin/store"
)

// Options configures the command tree. Backend and Now exist for tests; when
// Backend is set it is used instead of the configured one.
type Options struct {
	Version string
	Backend store.Backend
	Now     func() time.Time
}

// app carries state shared by every command of one invocation.
type app struct {
	opts Options

	configPath string
	backend    string
	dbPath     string
	logLevel   string

	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Metrics
	ws      *crm.Workspace
}

// NewRootCommand builds the full pagen-admin command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *app) {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "pagen-admin",
		Short: "Admin console for contacts, companies, deals, quotes, transactions, and activities",
		Long: `pagen-admin manages CRM records from the command line, a terminal UI,
a web admin, or an MCP server.

Records live in SQLite by default. Use --backend to switch to the static
fixtures, a charm KV store, or a remote pagen-admin server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: "+config.Path()+")")
	flags.StringVar(&a.backend, "backend", "", "Record backend: sqlite, fixture, charm, or remote")
	flags.StringVar(&a.dbPath, "db-path", "", "SQLite database path")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, or error")

	root.AddCommand(
		a.listCommand(),
		a.showCommand(),
		a.addCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.transitionCommand(),
		a.completeCommand(),
		a.boardCommand(),
		a.statsCommand(),
		a.dashboardCommand(),
		a.analyticsCommand(),
		a.serveCommand(),
		a.tuiCommand(),
		a.mcpCommand(),
		a.vizCommand(),
		a.seedCommand(),
		a.syncCommand(),
		a.versionCommand(),
	)

	return root, a
}

// Execute runs the command tree against ctx and releases the backend
// afterwards, whether or not the command succeeded.
func Execute(ctx context.Context, opts Options, args []string) error {
	root, a := newRoot(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

// setup loads configuration and applies flag overrides. The workspace is
// opened lazily by the commands that need one.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.metrics = metrics.New()
	return nil
}

// workspace opens the backend and builds the pages on first use.
func (a *app) workspace() (*crm.Workspace, error) {
	if a.ws != nil {
		return a.ws, nil
	}

	backend := a.opts.Backend
	if backend == nil {
		var err error
		backend, err = openBackend(a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
	}

	ws := crm.NewWorkspace(backend, crm.Options{
		Logger:   a.logger,
		Observer: a.metrics,
		Now:      a.opts.Now,
	})
	for _, c := range ws.Collections() {
		if err := a.metrics.TrackSize(c.Name(), c.Count); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	a.logger.Debug("workspace opened", "backend", a.cfg.Backend)
	a.ws = ws
	return ws, nil
}

// load opens the workspace and loads the named collection.
func (a *app) load(ctx context.Context, name string) (*crm.Workspace, crm.Collection, error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, nil, err
	}
	c, err := ws.Lookup(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (choose from %s)", err, joinNames(ws.Names()))
	}
	if err := c.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", c.Name(), err)
	}
	return ws, c, nil
}

func (a *app) close() error {
	if a.ws == nil || a.opts.Backend != nil {
		return nil
	}
	err := a.ws.Close()
	a.ws = nil
	return err
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pagen-admin version %s\n", a.opts.Version)
			return nil
		},
	}
}

func joinNames(names []string) string {
	var out string
	for i, n := range names {
		switch {
		case i == 0:
		case i == len(names)-1:
			out += ", or "
		default:
			out += ", "
		}
		out += n
	}
	return out
}
