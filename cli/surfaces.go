// ABOUTME: Long-running surfaces: web admin, terminal UI, and MCP server
// ABOUTME: Each runs until its context is cancelled or the user quits
package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harperreed/pagen-admin/handlers"
	"github.com/harperreed/pagen-admin/tui"
	"github.com/harperreed/pagen-admin/web"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web admin and JSON record API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			server, err := web.NewServer(ws, web.Options{
				Logger:  a.logger,
				Metrics: a.metrics.Handler(),
			})
			if err != nil {
				return err
			}
			return server.Start(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func (a *app) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("tui needs an interactive terminal")
			}
			ws, err := a.workspace()
			if err != nil {
				return err
			}

			p := tea.NewProgram(tui.NewModel(cmd.Context(), ws), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("tui failed: %w", err)
			}
			return nil
		},
	}
}

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs stay on stderr
			a.logger.Info("starting MCP server", "backend", a.cfg.Backend)

			server := handlers.NewServer(ws, a.opts.Version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
