package root

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/threadkit/threadkit/pkg/config"
	"github.com/threadkit/threadkit/pkg/confirmation"
	"github.com/threadkit/threadkit/pkg/permissions"
	"github.com/threadkit/threadkit/pkg/runtime"
	"github.com/threadkit/threadkit/pkg/server"
	"github.com/threadkit/threadkit/pkg/session"
	"github.com/threadkit/threadkit/pkg/teamloader"
	"github.com/threadkit/threadkit/pkg/telemetry"
	"github.com/threadkit/threadkit/pkg/ui"
	"github.com/threadkit/threadkit/pkg/userconfig"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent runtime API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			agents, err := teamloader.Load(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := agents.StopToolSets(); err != nil {
					slog.Error("Failed to stop toolsets", "error", err)
				}
			}()

			for _, name := range agents.AgentNames() {
				a, err := agents.Agent(name)
				if err != nil {
					return err
				}
				if err := a.StartToolSets(ctx); err != nil {
					return fmt.Errorf("starting toolsets for agent %s: %w", name, err)
				}
			}

			var sessions session.Store
			if cfg.Server.DatabasePath != "" {
				store, err := session.NewSQLiteStore(cfg.Server.DatabasePath)
				if err != nil {
					return err
				}
				defer store.Close()
				sessions = store
			} else {
				sessions = session.NewInMemoryStore()
			}

			prefs, err := userconfig.Load(cfg.Server.UserPreferencesPath)
			if err != nil {
				return err
			}

			resolver, err := ui.NewResolver(cfg.UIResources)
			if err != nil {
				return err
			}

			if err := telemetry.Init(ctx, cfg.Server.OTLPEndpoint); err != nil {
				return err
			}

			rt := runtime.New(agents, sessions, confirmation.NewBroker(),
				runtime.WithPermissions(permissions.NewChecker(cfg.Permissions.Allow, cfg.Permissions.Deny, prefs)),
				runtime.WithPreferenceWriter(prefs),
				runtime.WithUIResolver(resolver),
				runtime.WithTracer(telemetry.Tracer()),
			)

			srv := server.New(rt, sessions, agents)

			addr := listenAddr
			if addr == "" {
				addr = cfg.Server.ListenAddr
			}
			if addr == "" {
				addr = "127.0.0.1:8765"
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}

			slog.Info("Server listening", "address", ln.Addr().String())
			return srv.Serve(ln)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "threadkit.yaml", "Path to the configuration file")
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides the config file)")

	return cmd
}
