package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/config"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/logging"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/plugin"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// session holds everything built from configuration for one invocation.
type session struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	providers *telemetry.Providers
	hooks     *hook.Hooks
	plugins   *plugin.Manager
}

// newRootCmd builds the command tree around s. The caller closes s once
// the command has executed, whether or not it failed.
func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "hookctl",
		Short: "Run hooks against Lua plugins",
		Long: `hookctl loads the Lua plugins listed in a configuration file and
dispatches hooks through them.

Examples:
  hookctl --config hooks.toml hooks               # List hooks with handlers
  hookctl --config hooks.toml list user.save      # Show handlers in run order
  hookctl --config hooks.toml run user.save alice # Run asynchronous handlers
  hookctl --config hooks.toml run --sync validate # Run synchronous handlers`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.open,
	}

	root.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "Path to configuration file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newRunCmd(s))
	root.AddCommand(newListCmd(s))
	root.AddCommand(newHooksCmd(s))
	root.AddCommand(newPluginsCmd(s))

	return root
}

// open loads configuration and builds the logger, telemetry, hooks and
// plugin manager, in that order.
func (s *session) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.Log.Level = s.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level, _ = logging.ParseLevel(cfg.Log.Level)
	logCfg.Format, _ = logging.ParseFormat(cfg.Log.Format)
	logCfg.Output = cmd.ErrOrStderr()
	s.logger = logging.New(logCfg)

	interval, _ := cfg.Telemetry.Interval()
	s.providers, err = telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		Version:        version,
		MetricInterval: interval,
		Output:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	s.hooks = hook.New(
		hook.WithLogger(logging.WithComponent(s.logger, "hook")),
		hook.WithTracerProvider(s.providers.TracerProvider),
		hook.WithMeterProvider(s.providers.MeterProvider),
	)
	s.plugins = plugin.NewManager(s.hooks, plugin.WithLogger(s.logger))

	cmd.SetContext(logging.WithLogger(cmd.Context(), s.logger))

	return s.plugins.LoadAll(cmd.Context(), cfg.EnabledPlugins())
}

// close unloads plugins and flushes telemetry. It is safe to call on a
// session that never opened.
func (s *session) close() error {
	if s.plugins != nil {
		s.plugins.Close()
	}
	if s.providers == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.providers.Shutdown(ctx)
	s.providers = nil
	return err
}
