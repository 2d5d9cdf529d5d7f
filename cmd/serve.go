package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/otterc/incubator-slider/internal/agent"
	"github.com/otterc/incubator-slider/internal/cluster"
	"github.com/otterc/incubator-slider/internal/config"
	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/monitor"
	"github.com/otterc/incubator-slider/internal/server"
	"github.com/otterc/incubator-slider/pkg/logging"
)

// serveConfigPath points at the server configuration file. Heartbeat
// tunables in it are reloaded while running.
var serveConfigPath string

// serveDebug enables verbose logging across the application.
var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent protocol server",
	Long: `Starts the control plane: loads the application descriptor, rebuilds
command ordering, and serves the registration and heartbeat endpoints
agents poll. The heartbeat monitor evicts agents that stop reporting and
requests replacement containers through the scheduler action queue.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Cluster.DescriptorPath == "" {
		return fmt.Errorf("configuration is missing cluster.descriptor")
	}
	application, err := descriptor.Load(cfg.Cluster.DescriptorPath)
	if err != nil {
		return fmt.Errorf("failed to load application descriptor: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	state := cluster.NewInMemoryState(cfg.Cluster.Name, hostname)
	for key, value := range cfg.Cluster.Options {
		state.SetOption(key, value)
	}
	state.SetLive(true)
	queue := cluster.NewInMemoryQueue(cfg.Heartbeat.QueueCapacity)
	sink := cluster.NewInMemorySink()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coordinator, err := agent.NewCoordinator(application, state, queue, sink, registry)
	if err != nil {
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}

	watchdog := monitor.New(coordinator.Instances(), coordinator, cfg.Heartbeat.MonitorInterval, cfg.Heartbeat.Timeout)
	watcher, err := config.NewWatcher(serveConfigPath, func(hb config.HeartbeatConfig) {
		watchdog.SetInterval(hb.MonitorInterval)
		watchdog.SetTimeout(hb.Timeout)
	})
	if err != nil {
		logging.Warn("Serve", "Config watching disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchdog.Start()
	defer watchdog.Stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.New(coordinator, registry, cfg.Server.Host, cfg.Server.Port).Listen(ctx)
	})
	group.Go(func() error {
		return drainActions(ctx, queue)
	})

	logging.Info("Serve", "Cluster %s serving application %s", cfg.Cluster.Name, application.Name)
	return group.Wait()
}

// drainActions consumes scheduler actions. Standalone mode has no
// external scheduler, so actions are surfaced in the log for operators.
func drainActions(ctx context.Context, queue *cluster.InMemoryQueue) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, action := range queue.Drain() {
				logging.Info("Scheduler", "Action requested: %s %+v", action.ActionName(), action)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "server.yaml", "Path to the server configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}
