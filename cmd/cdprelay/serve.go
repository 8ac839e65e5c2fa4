package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cdprelay/cdprelay/internal/config"
	"github.com/cdprelay/cdprelay/internal/launch"
	"github.com/cdprelay/cdprelay/internal/logging"
	"github.com/cdprelay/cdprelay/internal/relay"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay's HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to relay config YAML (default: built-in defaults)")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	handoff := &launch.Handoff{BrowserOverride: cfg.Browser.LaunchBin}

	var opts []relay.Option
	opts = append(opts, relay.WithLauncher(handoff))
	opts = append(opts, relay.WithMaxFrameBytes(cfg.Limits.MaxFrameBytes))
	if cfg.IsAuditEnabled() {
		opts = append(opts, relay.WithAuditLogger(relay.NewAuditLogger()))
	}
	r := relay.New(opts...)

	if configPath != "" {
		watcher, err := config.WatchFile(configPath, func(reloaded config.Config) {
			handoff.SetBrowserOverride(reloaded.Browser.LaunchBin)
			logging.Infof("cdprelay: reloaded browser override from %s", configPath)
		})
		if err != nil {
			logging.Warnf("cdprelay: could not watch %s for changes: %v", configPath, err)
		} else {
			defer watcher.Close()
		}
	}

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	r.BindAddr("ws://" + listener.Addr().String())

	var rp *relay.Reaper
	if cfg.IsReaperEnabled() {
		rp = relay.NewReaper(r)
		sub := rp.SubscribeLifecycle()
		defer sub.Unsubscribe()
		if err := rp.Start(cfg.ReaperInterval()); err != nil {
			return fmt.Errorf("start reaper: %w", err)
		}
		defer rp.Stop()
	}

	clientURL, extensionURL := r.Endpoints()
	logging.Infof("cdprelay listening on %s", listener.Addr())
	logging.Infof("client endpoint:    %s", clientURL)
	logging.Infof("extension endpoint: %s", extensionURL)

	httpServer := &http.Server{
		Handler:      r.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logging.Info("cdprelay shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	r.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
