package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/multipixel/internal/config"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/maintenance"
	"github.com/ehrlich-b/multipixel/internal/server"
)

// serveCmd is structured per SPEC_FULL.md §10: load config, build the
// server, install a signal-cancelled context, run the listener in a
// goroutine reporting to an error channel, then select between shutdown and
// listener failure.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the canvas server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			mgr := config.NewManager()
			if err := mgr.Load(configPath); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := mgr.Get()

			if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}

			if cfg.EnableConsole {
				go srv.RunConsole()
			}

			maint, err := maintenance.New(cfg, srv.Rooms)
			if err != nil {
				return fmt.Errorf("init maintenance scheduler: %w", err)
			}
			if maint != nil {
				maint.Start()
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					maint.Stop(stopCtx)
				}()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case <-ctx.Done():
				srv.Shutdown()
				return nil
			case <-srv.Done():
				srv.Shutdown()
				return nil
			case err := <-errCh:
				if err != nil {
					srv.Shutdown()
					return fmt.Errorf("listener: %w", err)
				}
				return nil
			}
		},
	}
	return cmd
}
