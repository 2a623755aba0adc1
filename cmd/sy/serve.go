package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/scriptyard/internal/dashboard"
	"github.com/zulandar/scriptyard/internal/schedule"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API and the run scheduler",
		Long: `Serves the JSON dashboard API with live SSE and websocket feeds, and fires
the cron schedules from the config file until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: dashboard.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	ctx, cancel := context.WithCancel(contextOf(cmd))
	defer cancel()

	a, err := openApp(ctx, configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if port <= 0 {
		port = a.cfg.Dashboard.Port
	}

	sched, err := schedule.New(a.svc, a.cfg.Schedules, a.logger)
	if err != nil {
		return err
	}
	for _, e := range sched.Entries() {
		next, _ := schedule.Next(e.Spec, time.Now())
		a.logger.Info("schedule registered", "id", e.Script, "cron", e.Spec, "next", next)
	}
	sched.Start()
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		if err := sched.Stop(stopCtx); err != nil {
			a.logger.Warn("scheduler did not stop cleanly", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		Service:        a.svc,
		Auditor:        a.auditor,
		Notifications:  a.recorder,
		Port:           port,
		Out:            cmd.OutOrStdout(),
		Logger:         a.logger,
		AllowedOrigins: a.cfg.Dashboard.AllowedOrigins,
	})
}
