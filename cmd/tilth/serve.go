package main

import (
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/scheduler"
	"github.com/tilthlabs/tilth/internal/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the farm API server and activity scheduler",
	Long: `Start the HTTP API on the configured address, together with the
background scheduler that fires recurring activities and prunes old
planting events.

The server drains in-flight requests on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The serve path gets a real logger even without --verbose
		log := logger
		if !verbose {
			var err error
			log, err = zap.NewProduction()
			if err != nil {
				return err
			}
			defer log.Sync()
		}

		c := cache.New(cfg.Server.CacheTTL)
		serveSvc := farm.New(store, c, log)
		srv := server.New(&cfg.Server, serveSvc, c, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		if cfg.Scheduler.Enabled {
			sched := scheduler.New(scheduler.Config{
				Service:   serveSvc,
				Logger:    log,
				Interval:  cfg.Scheduler.TickInterval,
				Retention: &cfg.Retention,
			})
			sched.Start(ctx)
			g.Go(func() error {
				<-ctx.Done()
				sched.Stop()
				return nil
			})
		}

		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})

		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s tilth server listening on %s\n", green("✓"), cfg.Server.Addr)

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
