package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"printcal/internal/capture"
	"printcal/internal/config"
	"printcal/internal/ics"
	appLog "printcal/internal/log"
	"printcal/internal/render"
	"printcal/internal/web"
)

// refreshTimeout bounds one scheduled feed refresh plus preview capture.
const refreshTimeout = 2 * time.Minute

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and keep the calendar feed refreshed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			// --listen overrides the config file if provided.
			if listen != "" {
				cfg.Listen = listen
			}
			return runServe(cmd.Context(), g, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, g *globalFlags, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}

	appLog.Info("printcal starting",
		"version", Version,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"view", cfg.View,
		"page_count", cfg.PageCount,
		"ics_count", len(cfg.Sources()),
		"refresh", cfg.RefreshCron,
	)

	resolver := ics.NewResolver(ics.NewFetcher(filepath.Join(cfg.DataDir, "ics-cache"), nil), loc)
	resolver.SetSources(ics.SourcesFromConfig(cfg))

	renderer, err := render.New()
	if err != nil {
		return err
	}

	exporter := capture.NewPDFRenderer(capture.Options{
		RemoteURL: cfg.Chrome.RemoteURL,
		NoSandbox: cfg.Chrome.NoSandbox,
		Timeout:   time.Duration(cfg.Chrome.TimeoutSeconds) * time.Second,
	})
	defer exporter.Close()

	srv := web.NewServer(web.Deps{
		ConfigPath: g.configPath,
		Config:     cfg,
		Resolver:   resolver,
		Renderer:   renderer,
		Exporter:   exporter,
		Debug:      g.debug,
	})

	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		if err := resolver.Refresh(rctx); err != nil {
			// Already logged by the resolver; the calendar renders
			// without events until the next successful refresh.
			return
		}
		if err := srv.CapturePreview(rctx); err != nil {
			appLog.Error("preview capture failed", err)
		}
	}

	logger := cronLogger{}
	scheduler := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := scheduler.AddFunc(cfg.RefreshCron, refresh); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	// First refresh right away instead of waiting for the schedule.
	go refresh()

	err = srv.Run(ctx)
	appLog.Info("printcal exiting")
	return err
}

// cronLogger routes robfig/cron's logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
