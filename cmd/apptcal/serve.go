package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apptcal/internal/appointments"
	"apptcal/internal/capture"
	"apptcal/internal/config"
	"apptcal/internal/ics"
	appLog "apptcal/internal/log"
	"apptcal/internal/metrics"
	"apptcal/internal/scheduler"
	"apptcal/internal/store"
	"apptcal/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		listen string
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar page, its events API and the appointment list",
		Long: `Serve the calendar web UI and API.

Subscribed ICS feeds are refreshed on the configured cron schedule, and the
calendar preview PNG is re-captured after each refresh when enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				conf.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, conf, once)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&once, "once", false, "Run one refresh (+preview) cycle and exit")
	return cmd
}

func runServe(ctx context.Context, conf *config.Config, once bool) error {
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("unknown timezone, using local time", err)
	}

	appLog.Info("effective config",
		"version", version,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"store", storeKind(conf),
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"preview", conf.Preview.Enabled,
		"metrics", conf.Metrics.Enabled,
	)

	st, err := store.Open(ctx, conf)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var m *metrics.Metrics
	if conf.Metrics.Enabled {
		m = metrics.New()
	}

	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		sources = append(sources, ics.Source{ID: c.SourceID(), Name: c.Name, URL: c.URL})
	}
	fetcher := ics.NewFetcher(conf.CacheDir, &http.Client{Timeout: 30 * time.Second}).WithObserver(m)
	feed := ics.NewFeed(sources, fetcher, loc)

	svc := appointments.NewService(st, feed, sources, loc)
	srv, err := web.NewServer(conf, svc, m)
	if err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	sched, err := scheduler.New(conf.RefreshCron, backgroundJobs(conf, feed, m)...)
	if err != nil {
		return err
	}

	if once {
		return sched.RunOnce(ctx)
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	err = srv.ListenAndServe(ctx)
	appLog.Info("apptcal exiting")
	return err
}

// backgroundJobs returns the scheduled work: the ICS refresh, then the
// preview capture of our own calendar page when enabled.
func backgroundJobs(conf *config.Config, feed *ics.Feed, m *metrics.Metrics) []scheduler.Job {
	jobs := []scheduler.Job{{Name: "ics-refresh", Run: feed.Refresh}}
	if !conf.Preview.Enabled {
		return jobs
	}
	opts := capture.Options{
		URL:    selfURL(conf.Listen) + "/calendrier",
		Width:  conf.Preview.Width,
		Height: conf.Preview.Height,
	}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		opts.URL = withBasicAuth(opts.URL, conf.BasicAuth.Username, conf.BasicAuth.Password)
	}
	jobs = append(jobs, scheduler.Job{
		Name: "preview-capture",
		Run: func(ctx context.Context) error {
			err := capture.CaptureCalendarPNG(ctx, opts, conf.Preview.Path)
			m.CaptureDone(err)
			return err
		},
	})
	return jobs
}

func storeKind(conf *config.Config) string {
	if conf.DatabaseURL != "" {
		return "postgres"
	}
	return "file:" + conf.AppointmentsFile
}
