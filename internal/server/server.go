// Package server implements the fleet server: the HTTP endpoint that
// collects heartbeats and answers status queries for the whole fleet.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/zulandar/roundhouse/internal/aggregator"
	"github.com/zulandar/roundhouse/internal/notify"
)

// DefaultSweepEvery is how often the stale-transition sweep runs when
// notifiers are configured.
const DefaultSweepEvery = 30 * time.Second

// StartOpts holds configuration for the fleet server.
type StartOpts struct {
	Aggregator *aggregator.Aggregator
	Port       int
	Notifiers  notify.Multi  // empty = no transition announcements
	SweepEvery time.Duration // 0 = DefaultSweepEvery
	Out        io.Writer
}

// Start launches the fleet HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Aggregator == nil {
		return fmt.Errorf("server: aggregator is required")
	}
	if opts.Port <= 0 {
		return fmt.Errorf("server: port is required")
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = DefaultSweepEvery
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Aggregator)

	// Stale-transition sweep. Runs even without notifiers so the watcher's
	// view stays warm, but only announces when notifiers exist.
	watcher := &notify.Watcher{
		Table:      opts.Aggregator.Table(),
		StaleAfter: opts.Aggregator.StaleAfter(),
		Notifiers:  opts.Notifiers,
	}
	// A sweep slowed by a blocking notifier must not pile up behind itself.
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := sched.AddFunc(fmt.Sprintf("@every %s", opts.SweepEvery), func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), opts.SweepEvery)
		defer cancel()
		watcher.Sweep(sweepCtx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("server: schedule sweep: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Fleet server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
