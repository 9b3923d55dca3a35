// Command viewtrack-aggregator maintains the daily view rollups that back
// the portfolio overview. It runs the nightly aggregation on a cron
// schedule, or a single day with --run-once for backfills.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/homegrid/viewtrack/pkg/analytics"
)

var (
	dbURL         = flag.String("db-url", getEnv("VIEWTRACK_POSTGRES_URL", "postgres://localhost/viewtrack?sslmode=disable"), "PostgreSQL connection URL")
	dailySchedule = flag.String("daily-schedule", "5 0 * * *", "Cron schedule for the nightly rollup (default: 00:05 UTC)")
	runOnce       = flag.Bool("run-once", false, "Run one aggregation and exit")
	rollupDate    = flag.String("date", "", "Date to roll up (YYYY-MM-DD). Defaults to yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}

	aggregator := analytics.NewAggregator(db)

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *rollupDate != "" {
			date, err = time.Parse("2006-01-02", *rollupDate)
			if err != nil {
				logger.WithError(err).Fatal("invalid --date")
			}
		}

		logger.WithField("date", date.Format("2006-01-02")).Info("running rollup")
		if err := aggregator.AggregateDaily(context.Background(), date); err != nil {
			logger.WithError(err).Fatal("rollup failed")
		}
		logger.Info("rollup completed")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*dailySchedule, func() {
		logger.Info("starting nightly rollup")
		if err := aggregator.AggregateYesterday(context.Background()); err != nil {
			logger.WithError(err).Error("nightly rollup failed")
			return
		}
		logger.Info("nightly rollup completed")
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to schedule nightly rollup")
	}

	c.Start()
	logger.WithField("schedule", *dailySchedule).Info("aggregator started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	<-c.Stop().Done()
	logger.Info("aggregator stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
