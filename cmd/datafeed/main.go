package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/quantport.net/internal/adapter/logging"
	"gitlab.com/quantport.net/internal/adapter/postgres/barjournal"
	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/datafeed"
	"gitlab.com/quantport.net/internal/satellite"
)

func main() {
	InitReader()

	sysCfg := config.NewSystemConfig()
	workerName := sysCfg.WorkerCfg.Name
	if workerName == "" {
		workerName = "datafeed-" + sysCfg.DatafeedCfg.Broker
	}

	logger, err := logging.NewWorkerLogger(workerName, sysCfg.WorkerCfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to open worker log: %v", err)
	}
	logger.Info("Starting datafeed worker", "name", workerName, "broker", sysCfg.DatafeedCfg.Broker)

	barRepo := setupBarJournal(sysCfg, logger)
	feed, err := datafeed.NewFeed(sysCfg.DatafeedCfg, barRepo, logger)
	if err != nil {
		logger.Error("Failed to build feed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := satellite.NewRegistry()
	registry.Register("status", func(context.Context) (string, error) {
		return feed.Status(), nil
	})
	registry.Register("panel", func(context.Context) (string, error) {
		data, err := json.Marshal(feed.Panel())
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	registry.Register("journal", func(ctx context.Context) (string, error) {
		// A journal read failure is reported to the caller, not treated as
		// a worker failure.
		if barRepo == nil {
			return "journal disabled", nil
		}
		now := time.Now().UTC()
		bars, err := barRepo.GetBars(ctx, sysCfg.DatafeedCfg.Tickers[0], sysCfg.DatafeedCfg.Freq, now.Add(-24*time.Hour), now)
		if err != nil {
			return "journal read failed: " + err.Error(), nil
		}
		data, err := json.Marshal(bars)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	registry.Register("shutdown", func(context.Context) (string, error) {
		logger.Info("Shutdown command received")
		cancel()
		return "shutting down", nil
	})

	opts := satellite.DefaultOptions()
	opts.ControllerAddr = sysCfg.WorkerCfg.ControllerAddr
	opts.RequiredPorts = sysCfg.WorkerCfg.RequiredPorts
	if opts.RequiredPorts < 2 {
		// One port for the command channel, one for the announced data port.
		opts.RequiredPorts = 2
	}
	opts.RegistrationTimeout = sysCfg.WorkerCfg.RegistrationTimeout
	opts.HeartbeatInterval = sysCfg.WorkerCfg.HeartbeatInterval
	opts.HeartbeatTimeout = sysCfg.WorkerCfg.HeartbeatTimeout
	opts.AnnounceBroker = sysCfg.DatafeedCfg.Broker
	opts.AnnouncePortOffset = 1
	opts.Logger = logger

	worker := satellite.NewWorker(workerName, registry, opts)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Signal received, stopping worker")
		cancel()
	}()

	go feed.Run(ctx)

	if err := worker.Run(ctx); err != nil {
		// The host's restart policy owns recovery, this process only reports
		// the terminal failure and exits.
		logger.Error("Worker terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

// setupBarJournal connects the postgres bar journal, or disables journaling
// when the database is unreachable.
func setupBarJournal(sysCfg *config.AppConfig, logger *logging.ZapLogger) secondary.BarRepository {
	db, err := sqlx.Open("postgres", sysCfg.PostgresConfig.Url)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		logger.Warn("Bar journal disabled, postgres unreachable", "error", err)
		return nil
	}
	return barjournal.NewBarRepository(db, logger)
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
