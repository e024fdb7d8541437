package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealdesk/config"
	"dealdesk/grading"
	"dealdesk/httputil"
	"dealdesk/logging"
	"dealdesk/marketdata"
	"dealdesk/pricing"
	"dealdesk/rubric"
	"dealdesk/scheduler"
	"dealdesk/services"
	"dealdesk/storage"
	"dealdesk/workers"
)

var (
	revalueNow = flag.Bool("revalue", false, "Run one revaluation batch and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("dealdesk.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting dealdesk...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Postgres.DBURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate Postgres schema: %v", err)
	}
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Postgres.DBURL))

	opsStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer opsStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	catalog := rubric.Default()
	if err := catalog.LoadDir(cfg.RubricsDir); err != nil {
		log.Fatalf("Failed to load rubric overrides: %v", err)
	}

	var gateway pricing.ComparablesGateway
	if cfg.CompsAPI.URL != "" {
		clients := httputil.NewClients(cfg.CompsAPI.Timeout)
		gateway = marketdata.NewAPIGateway(cfg.CompsAPI.URL, clients.Market)
		log.Printf("Comparables source: API %s", cfg.CompsAPI.URL)
	} else {
		gateway = marketdata.NewStoreGateway(pgStore)
		log.Println("Comparables source: recorded sales")
	}

	grader := grading.NewGrader(catalog)
	oracle := pricing.NewOracle(catalog, gateway)
	valuationService := services.NewValuationService(pgStore, grader, oracle)
	negotiationService := services.NewNegotiationService(pgStore, pgStore, pgStore)

	log.Println("Services initialized")

	revaluationWorker := workers.NewRevaluationWorker(pgStore, valuationService, opsStore)

	if *revalueNow {
		log.Println("Running revaluation batch...")
		revaluationWorker.ProcessBatch(ctx, cfg.Valuation.MaxBandAge, cfg.Valuation.BatchSize)
		log.Println("Revaluation complete!")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, opsStore)
	expiryWorker := workers.NewExpiryWorker(pgStore, negotiationService)
	sched.SetWorkers(revaluationWorker, expiryWorker)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go revaluationWorker.Run(ctx, cfg.Valuation.MaxBandAge, cfg.Valuation.BatchSize, 5*time.Minute)
	log.Println("Revaluation worker started")

	go expiryWorker.Run(ctx, cfg.Negotiation.MaxIdle, cfg.Negotiation.ExpiryBatchSize, 15*time.Minute)
	log.Println("Expiry worker started")

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()
	log.Printf("Metrics on %s/metrics", cfg.MetricsAddr)

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
