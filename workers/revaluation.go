package workers

import (
	"context"
	"log"
	"time"

	"dealdesk/models"
	"dealdesk/services"
	"dealdesk/storage"
)

// RevaluationWorker periodically re-grades and re-prices active listings
// whose price band is missing or stale, recording each batch as a
// valuation run in the operational store.
type RevaluationWorker struct {
	store     *storage.PostgresStore
	valuation *services.ValuationService
	ops       *storage.SQLiteStore
	triggerCh chan struct{}
}

func NewRevaluationWorker(store *storage.PostgresStore, valuation *services.ValuationService, ops *storage.SQLiteStore) *RevaluationWorker {
	return &RevaluationWorker{
		store:     store,
		valuation: valuation,
		ops:       ops,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run a batch immediately
func (w *RevaluationWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the revaluation loop. Bands older than maxAge are refreshed,
// batchSize listings at a time, every interval.
func (w *RevaluationWorker) Run(ctx context.Context, maxAge time.Duration, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Revaluation worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, maxAge, batchSize)
		case <-w.triggerCh:
			log.Println("Revaluation worker triggered manually")
			w.ProcessBatch(ctx, maxAge, batchSize)
		}
	}
}

// ProcessBatch revalues one batch of stale listings.
func (w *RevaluationWorker) ProcessBatch(ctx context.Context, maxAge time.Duration, batchSize int) {
	now := time.Now()
	listings, err := w.store.ListStaleListings(ctx, now.Add(-maxAge), batchSize)
	if err != nil {
		log.Printf("Revaluation: query error: %v", err)
		return
	}
	if len(listings) == 0 {
		return
	}

	runID, err := w.ops.CreateRun(now)
	if err != nil {
		log.Printf("Revaluation: failed to create run record: %v", err)
	}

	log.Printf("Revaluation: processing %d stale listing(s)", len(listings))

	var stats services.ValuationStats
	for _, listing := range listings {
		_, cached, err := w.valuation.ValueListing(ctx, listing.ID, time.Now())
		stats.Aggregate(cached, err)
		if err != nil {
			log.Printf("Revaluation: listing %s: %v", listing.ID, err)
			if runID != 0 {
				w.ops.AddLog(&runID, models.LogLevelWarn, err.Error())
			}
		}
	}

	log.Printf("Revaluation: done: %d processed, %d bands written, %d cache hits, %d without comparables, %d errors",
		stats.Processed, stats.BandsSaved, stats.CacheHits, stats.NoComps, stats.Errors)

	if runID != 0 {
		finished := time.Now()
		status := models.RunStatusCompleted
		if stats.Errors > 0 {
			status = models.RunStatusPartial
		}
		run := &models.ValuationRun{
			ID:                runID,
			FinishedAt:        &finished,
			Status:            status,
			ListingsProcessed: stats.Processed,
			BandsWritten:      stats.BandsSaved,
			CacheHits:         stats.CacheHits,
			ErrorsCount:       stats.Errors + stats.NoComps,
		}
		if err := w.ops.FinishRun(run); err != nil {
			log.Printf("Revaluation: failed to finish run record: %v", err)
		}
	}
}
