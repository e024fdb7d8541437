package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"dealdesk/models"
	"dealdesk/services"
	"dealdesk/storage"
)

// ExpiryWorker sweeps active deals that have been idle past the deadline
// and times them out through the normal transition path, so the sweep
// can never race a live negotiation step into a double outcome.
type ExpiryWorker struct {
	store       *storage.PostgresStore
	negotiation *services.NegotiationService
	triggerCh   chan struct{}
}

func NewExpiryWorker(store *storage.PostgresStore, negotiation *services.NegotiationService) *ExpiryWorker {
	return &ExpiryWorker{
		store:       store,
		negotiation: negotiation,
		triggerCh:   make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run a sweep immediately
func (w *ExpiryWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the expiry loop, timing out deals idle longer than maxIdle.
func (w *ExpiryWorker) Run(ctx context.Context, maxIdle time.Duration, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx, maxIdle, batchSize)
		case <-w.triggerCh:
			log.Println("Expiry worker triggered manually")
			w.Sweep(ctx, maxIdle, batchSize)
		}
	}
}

// Sweep times out one batch of idle deals.
func (w *ExpiryWorker) Sweep(ctx context.Context, maxIdle time.Duration, batchSize int) {
	cutoff := time.Now().Add(-maxIdle)
	deals, err := w.store.ListIdleActiveDeals(ctx, cutoff, batchSize)
	if err != nil {
		log.Printf("Expiry: query error: %v", err)
		return
	}
	if len(deals) == 0 {
		return
	}

	log.Printf("Expiry: timing out %d idle deal(s)", len(deals))

	var expired int
	for _, deal := range deals {
		_, _, err := w.negotiation.Expire(ctx, deal.ID)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
			// Someone closed or stepped the deal between the scan and the
			// sweep; the deal already has its one outcome.
		default:
			log.Printf("Expiry: deal %s: %v", deal.ID, err)
		}
	}

	log.Printf("Expiry: done, %d of %d timed out", expired, len(deals))
}
