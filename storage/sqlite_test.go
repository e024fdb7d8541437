package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"dealdesk/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCommandQueue(t *testing.T) {
	store := newTestStore(t)

	params, err := json.Marshal(models.CommandParams{Category: "electronics"})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdRevalue, params); err != nil {
		t.Fatalf("enqueue revalue: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdExpireDeals, nil); err != nil {
		t.Fatalf("enqueue expire: %v", err)
	}

	pending, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending commands, got %d", len(pending))
	}

	var revalue *models.Command
	for i := range pending {
		if pending[i].Command == models.CmdRevalue {
			revalue = &pending[i]
		}
	}
	if revalue == nil {
		t.Fatalf("revalue command not found in %+v", pending)
	}
	var got models.CommandParams
	if err := json.Unmarshal(revalue.Params, &got); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if got.Category != "electronics" {
		t.Fatalf("expected category electronics, got %q", got.Category)
	}

	if err := store.MarkCommandProcessed(revalue.ID); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	pending, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("get pending after processing: %v", err)
	}
	if len(pending) != 1 || pending[0].Command != models.CmdExpireDeals {
		t.Fatalf("expected only expire_deals pending, got %+v", pending)
	}
}

func TestValuationRuns(t *testing.T) {
	store := newTestStore(t)

	started := time.Now().Add(-2 * time.Minute)
	runID, err := store.CreateRun(started)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if runID == 0 {
		t.Fatalf("expected non-zero run id")
	}

	if err := store.AddLog(&runID, models.LogLevelWarn, "one listing skipped"); err != nil {
		t.Fatalf("add log: %v", err)
	}

	finished := time.Now()
	err = store.FinishRun(&models.ValuationRun{
		ID:                runID,
		FinishedAt:        &finished,
		Status:            models.RunStatusPartial,
		ListingsProcessed: 5,
		BandsWritten:      4,
		CacheHits:         1,
		ErrorsCount:       1,
		ErrorMessage:      "gateway timeout on one listing",
	})
	if err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := store.GetRecentRuns(10)
	if err != nil {
		t.Fatalf("get recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID {
		t.Fatalf("expected run id %d, got %d", runID, run.ID)
	}
	if run.Status != models.RunStatusPartial {
		t.Fatalf("expected status partial, got %q", run.Status)
	}
	if run.ListingsProcessed != 5 || run.BandsWritten != 4 || run.CacheHits != 1 || run.ErrorsCount != 1 {
		t.Fatalf("unexpected counters: %+v", run)
	}
	if run.FinishedAt == nil {
		t.Fatalf("expected finished_at to be set")
	}
	if run.ErrorMessage != "gateway timeout on one listing" {
		t.Fatalf("unexpected error message %q", run.ErrorMessage)
	}
}
