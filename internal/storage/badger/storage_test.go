package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/fame0528/TheSimGov-sub001/internal/common"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func testRecord(tickID string, totalMonths int, startedAt time.Time) *models.TickRecord {
	year := (totalMonths-1)/models.MonthsPerYear + 1
	month := totalMonths - (year-1)*models.MonthsPerYear
	record := models.NewTickRecord(tickID, models.GameTime{Year: year, Month: month, TotalMonths: totalMonths}, models.TriggerManual, models.TickOptions{})
	record.StartedAt = startedAt
	return record
}

func TestTickStorage_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickStorage(db, arbor.NewLogger())
	ctx := context.Background()

	record := models.NewTickRecord("tick_001", models.GameTime{Year: 1, Month: 2, TotalMonths: 2}, models.TriggerManual, models.TickOptions{RequestedBy: "admin-7"})
	if err := storage.SaveRecord(ctx, record); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	got, found, err := storage.GetRecord(ctx, "tick_001")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !found {
		t.Fatal("GetRecord: record not found")
	}
	if got.TickID != "tick_001" {
		t.Errorf("TickID: got %s, want tick_001", got.TickID)
	}
	if got.GameTime.TotalMonths != 2 {
		t.Errorf("TotalMonths: got %d, want 2", got.GameTime.TotalMonths)
	}
	if got.Trigger != models.TriggerManual {
		t.Errorf("Trigger: got %s, want %s", got.Trigger, models.TriggerManual)
	}
	if got.RequestedBy != "admin-7" {
		t.Errorf("RequestedBy: got %s, want admin-7", got.RequestedBy)
	}
	if got.Status != models.TickStatusRunning {
		t.Errorf("Status: got %s, want %s", got.Status, models.TickStatusRunning)
	}

	_, found, err = storage.GetRecord(ctx, "tick_missing")
	if err != nil {
		t.Fatalf("GetRecord missing: %v", err)
	}
	if found {
		t.Error("GetRecord: expected missing record to report found=false")
	}
}

func TestTickStorage_SaveValidates(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.SaveRecord(ctx, nil); err == nil {
		t.Error("expected error for nil record")
	}

	bad := models.NewTickRecord("", models.GameTime{Year: 1, Month: 2, TotalMonths: 2}, models.TriggerManual, models.TickOptions{})
	if err := storage.SaveRecord(ctx, bad); err == nil {
		t.Error("expected error for record without tick ID")
	}
}

func TestTickStorage_UpsertCompletesStartMarker(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickStorage(db, arbor.NewLogger())
	ctx := context.Background()

	record := models.NewTickRecord("tick_002", models.GameTime{Year: 1, Month: 3, TotalMonths: 3}, models.TriggerCatchup, models.TickOptions{})
	if err := storage.SaveRecord(ctx, record); err != nil {
		t.Fatalf("SaveRecord start marker: %v", err)
	}

	record.MarkCompleted(&models.TickResult{
		TickID:      "tick_002",
		GameTime:    record.GameTime,
		StartedAt:   record.StartedAt,
		CompletedAt: time.Now(),
		Success:     true,
	})
	if err := storage.SaveRecord(ctx, record); err != nil {
		t.Fatalf("SaveRecord completed: %v", err)
	}

	count, err := storage.CountRecords(ctx)
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if count != 1 {
		t.Errorf("CountRecords: got %d, want 1", count)
	}

	got, found, err := storage.GetRecord(ctx, "tick_002")
	if err != nil || !found {
		t.Fatalf("GetRecord: found=%v err=%v", found, err)
	}
	if got.Status != models.TickStatusCompleted {
		t.Errorf("Status: got %s, want %s", got.Status, models.TickStatusCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt: expected to be set")
	}
	if got.Result == nil || !got.Result.Success {
		t.Error("Result: expected successful result attached")
	}
}

func TestTickStorage_HistoryMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 5; i++ {
		record := testRecord(
			fmt.Sprintf("tick_%03d", i),
			i+1,
			base.Add(time.Duration(i)*time.Minute),
		)
		if err := storage.SaveRecord(ctx, record); err != nil {
			t.Fatalf("SaveRecord %d: %v", i, err)
		}
	}

	history, err := storage.GetHistory(ctx, 3)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("GetHistory: got %d records, want 3", len(history))
	}
	if history[0].TickID != "tick_005" {
		t.Errorf("history[0]: got %s, want tick_005", history[0].TickID)
	}
	if history[1].TickID != "tick_004" {
		t.Errorf("history[1]: got %s, want tick_004", history[1].TickID)
	}
	if history[2].TickID != "tick_003" {
		t.Errorf("history[2]: got %s, want tick_003", history[2].TickID)
	}

	empty, err := storage.GetHistory(ctx, 0)
	if err != nil {
		t.Fatalf("GetHistory limit 0: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetHistory limit 0: got %d records, want 0", len(empty))
	}
}

func TestTickStorage_Prune(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 6; i++ {
		record := testRecord(
			fmt.Sprintf("tick_%03d", 100+i),
			i+1,
			base.Add(time.Duration(i)*time.Minute),
		)
		if err := storage.SaveRecord(ctx, record); err != nil {
			t.Fatalf("SaveRecord %d: %v", i, err)
		}
	}

	removed, err := storage.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 4 {
		t.Errorf("Prune removed: got %d, want 4", removed)
	}

	count, err := storage.CountRecords(ctx)
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if count != 2 {
		t.Errorf("CountRecords after prune: got %d, want 2", count)
	}

	history, err := storage.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 || history[0].TickID != "tick_106" || history[1].TickID != "tick_105" {
		t.Errorf("expected the two newest records to survive, got %+v", history)
	}

	removed, err = storage.Prune(ctx, 10)
	if err != nil {
		t.Fatalf("Prune keepLast>count: %v", err)
	}
	if removed != 0 {
		t.Errorf("Prune keepLast>count: got %d removed, want 0", removed)
	}

	if _, err := storage.Prune(ctx, -1); err == nil {
		t.Error("expected error for negative keepLast")
	}
}

func TestClockStorage_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewClockStorage(db, arbor.NewLogger())
	ctx := context.Background()

	_, found, err := storage.Get(ctx)
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if found {
		t.Fatal("Get on empty store: expected found=false")
	}

	want := models.GameTime{Year: 3, Month: 7, TotalMonths: 31}
	if err := storage.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := storage.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("Get: expected found=true")
	}
	if got != want {
		t.Errorf("Get: got %+v, want %+v", got, want)
	}

	// A later save replaces the value outright.
	want = models.GameTime{Year: 3, Month: 8, TotalMonths: 32}
	if err := storage.Save(ctx, want); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _, err = storage.Get(ctx)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got != want {
		t.Errorf("Get after overwrite: got %+v, want %+v", got, want)
	}
}

func TestClockStorage_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	logger := arbor.NewLogger()
	cfg := &common.BadgerConfig{Path: dir}

	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		t.Fatalf("NewBadgerDB: %v", err)
	}

	ctx := context.Background()
	want := models.GameTime{Year: 2, Month: 1, TotalMonths: 13}
	if err := NewClockStorage(db, logger).Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = NewBadgerDB(logger, cfg)
	if err != nil {
		t.Fatalf("NewBadgerDB reopen: %v", err)
	}
	defer db.Close()

	got, found, err := NewClockStorage(db, logger).Get(ctx)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !found {
		t.Fatal("Get after reopen: expected found=true")
	}
	if got != want {
		t.Errorf("Get after reopen: got %+v, want %+v", got, want)
	}
}

func TestNewBadgerDB_ResetOnStartup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("NewBadgerDB: %v", err)
	}
	ctx := context.Background()
	if err := NewClockStorage(db, logger).Save(ctx, models.GameTime{Year: 1, Month: 5, TotalMonths: 5}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = NewBadgerDB(logger, &common.BadgerConfig{Path: dir, ResetOnStartup: true})
	if err != nil {
		t.Fatalf("NewBadgerDB reset: %v", err)
	}
	defer db.Close()

	_, found, err := NewClockStorage(db, logger).Get(ctx)
	if err != nil {
		t.Fatalf("Get after reset: %v", err)
	}
	if found {
		t.Error("Get after reset: expected the clock to be gone")
	}
}

func TestRunValueLogGC_NoRewriteIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	if err := db.RunValueLogGC(0.5); err != nil {
		t.Fatalf("RunValueLogGC: %v", err)
	}
}
