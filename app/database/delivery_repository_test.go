package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepository(t *testing.T) *DeliveryRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "nested", "autoleech.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	state, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if state.Version != 1 || state.Applied != 1 {
		t.Fatalf("Expected fresh database migrated to version 1, got %+v", state)
	}

	return NewDeliveryRepository(db)
}

func TestNewConnectionEmptyPath(t *testing.T) {
	if _, err := NewConnection(""); err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "autoleech.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	state, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got: %v", err)
	}
	if state.Version != 1 || state.Applied != 0 {
		t.Errorf("Expected no migrations on second run, got %+v", state)
	}
}

func TestRunMigrationsRejectsDirtySchema(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "autoleech.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_migrations SET dirty = 1"); err != nil {
		t.Fatalf("Failed to mark schema dirty: %v", err)
	}

	if _, err := RunMigrations(db); err == nil {
		t.Error("Expected error for dirty schema")
	}
}

func TestRecordAndMarkRemoved(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.RecordDelivery("abc", "movie.mkv", "/downloads/movie.mkv", 1024); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	delivery, err := repo.GetDelivery("abc")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if delivery == nil {
		t.Fatal("Expected delivery to be stored")
	}
	if delivery.Name != "movie.mkv" || delivery.Size != 1024 || delivery.Attempts != 1 {
		t.Errorf("Unexpected delivery: %+v", delivery)
	}
	if !delivery.DeliveredAt.Equal(now) {
		t.Errorf("Expected delivered at %v, got %v", now, delivery.DeliveredAt)
	}
	if delivery.RemovedAt != nil {
		t.Error("Expected removed at to be unset")
	}

	now = now.Add(time.Minute)
	if err := repo.MarkRemoved("abc"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	delivery, _ = repo.GetDelivery("abc")
	if delivery.RemovedAt == nil || !delivery.RemovedAt.Equal(now) {
		t.Errorf("Expected removed at %v, got %v", now, delivery.RemovedAt)
	}
}

func TestRecordDeliveryTwiceCountsAttempts(t *testing.T) {
	repo := newTestRepository(t)

	repo.RecordDelivery("abc", "movie.mkv", "/downloads/movie.mkv", 1)
	repo.MarkRemoved("abc")
	repo.RecordDelivery("abc", "movie.mkv", "/downloads/movie.mkv", 1)

	delivery, err := repo.GetDelivery("abc")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if delivery.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", delivery.Attempts)
	}
	if delivery.RemovedAt != nil {
		t.Error("Expected re-delivery to clear removed at")
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats.Total != 1 || stats.Removed != 0 || stats.Redelivered != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestMarkRemovedUnknownHash(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.MarkRemoved("missing"); err == nil {
		t.Error("Expected error for unknown hash")
	}
}

func TestGetDeliveryMissing(t *testing.T) {
	repo := newTestRepository(t)
	delivery, err := repo.GetDelivery("missing")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if delivery != nil {
		t.Errorf("Expected nil delivery, got %+v", delivery)
	}
}

func TestGetRecentDeliveriesOrdering(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, hash := range []string{"first", "second", "third"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return ts }
		if err := repo.RecordDelivery(hash, hash+".mkv", "/d/"+hash+".mkv", int64(i)); err != nil {
			t.Fatal(err)
		}
	}

	deliveries, err := repo.GetRecentDeliveries(2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", len(deliveries))
	}
	if deliveries[0].Hash != "third" || deliveries[1].Hash != "second" {
		t.Errorf("Expected newest first, got %s, %s", deliveries[0].Hash, deliveries[1].Hash)
	}
}
