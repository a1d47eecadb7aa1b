package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polsterdata/polster/internal/config"
	"github.com/polsterdata/polster/internal/dataset"
	"github.com/polsterdata/polster/internal/storage"
)

func newTestService(t *testing.T) (*PreviewService, *storage.Store) {
	t.Helper()
	store, err := storage.New(config.StorageConfig{
		Backend:            "local",
		DataDir:            t.TempDir(),
		DisableLocalSample: true,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return NewPreviewService(store), store
}

func seedAgents(t *testing.T, store *storage.Store, n int) {
	t.Helper()
	rows := dataset.NewGenerator(1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)).Agents(n)
	name := storage.ObjectName(storage.LayerBronze, "agents", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if _, err := storage.Write(context.Background(), store, storage.LayerBronze, name, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestDatasetsListsEveryLoader(t *testing.T) {
	svc, _ := newTestService(t)
	names := svc.Datasets()
	if len(names) != 18 {
		t.Fatalf("got %d datasets, want 18", len(names))
	}
	for _, name := range []string{"bronze_agents", "silver_policy_claims", "gold_premium_revenue"} {
		if !svc.Known(name) {
			t.Errorf("%q should be known", name)
		}
	}
	if svc.Known("bronze_unicorns") {
		t.Error("unknown dataset reported as known")
	}
}

func TestLatestAppliesLimit(t *testing.T) {
	svc, store := newTestService(t)
	seedAgents(t, store, 10)

	preview, err := svc.Latest(context.Background(), "bronze_agents", 3)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if preview.RowCount != 10 {
		t.Errorf("RowCount = %d, want the full 10", preview.RowCount)
	}
	rows, ok := preview.Rows.([]dataset.Agent)
	if !ok {
		t.Fatalf("Rows has type %T", preview.Rows)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}
	if preview.SourcePath == "" {
		t.Error("SourcePath is empty")
	}
}

func TestLatestUnknownDataset(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Latest(context.Background(), "bronze_unicorns", 5)
	if !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestLatestMissingObject(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Latest(context.Background(), "bronze_agents", 5)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
