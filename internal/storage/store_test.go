package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polsterdata/polster/internal/config"
)

type testRow struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

// fakeBackend is an in-memory ObjectStore with injectable failures.
type fakeBackend struct {
	objects map[string][]byte
	scheme  string
	putErr  error
	getErr  error
	listErr error
}

func newFakeBackend(scheme string) *fakeBackend {
	return &fakeBackend{objects: make(map[string][]byte), scheme: scheme}
}

func (f *fakeBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return data, nil
}

func (f *fakeBackend) Put(ctx context.Context, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBackend) Location(key string) string {
	return f.scheme + "://" + key
}

func newTestStore(t *testing.T, cfg config.StorageConfig, opts ...Option) *Store {
	t.Helper()
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	s, err := New(cfg, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func rowCount(t *testing.T, data []byte) int {
	t.Helper()
	rows, err := unmarshalTable[testRow](data)
	if err != nil {
		t.Fatalf("unmarshalTable: %v", err)
	}
	return len(rows)
}

func sampleRows(n int) []testRow {
	rows := make([]testRow, n)
	for i := range rows {
		rows[i] = testRow{ID: int64(i + 1), Name: fmt.Sprintf("row-%d", i+1)}
	}
	return rows
}

func TestWriteLocalPrimary(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 50}, WithLocal(local))

	res, err := Write(context.Background(), s, LayerBronze, "bronze_agents_20240101T000000Z.parquet", sampleRows(3))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if res.PrimaryPath != "local://bronze/bronze_agents_20240101T000000Z.parquet" {
		t.Errorf("unexpected primary path %q", res.PrimaryPath)
	}
	if res.MirrorLocalPath != "" {
		t.Errorf("mirror path set without a remote primary: %q", res.MirrorLocalPath)
	}
	if got := rowCount(t, local.objects["bronze/bronze_agents_20240101T000000Z.parquet"]); got != 3 {
		t.Errorf("primary object has %d rows, want 3", got)
	}
	// Cap above row count: the sample carries every row.
	if got := rowCount(t, local.objects["bronze/sample_bronze_agents_20240101T000000Z.parquet"]); got != 3 {
		t.Errorf("sample has %d rows, want 3", got)
	}
}

func TestWriteSampleRowCap(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 2}, WithLocal(local))

	res, err := Write(context.Background(), s, LayerBronze, "bronze_agents_20240101T000000Z.parquet", sampleRows(5))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.SampleLocalPath == "" {
		t.Fatal("expected a sample path")
	}
	if got := rowCount(t, local.objects["bronze/sample_bronze_agents_20240101T000000Z.parquet"]); got != 2 {
		t.Errorf("sample has %d rows, want 2", got)
	}
}

func TestWriteSampleDisabled(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{DisableLocalSample: true, SampleRowCap: 50}, WithLocal(local))

	res, err := Write(context.Background(), s, LayerBronze, "bronze_agents_20240101T000000Z.parquet", sampleRows(3))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.SampleLocalPath != "" {
		t.Errorf("sample path set while sampling disabled: %q", res.SampleLocalPath)
	}
	if len(local.objects) != 1 {
		t.Errorf("local backend holds %d objects, want only the primary", len(local.objects))
	}
}

func TestWriteRemotePrimaryWithMirror(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	s := newTestStore(t, config.StorageConfig{FallbackToLocal: true, SampleRowCap: 50},
		WithLocal(local), WithRemote(remote))

	res, err := Write(context.Background(), s, LayerSilver, "silver_clean_agents_20240101T000000Z.parquet", sampleRows(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if res.PrimaryPath != "abfss://silver/silver_clean_agents_20240101T000000Z.parquet" {
		t.Errorf("unexpected primary path %q", res.PrimaryPath)
	}
	if res.MirrorLocalPath == "" {
		t.Error("expected a local mirror when fallback is enabled")
	}
	if got := rowCount(t, local.objects["silver/silver_clean_agents_20240101T000000Z.parquet"]); got != 4 {
		t.Errorf("mirror has %d rows, want the full 4", got)
	}
	if res.SampleLocalPath == "" {
		t.Error("expected a local sample alongside the remote primary")
	}
}

func TestWriteRemotePrimaryWithoutFallbackSkipsMirror(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 50}, WithLocal(local), WithRemote(remote))

	res, err := Write(context.Background(), s, LayerSilver, "silver_clean_agents_20240101T000000Z.parquet", sampleRows(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.MirrorLocalPath != "" {
		t.Errorf("mirror written without fallback enabled: %q", res.MirrorLocalPath)
	}
	if _, ok := local.objects["silver/silver_clean_agents_20240101T000000Z.parquet"]; ok {
		t.Error("full local copy exists although fallback is disabled")
	}
	if _, ok := local.objects["silver/sample_silver_clean_agents_20240101T000000Z.parquet"]; !ok {
		t.Error("sample missing")
	}
}

func TestWriteRemoteFailureIsFatalWithoutFallback(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	remote.putErr = errors.New("503 service unavailable")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 50}, WithLocal(local), WithRemote(remote))

	_, err := Write(context.Background(), s, LayerGold, "gold_customer_risk_20240101T000000Z.parquet", sampleRows(3))
	if !errors.Is(err, ErrRemoteWrite) {
		t.Fatalf("got %v, want ErrRemoteWrite", err)
	}

	var rwe *RemoteWriteError
	if !errors.As(err, &rwe) {
		t.Fatalf("error is not a *RemoteWriteError: %T", err)
	}
	if rwe.Path == "" {
		t.Error("RemoteWriteError carries no path")
	}
	// A fatal remote failure must leave no partial state behind.
	if len(local.objects) != 0 {
		t.Errorf("local backend holds %d objects after fatal remote failure, want 0", len(local.objects))
	}
}

func TestWriteRemoteFailureFallsBackToLocal(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	remote.putErr = errors.New("503 service unavailable")
	s := newTestStore(t, config.StorageConfig{FallbackToLocal: true, SampleRowCap: 50},
		WithLocal(local), WithRemote(remote))

	res, err := Write(context.Background(), s, LayerGold, "gold_customer_risk_20240101T000000Z.parquet", sampleRows(3))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.PrimaryPath != "local://gold/gold_customer_risk_20240101T000000Z.parquet" {
		t.Errorf("unexpected primary path %q", res.PrimaryPath)
	}
	if res.MirrorLocalPath != "" {
		t.Errorf("mirror path set while local is the primary: %q", res.MirrorLocalPath)
	}
}

func TestWriteValidation(t *testing.T) {
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 50}, WithLocal(newFakeBackend("local")))
	ctx := context.Background()

	if _, err := Write[testRow](ctx, s, LayerBronze, "x.parquet", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("nil table: got %v, want ErrValidation", err)
	}
	if _, err := Write(ctx, s, Layer("platinum"), "x.parquet", sampleRows(1)); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown layer: got %v, want ErrValidation", err)
	}
	if _, err := Write(ctx, s, LayerBronze, "  ", sampleRows(1)); !errors.Is(err, ErrValidation) {
		t.Errorf("blank filename: got %v, want ErrValidation", err)
	}
}

func TestWriteEmptyTable(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 50}, WithLocal(local))

	res, err := Write(context.Background(), s, LayerBronze, "bronze_agents_20240101T000000Z.parquet", []testRow{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.PrimaryPath == "" {
		t.Error("empty tables still produce an object")
	}
	if got := rowCount(t, local.objects["bronze/bronze_agents_20240101T000000Z.parquet"]); got != 0 {
		t.Errorf("object has %d rows, want 0", got)
	}
}

func mustWrite(t *testing.T, s *Store, layer Layer, filename string, rows []testRow) {
	t.Helper()
	if _, err := Write(context.Background(), s, layer, filename, rows); err != nil {
		t.Fatalf("Write %s/%s: %v", layer, filename, err)
	}
}

func TestReadLatestPicksNewestByName(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 1}, WithLocal(local))

	older := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	newer := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	other := ObjectName(LayerBronze, "customers", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	mustWrite(t, s, LayerBronze, older, sampleRows(1))
	mustWrite(t, s, LayerBronze, newer, sampleRows(2))
	mustWrite(t, s, LayerBronze, other, sampleRows(9))

	res, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "agents"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("got %d rows, want the newer object's 2", len(res.Rows))
	}
	if !strings.HasSuffix(res.SourcePath, newer) {
		t.Errorf("source path %q does not point at %q", res.SourcePath, newer)
	}
}

func TestReadLatestIgnoresSamples(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 1}, WithLocal(local))

	name := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	mustWrite(t, s, LayerBronze, name, sampleRows(5))

	// The sample shares the dataset's prefix pattern after the sample_
	// marker; it must never be chosen as a version.
	res, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "agents"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if len(res.Rows) != 5 {
		t.Errorf("got %d rows, want the full object's 5", len(res.Rows))
	}
}

func TestReadLatestSingleCandidate(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{DisableLocalSample: true}, WithLocal(local))

	name := ObjectName(LayerGold, "claims_summary", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	mustWrite(t, s, LayerGold, name, sampleRows(7))

	res, err := ReadLatest[testRow](context.Background(), s, LayerGold, DatasetPrefix(LayerGold, "claims_summary"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if len(res.Rows) != 7 {
		t.Errorf("got %d rows, want 7", len(res.Rows))
	}
}

func TestReadLatestRemoteFirst(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	s := newTestStore(t, config.StorageConfig{FallbackToLocal: true, DisableLocalSample: true},
		WithLocal(local), WithRemote(remote))

	name := ObjectName(LayerSilver, "clean_claims", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	mustWrite(t, s, LayerSilver, name, sampleRows(3))

	res, err := ReadLatest[testRow](context.Background(), s, LayerSilver, DatasetPrefix(LayerSilver, "clean_claims"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if !strings.HasPrefix(res.SourcePath, "abfss://") {
		t.Errorf("source path %q is not the remote location", res.SourcePath)
	}
}

func TestReadLatestFallsBackWhenRemoteEmpty(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	s := newTestStore(t, config.StorageConfig{DisableLocalSample: true}, WithLocal(local), WithRemote(remote))

	name := ObjectName(LayerBronze, "payments", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))
	key := objectKey(LayerBronze, name)
	data, err := marshalTable(sampleRows(2))
	if err != nil {
		t.Fatalf("marshalTable: %v", err)
	}
	local.objects[key] = data

	res, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "payments"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if !strings.HasPrefix(res.SourcePath, "local://") {
		t.Errorf("source path %q is not the local location", res.SourcePath)
	}
}

func TestReadLatestFallsBackWhenRemoteFails(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	remote.listErr = errors.New("401 unauthorized")
	s := newTestStore(t, config.StorageConfig{DisableLocalSample: true}, WithLocal(local), WithRemote(remote))

	name := ObjectName(LayerBronze, "vehicles", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))
	data, err := marshalTable(sampleRows(2))
	if err != nil {
		t.Fatalf("marshalTable: %v", err)
	}
	local.objects[objectKey(LayerBronze, name)] = data

	res, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "vehicles"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("got %d rows, want 2", len(res.Rows))
	}
}

func TestReadLatestNotFound(t *testing.T) {
	s := newTestStore(t, config.StorageConfig{}, WithLocal(newFakeBackend("local")), WithRemote(newFakeBackend("abfss")))

	_, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "agents"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error is not a *NotFoundError: %T", err)
	}
	if nfe.Layer != LayerBronze {
		t.Errorf("NotFoundError layer = %q, want bronze", nfe.Layer)
	}
}

func TestListObjects(t *testing.T) {
	local := newFakeBackend("local")
	s := newTestStore(t, config.StorageConfig{SampleRowCap: 1}, WithLocal(local))

	first := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	second := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	mustWrite(t, s, LayerBronze, first, sampleRows(1))
	mustWrite(t, s, LayerBronze, second, sampleRows(1))

	names, err := s.ListObjects(context.Background(), LayerBronze, DatasetPrefix(LayerBronze, "agents"))
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}
	if names[0] != second || names[1] != first {
		t.Errorf("names not sorted oldest first: %v", names)
	}
}

func TestListObjectsFallsBackWhenRemoteFails(t *testing.T) {
	local := newFakeBackend("local")
	remote := newFakeBackend("abfss")
	remote.listErr = errors.New("timeout")
	s := newTestStore(t, config.StorageConfig{DisableLocalSample: true}, WithLocal(local), WithRemote(remote))

	name := ObjectName(LayerGold, "premium_revenue", time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))
	mustWrite(t, s, LayerGold, name, sampleRows(1))

	names, err := s.ListObjects(context.Background(), LayerGold, "")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("got %v, want [%s]", names, name)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(config.StorageConfig{Backend: "s3"}, zerolog.Nop())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}
}

func TestNewRemoteWithoutCredentials(t *testing.T) {
	_, err := New(config.StorageConfig{Backend: "remote"}, zerolog.Nop())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}

	s, err := New(config.StorageConfig{Backend: "remote", FallbackToLocal: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New with fallback: %v", err)
	}
	if s.RemoteConfigured() {
		t.Error("remote reported configured without credentials")
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	local := NewLocalStore(dir)
	s := newTestStore(t, config.StorageConfig{DataDir: dir, SampleRowCap: 50}, WithLocal(local))

	name := ObjectName(LayerBronze, "agents", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rows := sampleRows(3)
	res, err := Write(context.Background(), s, LayerBronze, name, rows)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.SampleLocalPath == "" {
		t.Error("expected a sample on disk")
	}

	got, err := ReadLatest[testRow](context.Background(), s, LayerBronze, DatasetPrefix(LayerBronze, "agents"))
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if len(got.Rows) != len(rows) {
		t.Fatalf("round trip lost rows: got %d, want %d", len(got.Rows), len(rows))
	}
	for i := range rows {
		if got.Rows[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got.Rows[i], rows[i])
		}
	}
}
