package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polsterdata/polster/internal/config"
)

// Store resolves dataset references against a local filesystem backend and,
// when credentials are complete, a remote data-lake backend.
//
// The remote backend is preferred whenever it is configured, even when the
// nominal STORAGE_BACKEND is "local". This is a deliberate durability
// policy: wherever we can write remotely, we do.
type Store struct {
	cfg    config.StorageConfig
	log    zerolog.Logger
	local  ObjectStore
	remote ObjectStore // nil when remote credentials are incomplete
}

// Option customizes a Store; used by tests to inject fake backends.
type Option func(*Store)

// WithRemote replaces the remote backend. Passing nil disables remote.
func WithRemote(remote ObjectStore) Option {
	return func(s *Store) { s.remote = remote }
}

// WithLocal replaces the local backend.
func WithLocal(local ObjectStore) Option {
	return func(s *Store) { s.local = local }
}

// New validates the resolved configuration and composes the backends.
func New(cfg config.StorageConfig, log zerolog.Logger, opts ...Option) (*Store, error) {
	switch cfg.Backend {
	case "local", "remote":
	default:
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("unsupported STORAGE_BACKEND %q, must be \"local\" or \"remote\"", cfg.Backend),
		}
	}

	s := &Store{
		cfg:   cfg,
		log:   log.With().Str("component", "storage").Logger(),
		local: NewLocalStore(cfg.DataDir),
	}

	if cfg.Remote.Configured() {
		remote, err := NewAzureStore(cfg.Remote)
		if err != nil {
			return nil, err
		}
		s.remote = remote
	} else if cfg.Backend == "remote" {
		if !cfg.FallbackToLocal {
			return nil, &ConfigurationError{
				Reason: "STORAGE_BACKEND=remote but remote credentials are incomplete and fallback is disabled",
			}
		}
		s.log.Warn().Msg("remote backend selected but not configured, operating on local storage only")
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RemoteConfigured reports whether a remote backend is attached.
func (s *Store) RemoteConfigured() bool { return s.remote != nil }

// DataDir returns the local data root.
func (s *Store) DataDir() string { return s.cfg.DataDir }

// WriteResult reports where a dual write landed. SampleLocalPath and
// MirrorLocalPath stay empty when the corresponding side write was
// disabled or failed; side-write failures never fail the operation.
type WriteResult struct {
	PrimaryPath     string
	SampleLocalPath string
	MirrorLocalPath string
}

// ReadResult carries a loaded table and the location it came from.
type ReadResult[T any] struct {
	SourcePath string
	Rows       []T
}

// Write publishes a table as an immutable object under (layer, filename),
// executing the dual-write protocol:
//
//  1. attempt a full remote upload when remote is configured; a failure is
//     fatal unless fallback-to-local is enabled, in which case local
//     becomes the primary,
//  2. after a successful remote write, mirror the full table locally when
//     fallback is enabled (best effort),
//  3. write a row-capped local sample unless disabled (best effort),
//  4. when no remote path was produced, the full local write is the
//     primary and its failure is fatal.
//
// The step ordering is load-bearing: a fatal remote failure aborts before
// any sample or mirror object exists, so a failed write leaves no partial
// state behind.
func Write[T any](ctx context.Context, s *Store, layer Layer, filename string, rows []T) (WriteResult, error) {
	if err := validateRef(layer, filename); err != nil {
		return WriteResult{}, err
	}
	if rows == nil {
		return WriteResult{}, &ValidationError{Reason: "table is required"}
	}
	if len(rows) == 0 {
		s.log.Warn().Str("layer", string(layer)).Str("filename", filename).
			Msg("writing empty table")
	}

	data, err := marshalTable(rows)
	if err != nil {
		return WriteResult{}, fmt.Errorf("serialize %s/%s: %w", layer, filename, err)
	}

	key := objectKey(layer, filename)
	var res WriteResult

	if s.remote != nil {
		uri := s.remote.Location(key)
		if err := s.remote.Put(ctx, key, data); err != nil {
			if !s.cfg.FallbackToLocal {
				return WriteResult{}, &RemoteWriteError{Path: uri, Err: err}
			}
			s.log.Warn().Err(err).Str("uri", uri).
				Msg("remote write failed, falling back to local storage")
		} else {
			res.PrimaryPath = uri
			s.log.Info().Str("uri", uri).Int("rows", len(rows)).Msg("remote write successful")

			if s.cfg.FallbackToLocal {
				if err := s.local.Put(ctx, key, data); err != nil {
					s.log.Warn().Err(err).Msg("local mirror write failed (non-critical)")
				} else {
					res.MirrorLocalPath = s.local.Location(key)
				}
			}
		}
	}

	if !s.cfg.DisableLocalSample {
		res.SampleLocalPath = writeSample(ctx, s, layer, filename, rows)
	}

	if res.PrimaryPath == "" {
		if err := s.local.Put(ctx, key, data); err != nil {
			return WriteResult{}, &LocalWriteError{Path: s.local.Location(key), Err: err}
		}
		res.PrimaryPath = s.local.Location(key)
		s.log.Info().Str("path", res.PrimaryPath).Int("rows", len(rows)).
			Msg("local write successful")
	}

	return res, nil
}

// writeSample keeps a small inspectable local copy next to the primary
// data, even when the primary lives remotely. Failures are logged and
// swallowed; a missing sample must never block a pipeline stage.
func writeSample[T any](ctx context.Context, s *Store, layer Layer, filename string, rows []T) string {
	n := s.cfg.SampleRowCap
	if n > len(rows) {
		n = len(rows)
	}

	data, err := marshalTable(rows[:n])
	if err != nil {
		s.log.Error().Err(err).Msg("failed to serialize local sample")
		return ""
	}

	key := objectKey(layer, "sample_"+filename)
	if err := s.local.Put(ctx, key, data); err != nil {
		s.log.Error().Err(err).Msg("failed to write local sample")
		return ""
	}
	return s.local.Location(key)
}

// ReadLatest loads the most recent version of a dataset, resolved purely
// from filename ordering. When remote is configured it is consulted first;
// any remote failure (listing, download, or no remote candidates at all)
// downgrades silently to the local read.
func ReadLatest[T any](ctx context.Context, s *Store, layer Layer, prefix string) (ReadResult[T], error) {
	if err := validateRef(layer, prefix); err != nil {
		return ReadResult[T]{}, err
	}

	if s.remote != nil {
		res, err := readLatestFrom[T](ctx, s.remote, layer, prefix)
		if err == nil {
			s.log.Info().Str("uri", res.SourcePath).Int("rows", len(res.Rows)).
				Msg("remote read successful")
			return res, nil
		}
		s.log.Warn().Err(err).Str("layer", string(layer)).Str("prefix", prefix).
			Msg("remote read failed, falling back to local storage")
	}

	res, err := readLatestFrom[T](ctx, s.local, layer, prefix)
	if err != nil {
		return ReadResult[T]{}, err
	}
	s.log.Info().Str("path", res.SourcePath).Int("rows", len(res.Rows)).
		Msg("local read successful")
	return res, nil
}

func readLatestFrom[T any](ctx context.Context, backend ObjectStore, layer Layer, prefix string) (ReadResult[T], error) {
	key, err := latestKey(ctx, backend, layer, prefix)
	if err != nil {
		return ReadResult[T]{}, err
	}

	data, err := backend.Get(ctx, key)
	if err != nil {
		return ReadResult[T]{}, err
	}

	rows, err := unmarshalTable[T](data)
	if err != nil {
		return ReadResult[T]{}, fmt.Errorf("deserialize %s: %w", key, err)
	}

	return ReadResult[T]{
		SourcePath: backend.Location(key),
		Rows:       rows,
	}, nil
}

// latestKey lists the layer directory, filters candidates by prefix and
// extension, and picks the lexicographically greatest name. Correctness
// depends entirely on the sortable timestamp token in object names.
func latestKey(ctx context.Context, backend ObjectStore, layer Layer, prefix string) (string, error) {
	keys, err := backend.List(ctx, string(layer)+"/")
	if err != nil {
		return "", err
	}

	var latest string
	for _, key := range keys {
		name := path.Base(key)
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ObjectExt) {
			continue
		}
		if strings.HasPrefix(name, "sample_") {
			continue
		}
		if latest == "" || name > path.Base(latest) {
			latest = key
		}
	}

	if latest == "" {
		return "", &NotFoundError{Layer: layer, Prefix: prefix}
	}
	return latest, nil
}

// ListObjects returns the matching object names in a layer, newest last.
func (s *Store) ListObjects(ctx context.Context, layer Layer, prefix string) ([]string, error) {
	if !layer.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown layer %q", layer)}
	}

	backend := s.local
	if s.remote != nil {
		backend = s.remote
	}

	keys, err := backend.List(ctx, string(layer)+"/")
	if err != nil && s.remote != nil {
		s.log.Warn().Err(err).Msg("remote listing failed, falling back to local storage")
		keys, err = s.local.List(ctx, string(layer)+"/")
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, key := range keys {
		name := path.Base(key)
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ObjectExt) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func validateRef(layer Layer, name string) error {
	if !layer.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown layer %q", layer)}
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Reason: "filename or prefix must be non-empty"}
	}
	return nil
}

func objectKey(layer Layer, filename string) string {
	return path.Join(string(layer), filename)
}
