// Package storage persists each pipeline stage's output as an immutable,
// timestamp-versioned parquet object on a local filesystem or a remote
// data lake, and resolves "the latest version of a dataset" purely from
// filename ordering. Write and ReadLatest are the entire contract between
// pipeline stages; no other state crosses stage boundaries.
package storage
