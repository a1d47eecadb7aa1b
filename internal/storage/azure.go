package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/chartmuseum/storage"

	"github.com/polsterdata/polster/internal/config"
)

// AzureStore implements ObjectStore against an Azure Data Lake container
// through chartmuseum's Microsoft Blob backend. Keys are stored under the
// configured base path inside the container.
type AzureStore struct {
	backend storage.Backend
	cfg     config.RemoteConfig
}

// NewAzureStore builds an AzureStore. Every credential must be present;
// the caller decides beforehand whether remote is configured at all.
func NewAzureStore(cfg config.RemoteConfig) (*AzureStore, error) {
	if cfg.Account == "" || cfg.Key == "" || cfg.Container == "" {
		return nil, &ConfigurationError{
			Reason: "remote backend requires REMOTE_ACCOUNT, REMOTE_KEY and REMOTE_CONTAINER",
		}
	}

	// The blob backend reads its credentials from the process environment.
	os.Setenv("AZURE_STORAGE_ACCOUNT", cfg.Account)
	os.Setenv("AZURE_STORAGE_ACCESS_KEY", cfg.Key)

	backend := storage.NewMicrosoftBlobBackend(cfg.Container, cfg.BasePath)

	return &AzureStore{
		backend: backend,
		cfg:     cfg,
	}, nil
}

func (s *AzureStore) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("remote list %q failed: %w", prefix, err)
	}

	keys := make([]string, 0, len(objects))
	for _, object := range objects {
		key := object.Path
		if !strings.HasPrefix(key, prefix) {
			key = path.Join(prefix, key)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.backend.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("remote download %q failed: %w", key, err)
	}
	return object.Content, nil
}

func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("remote upload %q failed: %w", key, err)
	}
	return nil
}

// Location renders the key as an abfss URI, the shape the rest of the
// platform reports as a primary path.
func (s *AzureStore) Location(key string) string {
	return fmt.Sprintf("abfss://%s@%s.dfs.core.windows.net/%s",
		s.cfg.Container, s.cfg.Account, path.Join(s.cfg.BasePath, key))
}

var _ ObjectStore = (*AzureStore)(nil)
