package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/pkg/errors"
)

const (
	vaultDirMode  = 0o700
	vaultFileMode = 0o600

	// vaultFileName is the fixed namespace for the local vault blob. The file
	// maps platform identifier to its encrypted credential record.
	vaultFileName = "credentials.json"
)

// FileStore keeps the whole vault in a single JSON blob on disk, the local
// equivalent of the dashboard's per-origin storage namespace.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

var _ vault.CredentialStore = (*FileStore)(nil)

// NewFileStore creates a file-backed credential store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, vaultDirMode); err != nil {
		return nil, errors.Wrap(err, "failed to create vault directory")
	}

	return &FileStore{path: filepath.Join(filepath.Clean(dir), vaultFileName)}, nil
}

func (s *FileStore) Save(ctx context.Context, credential *vault.PlatformCredential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if credential == nil {
		return errors.New("credential is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.load()
	if err != nil {
		return err
	}

	blob[credential.Platform] = credential
	return s.write(blob)
}

func (s *FileStore) Get(ctx context.Context, platform vault.Platform) (*vault.PlatformCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := s.load()
	if err != nil {
		return nil, err
	}

	credential, ok := blob[platform]
	if !ok {
		return nil, vault.ErrCredentialNotFound
	}
	return credential, nil
}

func (s *FileStore) Delete(ctx context.Context, platform vault.Platform) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := blob[platform]; !ok {
		return nil
	}

	delete(blob, platform)
	return s.write(blob)
}

func (s *FileStore) List(ctx context.Context) ([]*vault.PlatformCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := s.load()
	if err != nil {
		return nil, err
	}

	credentials := make([]*vault.PlatformCredential, 0, len(blob))
	for _, credential := range blob {
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

func (s *FileStore) load() (map[vault.Platform]*vault.PlatformCredential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[vault.Platform]*vault.PlatformCredential{}, nil
		}
		return nil, errors.Wrap(err, "failed to read vault file")
	}

	blob := map[vault.Platform]*vault.PlatformCredential{}
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.Wrap(err, "failed to decode vault file")
	}
	return blob, nil
}

func (s *FileStore) write(blob map[vault.Platform]*vault.PlatformCredential) error {
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode vault file")
	}

	// 写入文件（使用临时文件然后原子重命名）
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, vaultFileMode); err != nil {
		return errors.Wrap(err, "failed to write vault file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}
