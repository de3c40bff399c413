package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const (
	statePathKey    = "storage.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".hms"
	stateFileName   = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

// Store keeps every key in one TOML document. Writes replace the file atomically.
type Store struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.BatchKeyValueStore = (*Store)(nil)

func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	statePath := cfg.GetString(statePathKey)
	if statePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		statePath = filepath.Join(homeDir, stateConfigDir, stateFileName)
	}

	statePath, err := normalizeStatePath(statePath)
	if err != nil {
		return nil, err
	}

	return &Store{statePath: statePath, mu: lockForPath(statePath)}, nil
}

func (s *Store) Path() string {
	return s.statePath
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return "", err
	}

	value, ok := file.Entries[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	return s.Apply(ctx, ports.Mutation{Set: map[string]string{key: value}})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, ports.Mutation{Remove: []string{key}})
}

// Apply rewrites the document once for the whole mutation.
func (s *Store) Apply(ctx context.Context, mutation ports.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mutation.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	changed := false
	for key, value := range mutation.Set {
		if current, ok := file.Entries[key]; !ok || current != value {
			file.Entries[key] = value
			changed = true
		}
	}
	for _, key := range mutation.Remove {
		if _, ok := file.Entries[key]; ok {
			delete(file.Entries, key)
			changed = true
		}
	}

	if !changed {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	var file fileSchema

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, s.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	return nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
