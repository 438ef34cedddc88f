// Package toml persists profile drafts to a single TOML file so an edit
// session survives across CLI invocations. Writes go through a temp file and
// rename, and a per-path lock registry serializes access when several
// repositories point at the same file.
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

	"github.com/essencia-app/essencia-cli/internal/domain"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	draftsPathKey   = "drafts.path"
	draftsFileMode  = 0o600
	draftsDirMode   = 0o700
	configDir       = ".essencia"
	draftsFile      = "drafts.toml"
	tempFilePattern = ".drafts-*.toml.tmp"
)

type Repository struct {
	draftsPath string
	mu         *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.DraftRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDir, draftsFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault(draftsPathKey, defaultPath)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	draftsPath := cfg.GetString(draftsPathKey)
	if draftsPath == "" {
		return nil, errors.New("drafts path is empty")
	}
	draftsPath, err = normalizeDraftsPath(draftsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{draftsPath: draftsPath, mu: lockForPath(draftsPath)}, nil
}

// NewRepositoryAt bypasses config resolution, mainly for tests.
func NewRepositoryAt(path string) (*Repository, error) {
	draftsPath, err := normalizeDraftsPath(path)
	if err != nil {
		return nil, err
	}
	return &Repository{draftsPath: draftsPath, mu: lockForPath(draftsPath)}, nil
}

func (r *Repository) Save(ctx context.Context, draft domain.ProfileDraft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toSchema(draft)
	updated := false
	for i := range file.Drafts {
		if file.Drafts[i].ProfessionalID == encoded.ProfessionalID {
			file.Drafts[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Drafts = append(file.Drafts, encoded)
	}

	return r.writeSchema(file)
}

func (r *Repository) Get(ctx context.Context, professionalID int64) (domain.ProfileDraft, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProfileDraft{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.ProfileDraft{}, err
	}

	for _, entry := range file.Drafts {
		if entry.ProfessionalID == professionalID {
			return fromSchema(entry), nil
		}
	}
	return domain.ProfileDraft{}, fmt.Errorf("draft for professional %d: %w", professionalID, domain.ErrDraftNotFound)
}

func (r *Repository) Delete(ctx context.Context, professionalID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	kept := file.Drafts[:0]
	for _, entry := range file.Drafts {
		if entry.ProfessionalID != professionalID {
			kept = append(kept, entry)
		}
	}
	file.Drafts = kept

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.draftsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read drafts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode drafts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()
	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.draftsPath), draftsDirMode); err != nil {
		return fmt.Errorf("create drafts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode drafts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.draftsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp drafts file: %w", err)
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
		return fmt.Errorf("write temp drafts file: %w", err)
	}
	if err := tempFile.Chmod(draftsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp drafts file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp drafts file: %w", err)
	}

	if err := os.Rename(tempName, r.draftsPath); err != nil {
		return fmt.Errorf("replace drafts file: %w", err)
	}
	cleanup = false

	if err := os.Chmod(r.draftsPath, draftsFileMode); err != nil {
		return fmt.Errorf("chmod drafts file: %w", err)
	}
	return nil
}

func normalizeDraftsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve drafts path: %w", err)
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
