package prompt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

const defaultCacheSize = 128

var ErrInvalidTemplateID = errors.New("invalid template identifier")

// CacheStats describes the template cache.
type CacheStats struct {
	Size    int  `json:"size"`
	Enabled bool `json:"enabled"`
}

// TemplateStore loads raw template text by identifier and caches it for the
// lifetime of the process. Concurrent misses for one identifier share a read.
type TemplateStore struct {
	fs      afero.Fs
	cache   *lru.Cache[string, string]
	enabled bool
	sf      singleflight.Group
}

// NewTemplateStore creates a store over fsys. A size of zero uses the default.
func NewTemplateStore(fsys afero.Fs, size int, enabled bool) (*TemplateStore, error) {
	if fsys == nil {
		return nil, fmt.Errorf("template filesystem cannot be nil")
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create template cache: %w", err)
	}
	return &TemplateStore{fs: fsys, cache: cache, enabled: enabled}, nil
}

// NewTemplateStoreFromConfig layers cfg.TemplateDir over the embedded templates,
// so files on disk win and built-ins remain available.
func NewTemplateStoreFromConfig(cfg *config.PromptConfig) (*TemplateStore, error) {
	if cfg == nil {
		cfg = &config.Default().Prompt
	}
	fsys := EmbeddedTemplates()
	if dir := strings.TrimSpace(cfg.TemplateDir); dir != "" {
		fsys = afero.NewCopyOnWriteFs(fsys, afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)))
	}
	return NewTemplateStore(fsys, cfg.CacheSize, cfg.CacheEnabled)
}

// Load returns the template text for id.
func (s *TemplateStore) Load(ctx context.Context, id string) (string, error) {
	name, err := cleanTemplateID(id)
	if err != nil {
		return "", err
	}
	if s.enabled {
		if text, ok := s.cache.Get(name); ok {
			return text, nil
		}
	}
	v, err, _ := s.sf.Do(name, func() (any, error) {
		if s.enabled {
			if text, ok := s.cache.Get(name); ok {
				return text, nil
			}
		}
		raw, err := afero.ReadFile(s.fs, name)
		if err != nil {
			return "", fmt.Errorf("read template %q: %w", name, err)
		}
		text := string(raw)
		if s.enabled {
			s.cache.Add(name, text)
		}
		logger.FromContext(ctx).Debug("Loaded prompt template", "template", name, "bytes", len(raw))
		return text, nil
	})
	if err != nil {
		return "", err
	}
	text, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected template value for %q", name)
	}
	return text, nil
}

// ClearCache drops every cached template.
func (s *TemplateStore) ClearCache() {
	s.cache.Purge()
}

func (s *TemplateStore) CacheStats() CacheStats {
	return CacheStats{Size: s.cache.Len(), Enabled: s.enabled}
}

func cleanTemplateID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTemplateID)
	}
	cleaned := path.Clean(strings.ReplaceAll(trimmed, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidTemplateID, id)
	}
	return cleaned, nil
}
