package prompt

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFs struct {
	afero.Fs
	opens atomic.Int32
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens.Add(1)
	return c.Fs.Open(name)
}

func newCountingFs(t *testing.T, files map[string]string) *countingFs {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(body), 0o644))
	}
	return &countingFs{Fs: mem}
}

func TestTemplateStore_Load(t *testing.T) {
	t.Run("Should read the backing store once per identifier", func(t *testing.T) {
		fsys := newCountingFs(t, map[string]string{"base.txt": "hello"})
		store, err := NewTemplateStore(fsys, 4, true)
		require.NoError(t, err)
		for range 3 {
			text, err := store.Load(t.Context(), "base.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello", text)
		}
		assert.Equal(t, int32(1), fsys.opens.Load())
		assert.Equal(t, CacheStats{Size: 1, Enabled: true}, store.CacheStats())
	})

	t.Run("Should collapse concurrent misses", func(t *testing.T) {
		fsys := newCountingFs(t, map[string]string{"base.txt": "hello"})
		store, err := NewTemplateStore(fsys, 4, true)
		require.NoError(t, err)
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = store.Load(t.Context(), "base.txt")
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), fsys.opens.Load())
	})

	t.Run("Should read again after ClearCache", func(t *testing.T) {
		fsys := newCountingFs(t, map[string]string{"base.txt": "hello"})
		store, err := NewTemplateStore(fsys, 4, true)
		require.NoError(t, err)
		_, err = store.Load(t.Context(), "base.txt")
		require.NoError(t, err)
		store.ClearCache()
		assert.Equal(t, 0, store.CacheStats().Size)
		_, err = store.Load(t.Context(), "base.txt")
		require.NoError(t, err)
		assert.Equal(t, int32(2), fsys.opens.Load())
	})

	t.Run("Should read every time when caching is disabled", func(t *testing.T) {
		fsys := newCountingFs(t, map[string]string{"base.txt": "hello"})
		store, err := NewTemplateStore(fsys, 4, false)
		require.NoError(t, err)
		_, _ = store.Load(t.Context(), "base.txt")
		_, _ = store.Load(t.Context(), "base.txt")
		assert.Equal(t, int32(2), fsys.opens.Load())
		assert.Equal(t, CacheStats{Size: 0, Enabled: false}, store.CacheStats())
	})

	t.Run("Should reject identifiers escaping the template root", func(t *testing.T) {
		store, err := NewTemplateStore(afero.NewMemMapFs(), 4, true)
		require.NoError(t, err)
		_, err = store.Load(t.Context(), "../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidTemplateID)
		_, err = store.Load(t.Context(), " ")
		assert.ErrorIs(t, err, ErrInvalidTemplateID)
	})

	t.Run("Should return an error for missing templates", func(t *testing.T) {
		store, err := NewTemplateStore(afero.NewMemMapFs(), 4, true)
		require.NoError(t, err)
		_, err = store.Load(t.Context(), "missing.txt")
		assert.Error(t, err)
	})
}

func TestNewTemplateStoreFromConfig(t *testing.T) {
	t.Run("Should serve the embedded default template", func(t *testing.T) {
		store, err := NewTemplateStoreFromConfig(nil)
		require.NoError(t, err)
		text, err := store.Load(t.Context(), "prompt.txt")
		require.NoError(t, err)
		assert.Contains(t, text, "{{ROLE_SPECIFIC_INSTRUCTIONS}}")
	})
}
