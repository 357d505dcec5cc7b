package knowledge

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadsOnceAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Stability:\n  General:\n    General:\n      US:\n        Checklist: [v1]\n"), 0o644))

	c := NewCache(path, slog.New(slog.DiscardHandler))
	assert.Zero(t, c.Version())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(1), c.Version())

	first := c.Get()
	b, _ := first.TryGet("Stability", General, General, "US")
	assert.Equal(t, []string{"v1"}, b.Items("Checklist"))

	require.NoError(t, os.WriteFile(path, []byte("Stability:\n  General:\n    General:\n      US:\n        Checklist: [v2]\n"), 0o644))
	assert.Same(t, first, c.Get(), "no reload without an explicit request")

	c.Reload()
	assert.Equal(t, uint64(2), c.Version())
	b, _ = c.Get().TryGet("Stability", General, General, "US")
	assert.Equal(t, []string{"v2"}, b.Items("Checklist"))

	c.Invalidate()
	c.Get()
	assert.Equal(t, uint64(3), c.Version())
}

func TestCache_ResolverSeesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	c := NewCache(path, slog.New(slog.DiscardHandler))
	r := NewResolver(c)

	got := r.Resolve("Stability", "mAb", "BLA", "US")
	assert.NotEqual(t, NoMatch, got.Trace[len(got.Trace)-1], "missing file falls back to the default tree")

	require.NoError(t, os.WriteFile(path, []byte("Other:\n  General:\n    General:\n      US:\n        Checklist: [x]\n"), 0o644))
	c.Reload()
	got = r.Resolve("Stability", "mAb", "BLA", "US")
	assert.Equal(t, NoMatch, got.Trace[len(got.Trace)-1])
}
