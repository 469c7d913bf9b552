package prefs_test

import (
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/geoplaces/internal/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	t.Run("missing file yields empty store", func(t *testing.T) {
		store, err := prefs.Open(filepath.Join(dir, "absent.yaml"))

		require.NoError(t, err)
		assert.Empty(t, store.Get("geocoder"))
	})

	t.Run("values survive reopen", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "prefs.yaml")
		store, err := prefs.Open(path)
		require.NoError(t, err)

		require.NoError(t, store.Set("geocoder", "yandex"))
		require.NoError(t, store.Set("last_cache_clean", "1700000000"))

		reopened, err := prefs.Open(path)
		require.NoError(t, err)
		assert.Equal(t, "yandex", reopened.Get("geocoder"))
		assert.Equal(t, "1700000000", reopened.Get("last_cache_clean"))
		assert.True(t, filet.Exists(t, path))
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		filet.File(t, path, "geocoder: [unterminated")

		_, err := prefs.Open(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse preferences")
	})

	t.Run("empty file yields empty store", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		filet.File(t, path, "")

		store, err := prefs.Open(path)

		require.NoError(t, err)
		require.NoError(t, store.Set("geocoder", "here"))
		assert.Equal(t, "here", store.Get("geocoder"))
	})
}
