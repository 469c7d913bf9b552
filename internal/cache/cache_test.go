package cache_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPrefs map[string]string

func (m memPrefs) Get(key string) string { return m[key] }

func (m memPrefs) Set(key, value string) error {
	m[key] = value
	return nil
}

func TestStore_RoundTrip(t *testing.T) {
	defer filet.CleanUp(t)
	store, err := cache.NewStore(filet.TmpDir(t, ""), "geocoder-yandex", slog.Default())
	require.NoError(t, err)

	coords := []models.Coordinate{
		{Latitude: 50.4501, Longitude: 30.5234, Radius: 250},
		{Latitude: -33.8688, Longitude: 151.2093, Radius: 100},
		{Latitude: 0, Longitude: 0},
	}

	for _, c := range coords {
		raw := []byte(`{"response":{"lat":"` + models.FormatDegrees(c.Latitude) + `"}}`)
		require.NoError(t, store.Put(c, raw))

		got, status := store.Get(c)
		assert.Equal(t, cache.StatusHit, status)
		assert.Equal(t, raw, got)
	}
}

func TestStore_Get(t *testing.T) {
	defer filet.CleanUp(t)
	store, err := cache.NewStore(filet.TmpDir(t, ""), "geocoder-yandex", slog.Default())
	require.NoError(t, err)
	coord := models.Coordinate{Latitude: 48.8566, Longitude: 2.3522, Radius: 250}

	t.Run("missing file is a miss", func(t *testing.T) {
		got, status := store.Get(coord)

		assert.Nil(t, got)
		assert.Equal(t, cache.StatusMiss, status)
	})

	t.Run("garbage is reported corrupt", func(t *testing.T) {
		filet.File(t, store.Path(coord), `{"response": tru`)

		got, status := store.Get(coord)

		assert.Nil(t, got)
		assert.Equal(t, cache.StatusCorrupt, status)
	})

	t.Run("put overwrites corrupt entry", func(t *testing.T) {
		require.NoError(t, store.Put(coord, []byte(`{}`)))

		got, status := store.Get(coord)
		assert.Equal(t, cache.StatusHit, status)
		assert.JSONEq(t, `{}`, string(got))
	})
}

func TestKey(t *testing.T) {
	a := models.Coordinate{Latitude: 10, Longitude: 20, Radius: 250}
	b := models.Coordinate{Latitude: 10, Longitude: 20, Radius: 500}
	c := models.Coordinate{Latitude: 20, Longitude: 10, Radius: 250}

	assert.Equal(t, cache.Key(a), cache.Key(b), "radius does not take part in the key")
	assert.NotEqual(t, cache.Key(a), cache.Key(c))
	assert.Len(t, cache.Key(a), 64)
	assert.Equal(t, cache.Hash("10.000000-20.000000"), cache.Key(a))
}

func TestStore_Lock(t *testing.T) {
	defer filet.CleanUp(t)
	store, err := cache.NewStore(filet.TmpDir(t, ""), "ns", slog.Default())
	require.NoError(t, err)
	coord := models.Coordinate{Latitude: 1, Longitude: 2}

	var (
		wg     sync.WaitGroup
		inside atomic.Int32
	)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock(coord)
			defer unlock()

			assert.Equal(t, int32(1), inside.Add(1))
			assert.NoError(t, store.Put(coord, []byte(strconv.Itoa(i))))
			inside.Add(-1)
		}()
	}
	wg.Wait()

	_, status := store.Get(coord)
	assert.Equal(t, cache.StatusHit, status)
	assert.Zero(t, store.LockEntries(), "released locks are dropped")
}

func TestStore_LockReleasesEntries(t *testing.T) {
	defer filet.CleanUp(t)
	store, err := cache.NewStore(filet.TmpDir(t, ""), "ns", slog.Default())
	require.NoError(t, err)

	first := store.Lock(models.Coordinate{Latitude: 1, Longitude: 2})
	second := store.Lock(models.Coordinate{Latitude: 3, Longitude: 4})
	assert.Equal(t, 2, store.LockEntries())

	first()
	assert.Equal(t, 1, store.LockEntries())
	second()
	assert.Zero(t, store.LockEntries())

	for i := range 100 {
		store.Lock(models.Coordinate{Latitude: float64(i), Longitude: float64(i)})()
	}
	assert.Zero(t, store.LockEntries())
}

func TestNewStore_EmptyNamespace(t *testing.T) {
	_, err := cache.NewStore(os.TempDir(), "", slog.Default())

	require.ErrorIs(t, err, cache.ErrEmptyNamespace)
}

func TestPurgeIfStale(t *testing.T) {
	defer filet.CleanUp(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	t.Run("missing directory is created and interval starts", func(t *testing.T) {
		root := filepath.Join(filet.TmpDir(t, ""), "cache")
		prefs := memPrefs{}

		purged, err := cache.PurgeIfStale(root, prefs, now, cache.DefaultPurgeInterval)

		require.NoError(t, err)
		assert.False(t, purged)
		assert.True(t, filet.Exists(t, root))
		assert.Equal(t, strconv.FormatInt(now.Unix(), 10), prefs[cache.LastCleanKey])
	})

	t.Run("fresh cache is kept", func(t *testing.T) {
		root := filet.TmpDir(t, "")
		entry := filepath.Join(root, "entry.json")
		filet.File(t, entry, "{}")
		prefs := memPrefs{cache.LastCleanKey: strconv.FormatInt(now.Add(-24*time.Hour).Unix(), 10)}

		purged, err := cache.PurgeIfStale(root, prefs, now, cache.DefaultPurgeInterval)

		require.NoError(t, err)
		assert.False(t, purged)
		assert.True(t, filet.Exists(t, entry))
	})

	t.Run("stale cache is purged", func(t *testing.T) {
		root := filet.TmpDir(t, "")
		entry := filepath.Join(root, "entry.json")
		filet.File(t, entry, "{}")
		prefs := memPrefs{cache.LastCleanKey: strconv.FormatInt(now.Add(-31*24*time.Hour).Unix(), 10)}

		purged, err := cache.PurgeIfStale(root, prefs, now, cache.DefaultPurgeInterval)

		require.NoError(t, err)
		assert.True(t, purged)
		assert.False(t, filet.Exists(t, entry))
		assert.True(t, filet.Exists(t, root))
		assert.Equal(t, strconv.FormatInt(now.Unix(), 10), prefs[cache.LastCleanKey])
	})

	t.Run("unparsable record counts as never purged", func(t *testing.T) {
		root := filet.TmpDir(t, "")
		prefs := memPrefs{cache.LastCleanKey: "yesterday"}

		purged, err := cache.PurgeIfStale(root, prefs, now, cache.DefaultPurgeInterval)

		require.NoError(t, err)
		assert.True(t, purged)
	})
}
