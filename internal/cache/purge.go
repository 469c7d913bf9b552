package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultPurgeInterval is how long cached responses live before the whole cache is dropped.
const DefaultPurgeInterval = 30 * 24 * time.Hour

// LastCleanKey is the preference key recording the last purge as a Unix timestamp.
const LastCleanKey = "last_cache_clean"

// Preferences persists small string values between runs.
type Preferences interface {
	Get(key string) string
	Set(key, value string) error
}

// Purge removes everything under root and recreates the directory.
func Purge(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to remove cache directory: %w", err)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}

	return nil
}

// PurgeIfStale purges root when the last recorded purge is older than interval and
// records now as the new purge time. A missing or unparsable record counts as never
// purged. It reports whether a purge happened.
func PurgeIfStale(root string, prefs Preferences, now time.Time, interval time.Duration) (bool, error) {
	record := func() error {
		if err := prefs.Set(LastCleanKey, strconv.FormatInt(now.Unix(), 10)); err != nil {
			return fmt.Errorf("failed to record cache purge time: %w", err)
		}
		return nil
	}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err = os.MkdirAll(root, dirPerm); err != nil {
			return false, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return false, record()
	}

	lastClean, err := strconv.ParseInt(prefs.Get(LastCleanKey), 10, 64)
	if err != nil {
		lastClean = 0
	}

	if time.Unix(lastClean, 0).Add(interval).After(now) {
		return false, nil
	}

	if err = Purge(root); err != nil {
		return false, err
	}

	return true, record()
}
