package cache

// LockEntries reports how many per-key locks the store currently tracks.
func (s *Store) LockEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.locks)
}
