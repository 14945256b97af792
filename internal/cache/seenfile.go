package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// MaxSeenFiles is how many ids the file-backed store keeps; older ids are
// dropped on save.
const MaxSeenFiles = 1000

// SeenFiles is the copier's persisted list of already-copied file ids. It
// stores ids only, no timestamps, so it cannot answer recency queries; it is
// the lesser-precision fallback for a process that may restart at any time.
type SeenFiles struct {
	mu   sync.Mutex
	path string
	ids  []string
	seen map[string]struct{}
}

// LoadSeenFiles reads the id list at path. A missing file yields an empty
// store; a corrupt file is an error so the caller does not silently re-copy
// everything.
func LoadSeenFiles(path string) (*SeenFiles, error) {
	s := &SeenFiles{
		path: path,
		seen: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seen-files list %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.ids); err != nil {
		return nil, fmt.Errorf("failed to parse seen-files list %s: %w", path, err)
	}
	for _, id := range s.ids {
		s.seen[id] = struct{}{}
	}
	return s, nil
}

// Contains reports whether id has been recorded.
func (s *SeenFiles) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Add records id and saves the list, truncating to the newest MaxSeenFiles
// entries.
func (s *SeenFiles) Add(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; !ok {
		s.ids = append(s.ids, id)
		s.seen[id] = struct{}{}
	}
	if len(s.ids) > MaxSeenFiles {
		dropped := s.ids[:len(s.ids)-MaxSeenFiles]
		s.ids = s.ids[len(s.ids)-MaxSeenFiles:]
		for _, old := range dropped {
			delete(s.seen, old)
		}
	}

	data, err := json.Marshal(s.ids)
	if err != nil {
		return fmt.Errorf("failed to marshal seen-files list: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save seen-files list %s: %w", s.path, err)
	}
	return nil
}
