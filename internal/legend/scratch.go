package legend

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// scratch is the per-tenant area where inline legend images are
// materialized. The directory is created on first use and removed when the
// owning service is closed, not per request.
type scratch struct {
	tenant string

	mu    sync.Mutex
	dir   string
	files map[string]string
}

func newScratch(tenant string) *scratch {
	return &scratch{tenant: tenant, files: make(map[string]string)}
}

// materialize writes data under a unique name, once per key. Subsequent
// calls for the same key return the existing path.
func (s *scratch) materialize(key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path, ok := s.files[key]; ok {
		return path, nil
	}

	if s.dir == "" {
		dir, err := os.MkdirTemp("", "legend-"+s.tenant+"-")
		if err != nil {
			return "", err
		}
		s.dir = dir
	}

	path := filepath.Join(s.dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	s.files[key] = path
	return path, nil
}

// cleanup removes the scratch directory and all materialized files.
func (s *scratch) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
		s.dir = ""
	}
	s.files = make(map[string]string)
}
