package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Scratch is the per-job working directory for non-durable artifacts.
// It is created at job start and released exactly once.
type Scratch struct {
	dir  string
	once sync.Once
	err  error
}

func NewScratch(root string, jobID int64) (*Scratch, error) {
	dir := filepath.Join(root, fmt.Sprintf("job-%d-%s", jobID, ulid.Make().String()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

func (s *Scratch) Dir() string { return s.dir }

func (s *Scratch) Path(name string) string { return filepath.Join(s.dir, name) }

// Release removes everything under the scratch directory. Missing files are
// not an error and repeated calls return the first result.
func (s *Scratch) Release() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil && !os.IsNotExist(err) {
			s.err = err
		}
	})
	return s.err
}
