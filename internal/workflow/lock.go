package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"episodedb/internal/services"
)

// ErrEpisodeBusy reports that another process holds the episode's lock.
var ErrEpisodeBusy = fmt.Errorf("episode is already being processed: %w", services.ErrTransient)

// lockSet hands out one file lock per episode so concurrent CLI and API
// invocations never process the same episode twice.
type lockSet struct {
	dir string
}

func newLockSet(dir string) *lockSet {
	return &lockSet{dir: dir}
}

func (l *lockSet) path(episodeID string) string {
	return filepath.Join(l.dir, sanitizeLockName(episodeID)+".lock")
}

// acquire takes the lock for episodeID without waiting and returns its
// release function.
func (l *lockSet) acquire(episodeID string) (func(), error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(l.path(episodeID))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire episode lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", episodeID, ErrEpisodeBusy)
	}
	return func() { _ = lock.Unlock() }, nil
}

func sanitizeLockName(id string) string {
	out := []rune(id)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "episode"
	}
	return string(out)
}
