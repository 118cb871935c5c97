package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockFile = "crawl.lock"

// Lock guards an output directory against concurrent crawls. A second
// run against the same path fails fast instead of corrupting state.
type Lock struct {
	path string
}

// AcquireLock takes the single-run lock for an output directory.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("output %s is locked by another crawl (remove %s if stale)", dir, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", firstErr(werr, cerr))
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}
