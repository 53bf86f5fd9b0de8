package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"
	"github.com/openmined/s3mirror/internal/utils"
)

var ErrAlreadyRunning = errors.New("another s3mirror run holds the lock")

// acquireLock takes an exclusive non-blocking lock on path. An empty path disables locking.
func acquireLock(path string, logger *slog.Logger) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("failed to release lock", "path", path, "error", err)
			return
		}
		_ = os.Remove(path)
	}, nil
}
