package storage

import (
	"context"
	"os"
	"time"
)

// lockPollInterval is how often a contended lock is retried.
const lockPollInterval = 10 * time.Millisecond

// storeLock is an advisory lock on "<store>.lock", held for one write. The
// lock file stays on disk so every process locks the same inode.
type storeLock struct {
	file *os.File
}

// acquireLock blocks until the lock for storePath is held, ctx ends or
// timeout passes. A timeout is reported as ErrLockTimeout.
func acquireLock(ctx context.Context, storePath string, timeout time.Duration) (*storeLock, error) {
	f, err := os.OpenFile(storePath+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		if tryLock(f) == nil {
			return &storeLock{file: f}, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			f.Close()
			if ctx.Err() == context.DeadlineExceeded {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		}
	}
}

// release drops the lock and closes the lock file.
func (l *storeLock) release() error {
	err := unlock(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}
