// Package lock provides the cross-process install lock.
//
// Two package managers installing into the same node_modules tree can run
// the installer concurrently for one output directory. The lock is a file
// created with O_CREATE|O_EXCL. A lock whose recorded pid is no longer
// running, or that is older than StaleLockThreshold, belongs to a crashed
// installer and is replaced.
package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	// FileName is the lock file created in the output directory.
	FileName = ".jq-install.lock"

	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

// ErrLockExists is returned when another installer holds the lock.
var ErrLockExists = errors.New("install lock exists: another installation may be in progress")

// pidExists reports whether a process with the given pid is running.
var pidExists = process.PidExistsWithContext

// Lock represents a held install lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire attempts to take the install lock in dir.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, FileName)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		stale, _ := isLockStale(ctx, lockPath)
		if !stale {
			return nil, ErrLockExists
		}

		// Remove stale lock and retry once
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale reports whether the lock's owner is gone. The recorded pid
// decides when it can be read and checked; otherwise the lock's age does.
func isLockStale(ctx context.Context, lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	if time.Since(info.ModTime()) > StaleLockThreshold {
		return true, nil
	}

	pid, ok := readPID(lockPath)
	if !ok {
		return false, nil
	}

	running, err := pidExists(ctx, pid)
	if err != nil {
		return false, err
	}
	return !running, nil
}

// readPID returns the pid= entry of a lock file.
func readPID(lockPath string) (int32, bool) {
	file, err := os.Open(lockPath)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		value, found := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "pid=")
		if !found {
			continue
		}
		pid, err := strconv.ParseInt(value, 10, 32)
		if err != nil || pid <= 0 {
			return 0, false
		}
		return int32(pid), true
	}
	return 0, false
}
