// Package lockfile writes and reads the daemon's pid file, used by
// gavelctl to detect a stale daemon before dialing its socket.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gavelrs/gavel/internal/process"
)

// Write records pid at path, creating or truncating the file.
func Write(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644)
}

// Read returns the pid recorded at path.
func Read(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("lock file %s: malformed pid: %w", path, err)
	}
	return pid, nil
}

// Remove deletes the lock file, ignoring a not-exist error.
func Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Stale reports whether the pid recorded at path no longer names a
// live process — the daemon crashed without cleaning up its lock
// file. A missing lock file is not considered stale (no daemon claims
// to be running at all); the caller should treat that as "not running"
// separately.
func Stale(path string) (bool, error) {
	pid, err := Read(path)
	if err != nil {
		return false, err
	}
	return !process.PidExists(pid), nil
}
