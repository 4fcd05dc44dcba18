package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaveld.pid")
	if err := Write(path, 4242); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("expected pid 4242, got %d", pid)
	}
}

func TestStaleDetectsDeadPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaveld.pid")
	// Pid 999999 is above the default Linux pid_max, so no live process has it.
	if err := Write(path, 999999); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale, err := Stale(path)
	if err != nil {
		t.Fatalf("stale: %v", err)
	}
	if !stale {
		t.Fatal("expected pid 999999 to read as stale")
	}
}

func TestRemoveIgnoresMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pid")
	if err := Remove(path); err != nil {
		t.Fatalf("expected nil error removing missing file, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to not exist, stat err=%v", err)
	}
}
