package lockfile

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	l, err := Acquire(path, Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	// Double release is a no-op.
	if err := l.Release(); err != nil {
		t.Errorf("second Release() = %v, want nil", err)
	}
}

func TestSharedLocksCoexist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	a, err := Acquire(path, Shared)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Release() }()

	done := make(chan error, 1)
	go func() {
		b, err := Acquire(path, Shared)
		if err == nil {
			_ = b.Release()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second shared acquire: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second shared acquire blocked")
	}
}

func TestExclusiveBlocksUntilReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	held, err := Acquire(path, Exclusive)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		l, err := Acquire(path, Exclusive)
		if err != nil {
			t.Errorf("competing acquire: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = l.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("exclusive lock granted while still held")
	case <-time.After(100 * time.Millisecond):
	}

	if err := held.Release(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("exclusive lock never granted after release")
	}
}
