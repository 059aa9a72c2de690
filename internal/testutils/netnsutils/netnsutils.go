//go:build linux

// Package netnsutils gives tests that bind real sockets a throwaway network
// namespace, so two test cases claiming the same host port never actually
// collide with each other or with the machine running the suite.
package netnsutils

import (
	"os"
	"runtime"
	"testing"

	"golang.org/x/sys/unix"
)

// SetupTestOSContext locks the calling goroutine to its OS thread, moves
// that thread into a brand new network namespace, and returns a teardown
// func that restores the thread's original namespace and unlocks it. Call
// the returned func (typically via defer) once the test is done binding
// sockets.
func SetupTestOSContext(t *testing.T) func() {
	t.Helper()
	runtime.LockOSThread()

	origNS, err := os.Open("/proc/self/ns/net")
	if err != nil {
		runtime.UnlockOSThread()
		t.Fatalf("netnsutils: open current network namespace: %v", err)
	}

	if err := unix.Unshare(unix.CLONE_NEWNET); err != nil {
		origNS.Close()
		runtime.UnlockOSThread()
		if err == unix.EPERM {
			t.Skipf("netnsutils: unshare network namespace requires privileges: %v", err)
		}
		t.Fatalf("netnsutils: unshare network namespace: %v", err)
	}

	// A fresh network namespace starts with only a loopback interface, and
	// it's down by default; bring it up so tests can bind to 127.0.0.1.
	if err := bringLoopbackUp(); err != nil {
		t.Logf("netnsutils: bring loopback interface up: %v", err)
	}

	return func() {
		defer runtime.UnlockOSThread()
		defer origNS.Close()
		if err := unix.Setns(int(origNS.Fd()), unix.CLONE_NEWNET); err != nil {
			t.Logf("netnsutils: restore original network namespace: %v", err)
		}
	}
}
