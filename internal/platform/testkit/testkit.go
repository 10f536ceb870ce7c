// Package testkit holds helpers shared by package tests
package testkit

import (
	"strings"
	"sync"
	"testing"
)

// MustPanic fails t unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustContain fails t unless needle occurs in haystack
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in:\n%s", needle, haystack)
	}
}

// Swap points *seam at fake until t ends
func Swap[T any](t *testing.T, seam *T, fake T) {
	t.Helper()
	prev := *seam
	*seam = fake
	t.Cleanup(func() { *seam = prev })
}

var serial sync.Mutex

// Serial holds a process wide lock for the rest of t, for tests that
// touch package level state
func Serial(t *testing.T) {
	t.Helper()
	serial.Lock()
	t.Cleanup(serial.Unlock)
}
