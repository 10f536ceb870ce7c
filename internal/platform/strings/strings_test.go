package strings

import (
	"testing"

	"formdata/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"GET", "POST"}
	if got := IfEmpty(nil, def); len(got) != 2 {
		t.Fatalf("nil should fall back, got %v", got)
	}
	if got := IfEmpty([]string{"PUT"}, def); len(got) != 1 || got[0] != "PUT" {
		t.Fatalf("non empty kept, got %v", got)
	}
}

func TestMustString(t *testing.T) {
	if got := MustString("uploads", "name"); got != "uploads" {
		t.Fatalf("got %q", got)
	}
	testkit.MustPanic(t, func() { MustString(" \t", "module name") })
}

func TestMustPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"uploads", "/uploads"},
		{"/uploads/", "/uploads"},
		{"  //meta// ", "/meta"},
		{"/api/v1", "/api/v1"},
	}
	for _, tc := range tests {
		if got := MustPrefix(tc.in); got != tc.want {
			t.Fatalf("MustPrefix(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
	testkit.MustPanic(t, func() { MustPrefix(" / ") })
}
