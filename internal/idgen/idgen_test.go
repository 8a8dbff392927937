package idgen

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id := New()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("New() = %q, want 5 dash-separated groups", id)
	}
	for i, want := range []int{8, 4, 4, 4, 12} {
		if len(parts[i]) != want {
			t.Errorf("group %d has length %d, want %d", i, len(parts[i]), want)
		}
	}
	if New() == New() {
		t.Error("two IDs should not collide")
	}
}

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("asm_")
	if !strings.HasPrefix(id, "asm_") {
		t.Fatalf("WithPrefix = %q, want asm_ prefix", id)
	}
	if len(id) != len("asm_")+24 {
		t.Fatalf("len = %d, want %d", len(id), len("asm_")+24)
	}
}

func TestHexLength(t *testing.T) {
	if got := Hex(32); len(got) != 64 {
		t.Fatalf("Hex(32) length = %d, want 64", len(got))
	}
}
