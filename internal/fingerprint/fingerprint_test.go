package fingerprint

import "testing"

func TestSum_Deterministic(t *testing.T) {
	content := []byte("---\ntitle: A\n---\nbody\n")
	a := Sum(content)
	b := Sum(content)
	if a != b {
		t.Errorf("Sum not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestSum_DistinctContent(t *testing.T) {
	a := Sum([]byte("# note one\n"))
	b := Sum([]byte("# note two\n"))
	if a == b {
		t.Errorf("distinct content produced identical digest %q", a)
	}
}

func TestSum_EmptyContent(t *testing.T) {
	if Sum([]byte{}) != Sum(nil) {
		t.Error("empty slice and nil should hash identically")
	}
}
