package cryptoutil

import "testing"

func TestSHA256Hex_KnownVector(t *testing.T) {
	// SHA-256 of the empty string
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex(nil); got != want {
		t.Fatalf("SHA256Hex(nil) = %q, want %q", got, want)
	}
}

func TestHashEqual(t *testing.T) {
	a := SHA256Hex([]byte("bundle"))
	b := SHA256Hex([]byte("bundle"))
	c := SHA256Hex([]byte("other"))

	if !HashEqual(a, b) {
		t.Fatal("equal hashes compared unequal")
	}
	if HashEqual(a, c) {
		t.Fatal("different hashes compared equal")
	}
	if HashEqual(a, a[:10]) {
		t.Fatal("different lengths compared equal")
	}
}
