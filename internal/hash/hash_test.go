package hash

import (
	"encoding/hex"
	"testing"
)

// Known vector: Keccak256 of the empty string.
func TestKeccak256Empty(t *testing.T) {
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	got := hex.EncodeToString(Keccak256())
	if got != want {
		t.Errorf("Keccak256() = %s, want %s", got, want)
	}
}

// RFC 7693 appendix vector: Blake2b 64-byte digest of "abc".
func TestBlake2b64ABC(t *testing.T) {
	want := "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923"
	got := hex.EncodeToString(Blake2b64(nil, []byte("abc")))
	if got != want {
		t.Errorf("Blake2b64(abc) = %s, want %s", got, want)
	}
}

func TestKeccak256Deterministic(t *testing.T) {
	a := Keccak256([]byte("hello"))
	b := Keccak256([]byte("hello"))
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Fatal("Keccak256 not deterministic")
	}
	c := Keccak256([]byte("world"))
	if hex.EncodeToString(a) == hex.EncodeToString(c) {
		t.Fatal("Keccak256 collided on different input")
	}
}

func TestBlake2bKeyedVariesByKey(t *testing.T) {
	a := Blake2b32([]byte("key-one"), []byte("data"))
	b := Blake2b32([]byte("key-two"), []byte("data"))
	if hex.EncodeToString(a) == hex.EncodeToString(b) {
		t.Fatal("Blake2b32 keyed output did not vary with the key")
	}
}

func TestBlake2b32Length(t *testing.T) {
	if len(Blake2b32(nil, []byte("x"))) != 32 {
		t.Fatal("Blake2b32 did not return 32 bytes")
	}
	if len(Blake2b64(nil, []byte("x"))) != 64 {
		t.Fatal("Blake2b64 did not return 64 bytes")
	}
}
