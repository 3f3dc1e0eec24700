// Package hash implements the two hash primitives the wallet core depends
// on: Keccak-256 (address checksums, CryptoNote derivations, message
// signatures) and Blake2b with its keyed variant (CARROT derivations,
// RFC 7693). Both are sourced from golang.org/x/crypto.
package hash

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the 32-byte Keccak-256 digest of the concatenation of
// all argument slices. Note this is the original Keccak padding (0x01),
// not NIST SHA3-256 (0x06) — golang.org/x/crypto/sha3's "Legacy" variant is
// exactly that.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Sum is a fixed-size convenience form used by code that wants a
// [32]byte instead of a slice (e.g. map keys for key images / block hashes).
func Keccak256Sum(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256(data...))
	return out
}

// Blake2b32 computes a 32-byte Blake2b digest, optionally keyed. A nil or
// empty key runs unkeyed Blake2b-256.
func Blake2b32(key []byte, data ...[]byte) []byte {
	return blake2bSum(32, key, data)
}

// Blake2b64 computes a 64-byte Blake2b digest, optionally keyed.
func Blake2b64(key []byte, data ...[]byte) []byte {
	return blake2bSum(64, key, data)
}

func blake2bSum(size int, key []byte, data [][]byte) []byte {
	h, err := blake2b.New(size, key)
	if err != nil {
		// Only possible cause is a key longer than 64 bytes or an invalid
		// size, both of which are programmer errors in this codebase.
		panic("hash: invalid blake2b configuration: " + err.Error())
	}
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
