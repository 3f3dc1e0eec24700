// Package subaddress precomputes the spend-public-key → (major, minor)
// lookup table the scanner uses as its ownership oracle, for both the
// legacy and CARROT key trees.
package subaddress

import (
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/keys"
)

// Default lookahead grid size.
const (
	DefaultMajorLookahead = 50
	DefaultMinorLookahead = 200
)

// Index identifies a subaddress by its (major, minor) account/index pair.
// (0, 0) is the main address.
type Index struct {
	Major uint32
	Minor uint32
}

// Table maps a compressed spend public key to the subaddress index that
// produces it.
type Table struct {
	entries map[[32]byte]Index
}

// BuildLegacy precomputes the legacy subaddress table:
//
//	K_s^(i,j) = K_s + H_s("SubAddr\0" ‖ k_v ‖ i ‖ j)·G
func BuildLegacy(lk *keys.LegacyKeys, majorLookahead, minorLookahead uint32) *Table {
	t := &Table{entries: make(map[[32]byte]Index, (majorLookahead+1)*(minorLookahead+1))}
	var zero [32]byte
	copy(zero[:], lk.SpendPublic.Bytes())
	t.entries[zero] = Index{0, 0}

	for i := uint32(0); i < majorLookahead; i++ {
		for j := uint32(0); j < minorLookahead; j++ {
			if i == 0 && j == 0 {
				continue
			}
			offset := keys.SubAddrSecret(lk.ViewSecret, i, j)
			pub := lk.SpendPublic.Add(curve.ScalarMulBase(offset))
			var key [32]byte
			copy(key[:], pub.Bytes())
			t.entries[key] = Index{i, j}
		}
	}
	return t
}

// carrotIndexExtension derives the CARROT per-index offset tied to s_ga,
// the generate-address secret, mirroring the legacy SubAddr\0 construction
// but keyed by the CARROT tree's own domain-separated secret instead of
// the legacy view secret.
func carrotIndexExtension(generateAddrSecret [32]byte, major, minor uint32) *curve.Scalar {
	return curve.HashToScalar([]byte("Carrot subaddress"), generateAddrSecret[:], le32(major), le32(minor))
}

// BuildCarrot precomputes the CARROT subaddress table using the same
// lookahead grid shape as the legacy table.
func BuildCarrot(ck *keys.CarrotKeys, majorLookahead, minorLookahead uint32) *Table {
	t := &Table{entries: make(map[[32]byte]Index, (majorLookahead+1)*(minorLookahead+1))}
	var zero [32]byte
	copy(zero[:], ck.SpendPublic.Bytes())
	t.entries[zero] = Index{0, 0}

	for i := uint32(0); i < majorLookahead; i++ {
		for j := uint32(0); j < minorLookahead; j++ {
			if i == 0 && j == 0 {
				continue
			}
			offset := carrotIndexExtension(ck.GenerateAddrSecret, i, j)
			pub := ck.SpendPublic.Add(curve.ScalarMulBase(offset))
			var key [32]byte
			copy(key[:], pub.Bytes())
			t.entries[key] = Index{i, j}
		}
	}
	return t
}

// Lookup returns the subaddress index owning spendPublic, if any.
func (t *Table) Lookup(spendPublic [32]byte) (Index, bool) {
	idx, ok := t.entries[spendPublic]
	return idx, ok
}

// Len reports the number of precomputed entries (for diagnostics/tests).
func (t *Table) Len() int { return len(t.entries) }

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
