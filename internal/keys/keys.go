// Package keys derives the legacy CryptoNote key tree and the second-
// generation CARROT key tree from a 32-byte master secret.
package keys

import (
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/hash"
)

// LegacyKeys is the CryptoNote (k_s, K_s, k_v, K_v) tree.
type LegacyKeys struct {
	SpendSecret *curve.Scalar
	SpendPublic *curve.Point
	ViewSecret  *curve.Scalar
	ViewPublic  *curve.Point
}

// DeriveLegacy derives the legacy key tree from a 32-byte master secret:
//
//	k_s = reduce32(master), K_s = k_s·G
//	k_v = reduce32(Keccak256(k_s)), K_v = k_v·G
func DeriveLegacy(master [32]byte) *LegacyKeys {
	ks := curve.Reduce32(master[:])
	Ks := curve.ScalarMulBase(ks)
	kv := curve.Reduce32(hash.Keccak256(ks.Bytes()))
	Kv := curve.ScalarMulBase(kv)
	return &LegacyKeys{
		SpendSecret: ks,
		SpendPublic: Ks,
		ViewSecret:  kv,
		ViewPublic:  Kv,
	}
}

// CARROT domain separators. Every CARROT derivation hashes one of
// these length-prefixed strings under Blake2b, with the parent secret as
// the keyed-mode key.
const (
	domainViewBalance     = "Carrot view-balance secret"
	domainProveSpend      = "Carrot prove-spend key"
	domainIncomingView    = "Carrot incoming view key"
	domainGenerateImage   = "Carrot generate-image key"
	domainGenerateAddress = "Carrot generate-address secret"
)

// domainSep returns a domain separator prefixed with its one-byte length.
func domainSep(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

// CarrotKeys is the second-generation CARROT key tree.
type CarrotKeys struct {
	ViewBalanceSecret   [32]byte      // s_vb
	ProveSpendSecret    *curve.Scalar // k_ps
	IncomingViewSecret  *curve.Scalar // k_vi
	GenerateImageSecret *curve.Scalar // k_gi
	GenerateAddrSecret  [32]byte      // s_ga

	SpendPublic    *curve.Point // K_s_carrot = k_ps·G + k_gi·T
	MainViewPublic *curve.Point // K_v_main = k_vi·K_s_carrot
}

// DeriveCarrot derives the full CARROT key tree from a 32-byte master
// secret. T is the second Pedersen generator (curve.HGen()); the
// K_s_carrot = k_ps·G + k_gi·T construction ties the spend key to a
// second, independent generator the same way Pedersen commitments do.
func DeriveCarrot(master [32]byte) *CarrotKeys {
	var sVb [32]byte
	copy(sVb[:], hash.Blake2b32(master[:], domainSep(domainViewBalance)))

	kPs := curve.Reduce64(hash.Blake2b64(master[:], domainSep(domainProveSpend)))
	kVi := curve.Reduce64(hash.Blake2b64(sVb[:], domainSep(domainIncomingView)))
	kGi := curve.Reduce64(hash.Blake2b64(sVb[:], domainSep(domainGenerateImage)))

	var sGa [32]byte
	copy(sGa[:], hash.Blake2b32(sVb[:], domainSep(domainGenerateAddress)))

	T := curve.HGen()
	Ks := curve.ScalarMulBase(kPs).Add(curve.ScalarMul(kGi, T))
	Kv := curve.ScalarMul(kVi, Ks)

	return &CarrotKeys{
		ViewBalanceSecret:   sVb,
		ProveSpendSecret:    kPs,
		IncomingViewSecret:  kVi,
		GenerateImageSecret: kGi,
		GenerateAddrSecret:  sGa,
		SpendPublic:         Ks,
		MainViewPublic:      Kv,
	}
}

// KeyImage computes I = k_o · H_p(K_o), the unique per-output identifier
// used to prevent double-spends.
func KeyImage(oneTimeSecret *curve.Scalar, oneTimePublic *curve.Point) *curve.Point {
	hp := curve.HashToPoint(oneTimePublic.Bytes())
	return curve.ScalarMul(oneTimeSecret, hp)
}

// SubAddrSecret derives H_s("SubAddr\0" ‖ k_v ‖ i ‖ j), the legacy
// subaddress offset scalar.
func SubAddrSecret(viewSecret *curve.Scalar, major, minor uint32) *curve.Scalar {
	return curve.HashToScalar([]byte("SubAddr\x00"), viewSecret.Bytes(), le32(major), le32(minor))
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
