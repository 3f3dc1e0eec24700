// Package sigverify implements the wallet message-signature check: a
// Schnorr-style proof over the twisted-Edwards curve, with two header
// versions differing only in what gets hashed before the challenge is
// recomputed.
package sigverify

import (
	"strings"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/walleterr"
)

const (
	headerV1 = "SigV1"
	headerV2 = "SigV2"

	blobSize = 65 // c(32) || r(32) || sign_mask(1)
	v2Domain = "MoneroMessageSignature\x00"
)

// KeyType identifies which of the address's two public keys produced a
// valid signature.
type KeyType int

const (
	KeyTypeNone KeyType = iota
	KeyTypeSpend
	KeyTypeView
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeSpend:
		return "spend"
	case KeyTypeView:
		return "view"
	default:
		return "none"
	}
}

// Result is the outcome of Verify.
type Result struct {
	Valid   bool
	Version int
	KeyType KeyType
}

// Verify checks a message signature against an address. It tries the
// spend key under mode 0 first, then the view key under mode 1, and fails
// closed (Valid=false) if neither matches.
func Verify(message []byte, addr *address.Address, signature string) (*Result, error) {
	version, blobStr, err := splitHeader(signature)
	if err != nil {
		return nil, err
	}

	blob, err := address.DecodeCN(blobStr)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ParseError, "decode signature blob", err)
	}
	if len(blob) != blobSize {
		return nil, walleterr.Newf(walleterr.ParseError, "signature blob must be %d bytes, got %d", blobSize, len(blob))
	}

	c, err := curve.NewScalarFromCanonicalBytes(blob[:32])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ScalarInvalid, "signature challenge", err)
	}
	r, err := curve.NewScalarFromCanonicalBytes(blob[32:64])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ScalarInvalid, "signature response", err)
	}

	spendK, err := curve.DecompressPoint(addr.SpendKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.PointInvalid, "address spend key", err)
	}
	viewK, err := curve.DecompressPoint(addr.ViewKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.PointInvalid, "address view key", err)
	}

	candidates := []struct {
		keyType KeyType
		key     *curve.Point
		mode    byte
	}{
		{KeyTypeSpend, spendK, 0},
		{KeyTypeView, viewK, 1},
	}

	for _, cand := range candidates {
		h := signedHash(version, message, addr, cand.mode)
		// R' = c.K + r.G
		Rp := curve.DoubleScalarMulBase(c, cand.key, r)
		cPrime := curve.HashToScalar(h, cand.key.Bytes(), Rp.Bytes())
		if cPrime.Equal(c) {
			return &Result{Valid: true, Version: version, KeyType: cand.keyType}, nil
		}
	}

	return &Result{Valid: false, Version: version, KeyType: KeyTypeNone}, nil
}

func splitHeader(signature string) (int, string, error) {
	switch {
	case strings.HasPrefix(signature, headerV1):
		return 1, signature[len(headerV1):], nil
	case strings.HasPrefix(signature, headerV2):
		return 2, signature[len(headerV2):], nil
	default:
		return 0, "", walleterr.New(walleterr.ParseError, "unrecognized signature header")
	}
}

// signedHash computes the hash actually signed over, per version.
func signedHash(version int, message []byte, addr *address.Address, mode byte) []byte {
	if version == 1 {
		return hash.Keccak256(message)
	}
	return hash.Keccak256(
		[]byte(v2Domain),
		addr.SpendKey[:],
		addr.ViewKey[:],
		[]byte{mode},
		encodeVarint(uint64(len(message))),
		message,
	)
}

func encodeVarint(v uint64) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
		} else {
			b = append(b, c)
			break
		}
	}
	return b
}
