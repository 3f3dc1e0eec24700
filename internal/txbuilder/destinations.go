package txbuilder

import (
	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/walleterr"
)

// builtOutput is one constructed destination output, ready for
// range-proof binding and serialization.
type builtOutput struct {
	TxPubKey        [32]byte
	OneTimePublic   [32]byte
	ViewTag         byte
	EncryptedAmount []byte
	Mask            *curve.Scalar
	Commitment      *curve.Point
	Amount          uint64
}

// buildDestinationOutput constructs one (destination, amount, output
// index) triple: fresh r, R = r.G (or r.spendKey for a
// subaddress recipient), the one-time address, the 1-byte view tag,
// ECDH-encrypted (amount, mask), and C_out = mask.G + v.H.
//
// The mask is derived deterministically from the shared secret rather
// than drawn from an OS random source, matching the rest of this module's
// preference for reproducible, test-friendly derivations; it is still
// unknown to anyone without the shared secret, which is all the ownership
// model requires of it.
func buildDestinationOutput(dest *address.Address, amount uint64, outputIndex int, nonce []byte) (*builtOutput, error) {
	spendPub, err := curve.DecompressPoint(dest.SpendKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.PointInvalid, "destination spend key", err)
	}
	viewPub, err := curve.DecompressPoint(dest.ViewKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.PointInvalid, "destination view key", err)
	}

	r := curve.HashToScalar([]byte("txbuilder output nonce"), nonce, indexVarint(outputIndex))

	var R *curve.Point
	if dest.Type == address.Subaddress {
		R = curve.ScalarMul(r, spendPub)
	} else {
		R = curve.ScalarMulBase(r)
	}
	D := curve.ScalarMul(r, viewPub)
	derivationScalar := curve.HashToScalar(D.Bytes(), indexVarint(outputIndex))

	Ko := spendPub.Add(curve.ScalarMulBase(derivationScalar))
	viewTag := hash.Keccak256([]byte("view_tag"), D.Bytes(), indexVarint(outputIndex))[0]

	mask := curve.HashToScalar([]byte("txbuilder output mask"), D.Bytes(), indexVarint(outputIndex))
	commitment := curve.ScalarMulBase(mask).Add(curve.ScalarMul(amountScalar(amount), curve.HGen()))

	blob := encryptAmount(D.Bytes(), outputIndex, amount, mask)

	out := &builtOutput{
		ViewTag:         viewTag,
		EncryptedAmount: blob,
		Mask:            mask,
		Commitment:      commitment,
		Amount:          amount,
	}
	copy(out.TxPubKey[:], R.Bytes())
	copy(out.OneTimePublic[:], Ko.Bytes())
	return out, nil
}

// encryptAmount is the exact inverse of the scanner's decryptAmount: same
// Keccak256-keyed XOR keystream, so a recipient wallet scanning the
// resulting output recovers (amount, mask) unchanged.
func encryptAmount(secret []byte, outputIndex int, amount uint64, mask *curve.Scalar) []byte {
	amountKey := hash.Keccak256([]byte("amount"), secret, indexVarint(outputIndex))
	maskKey := hash.Keccak256([]byte("mask"), secret, indexVarint(outputIndex))

	blob := make([]byte, 40)
	var amountBytes [8]byte
	for i := range amountBytes {
		amountBytes[i] = byte(amount >> (8 * i))
	}
	for i := range amountBytes {
		blob[i] = amountBytes[i] ^ amountKey[i]
	}
	maskBytes := mask.Bytes()
	for i := 0; i < 32; i++ {
		blob[8+i] = maskBytes[i] ^ maskKey[i]
	}
	return blob
}

func amountScalar(v uint64) *curve.Scalar {
	var b [32]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return curve.Reduce32(b[:])
}
