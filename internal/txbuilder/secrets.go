package txbuilder

import (
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/keys"
	"github.com/salvium/walletcore/internal/storage"
	"github.com/salvium/walletcore/internal/walleterr"
)

// deriveOneTimeSecret recomputes an owned output's one-time secret key
// k_o, the exact inverse of the derivation the scanner used
// to recognize the output and compute its key image (internal/scanner's
// testLegacy/testCarrot) — recomputing it the same way is what makes
// keys.KeyImage(k_o, Ko) equal the key image already stored on o.
func deriveOneTimeSecret(w *Wallet, o *storage.Output) (*curve.Scalar, error) {
	if o.IsCarrot {
		return deriveCarrotSecret(w, o)
	}
	return deriveLegacySecret(w, o)
}

// deriveLegacySecret covers both the legacy-main-address formula
// (k_o = H_s(x||i) + k_s) and the legacy-subaddress formula
// (k_o = H_s(x||i) + k_s + H_s("SubAddr\0"||k_v||I||J)), and doubles as
// the coinbase derivation since coinbase outputs are ordinary legacy
// one-time outputs addressed to the wallet.
func deriveLegacySecret(w *Wallet, o *storage.Output) (*curve.Scalar, error) {
	lk := w.Legacy
	if lk == nil {
		return nil, walleterr.New(walleterr.InvalidInput, "wallet has no legacy keys")
	}
	R, err := curve.DecompressPoint(o.TxPubKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.PointInvalid, "stored tx pub key", err)
	}
	x := curve.ScalarMul(lk.ViewSecret, R)
	derivationScalar := curve.HashToScalar(x.Bytes(), indexVarint(o.OutputIndex))

	if o.Subaddress.Major == 0 && o.Subaddress.Minor == 0 {
		return lk.SpendSecret.Add(derivationScalar), nil
	}
	offset := keys.SubAddrSecret(lk.ViewSecret, o.Subaddress.Major, o.Subaddress.Minor)
	return lk.SpendSecret.Add(derivationScalar).Add(offset), nil
}

// deriveCarrotSecret implements k_o = k_gi + H_n("Carrot key extension G",
// s_sr_ctx), reusing the sender-receiver secret the scanner already
// recovered and persisted as CarrotSharedSecret rather than re-deriving it
// from the ephemeral public key (the builder never needs De again).
func deriveCarrotSecret(w *Wallet, o *storage.Output) (*curve.Scalar, error) {
	ck := w.Carrot
	if ck == nil {
		return nil, walleterr.New(walleterr.InvalidInput, "wallet has no carrot keys")
	}
	if len(o.CarrotSharedSecret) == 0 {
		return nil, walleterr.New(walleterr.InvalidInput, "carrot output missing shared secret")
	}
	senderExtG := curve.HashToScalar([]byte("carrot sender extension g"), o.CarrotSharedSecret)
	return ck.GenerateImageSecret.Add(senderExtG), nil
}

func indexVarint(i int) []byte {
	v := uint64(i)
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}
