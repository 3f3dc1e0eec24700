package sigverify

import (
	"testing"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/curve"
)

// sign builds a signature blob the way Verify expects to unwind it: pick a
// nonce n, commit R = n.G, derive the challenge the same way Verify
// recomputes it, then close r = n - c.k so that c.K + r.G = R again.
func sign(version int, message []byte, addr *address.Address, secret *curve.Scalar, mode byte) string {
	n := curve.HashToScalar(secret.Bytes(), message, []byte{mode})
	R := curve.ScalarMulBase(n)

	h := signedHash(version, message, addr, mode)
	key := addr.SpendKey[:]
	if mode == 1 {
		key = addr.ViewKey[:]
	}
	c := curve.HashToScalar(h, key, R.Bytes())
	r := n.Sub(c.Mul(secret))

	var blob []byte
	blob = append(blob, c.Bytes()...)
	blob = append(blob, r.Bytes()...)
	blob = append(blob, 0)

	header := headerV1
	if version == 2 {
		header = headerV2
	}
	return header + address.EncodeCN(blob)
}

func testAddress(spendSecret, viewSecret *curve.Scalar) *address.Address {
	a := &address.Address{Network: address.Testnet, Format: address.Legacy, Type: address.Standard}
	copy(a.SpendKey[:], curve.ScalarMulBase(spendSecret).Bytes())
	copy(a.ViewKey[:], curve.ScalarMulBase(viewSecret).Bytes())
	return a
}

func TestVerifySpendKeySignatureV2(t *testing.T) {
	spendSecret := curve.HashToScalar([]byte("spend-secret"))
	viewSecret := curve.HashToScalar([]byte("view-secret"))
	addr := testAddress(spendSecret, viewSecret)
	message := []byte("prove I own this address")

	sig := sign(2, message, addr, spendSecret, 0)
	result, err := Verify(message, addr, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid || result.KeyType != KeyTypeSpend || result.Version != 2 {
		t.Fatalf("Verify result = %+v, want valid spend-key v2 signature", result)
	}
}

func TestVerifyViewKeySignatureV1(t *testing.T) {
	spendSecret := curve.HashToScalar([]byte("spend-secret-2"))
	viewSecret := curve.HashToScalar([]byte("view-secret-2"))
	addr := testAddress(spendSecret, viewSecret)
	message := []byte("view-only proof")

	sig := sign(1, message, addr, viewSecret, 1)
	result, err := Verify(message, addr, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid || result.KeyType != KeyTypeView || result.Version != 1 {
		t.Fatalf("Verify result = %+v, want valid view-key v1 signature", result)
	}
}

func TestVerifyFailsOnAlteredMessage(t *testing.T) {
	spendSecret := curve.HashToScalar([]byte("spend-secret-3"))
	viewSecret := curve.HashToScalar([]byte("view-secret-3"))
	addr := testAddress(spendSecret, viewSecret)
	message := []byte("original message")

	sig := sign(2, message, addr, spendSecret, 0)
	tampered := append([]byte(nil), message...)
	tampered[0] ^= 0xff

	result, err := Verify(tampered, addr, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatal("Verify accepted a signature over a different message")
	}
}

func TestVerifyRejectsUnrecognizedHeader(t *testing.T) {
	spendSecret := curve.HashToScalar([]byte("spend-secret-4"))
	viewSecret := curve.HashToScalar([]byte("view-secret-4"))
	addr := testAddress(spendSecret, viewSecret)

	if _, err := Verify([]byte("msg"), addr, "NotASignature"); err == nil {
		t.Fatal("expected an error for an unrecognized signature header")
	}
}
