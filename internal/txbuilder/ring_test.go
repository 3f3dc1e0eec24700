package txbuilder

import (
	"testing"

	"github.com/salvium/walletcore/internal/curve"
)

// testRing builds an n-member ring whose realIndex entry is a genuine
// (secret, commitment-delta) pair and whose other entries are unrelated
// points, the same shape buildRing produces from fetched decoys.
func testRing(n, realIndex int, withAssetColumn bool) (Ring, *curve.Scalar, *curve.Scalar, *curve.Scalar) {
	ring := Ring{
		Keys:        make([]*curve.Point, n),
		Commitments: make([]*curve.Point, n),
	}
	x := curve.HashToScalar([]byte("ring secret"))
	z := curve.HashToScalar([]byte("commitment delta"))
	var zAsset *curve.Scalar

	for i := 0; i < n; i++ {
		if i == realIndex {
			ring.Keys[i] = curve.ScalarMulBase(x)
			ring.Commitments[i] = curve.ScalarMulBase(z)
			continue
		}
		ring.Keys[i] = curve.ScalarMulBase(curve.HashToScalar([]byte("decoy key"), []byte{byte(i)}))
		ring.Commitments[i] = curve.ScalarMulBase(curve.HashToScalar([]byte("decoy commitment"), []byte{byte(i)}))
	}

	if withAssetColumn {
		ring.AssetCommitments = make([]*curve.Point, n)
		zAsset = curve.HashToScalar([]byte("asset delta"))
		for i := 0; i < n; i++ {
			if i == realIndex {
				ring.AssetCommitments[i] = curve.ScalarMulBase(zAsset)
				continue
			}
			ring.AssetCommitments[i] = curve.ScalarMulBase(curve.HashToScalar([]byte("decoy asset"), []byte{byte(i)}))
		}
	}
	return ring, x, z, zAsset
}

func TestCLSAGSignVerifyRoundTrip(t *testing.T) {
	ring, x, z, _ := testRing(11, 4, false)
	msg := []byte("balance equation binding")

	sig, err := Sign(ring, 4, x, z, nil, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig.IsTCLSAG {
		t.Fatal("CLSAG signature reports IsTCLSAG")
	}

	ok, err := Verify(ring, sig, msg)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("signature did not verify against the ring it was built with")
	}
}

func TestTCLSAGSignVerifyRoundTrip(t *testing.T) {
	ring, x, z, zAsset := testRing(11, 7, true)
	msg := []byte("asset column binding")

	sig, err := Sign(ring, 7, x, z, zAsset, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !sig.IsTCLSAG {
		t.Fatal("TCLSAG signature does not report IsTCLSAG")
	}

	ok, err := Verify(ring, sig, msg)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("TCLSAG signature did not verify")
	}
}

// Mutating the message, any ring member, or any component of the
// signature must break verification.
func TestCLSAGVerifyRejectsMutations(t *testing.T) {
	ring, x, z, _ := testRing(5, 2, false)
	msg := []byte("original")

	sig, err := Sign(ring, 2, x, z, nil, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if ok, _ := Verify(ring, sig, []byte("mutated")); ok {
		t.Error("signature verified against a different message")
	}

	swapped := ring
	swapped.Keys = append([]*curve.Point(nil), ring.Keys...)
	swapped.Keys[0] = curve.ScalarMulBase(curve.HashToScalar([]byte("replacement member")))
	if ok, _ := Verify(swapped, sig, msg); ok {
		t.Error("signature verified after a ring member was replaced")
	}

	tampered := *sig
	tampered.S = append([][32]byte(nil), sig.S...)
	tampered.S[3] = sig.S[1]
	if ok, _ := Verify(ring, &tampered, msg); ok {
		t.Error("signature verified after a response scalar was swapped")
	}
}

func TestSignRejectsBadShapes(t *testing.T) {
	ring, x, z, _ := testRing(3, 0, false)

	if _, err := Sign(Ring{}, 0, x, z, nil, []byte("m")); err == nil {
		t.Error("Sign accepted an empty ring")
	}
	if _, err := Sign(ring, 5, x, z, nil, []byte("m")); err == nil {
		t.Error("Sign accepted an out-of-range real index")
	}

	asset := ring
	asset.AssetCommitments = make([]*curve.Point, len(ring.Keys))
	for i := range asset.AssetCommitments {
		asset.AssetCommitments[i] = curve.IdentityPoint()
	}
	if _, err := Sign(asset, 0, x, z, nil, []byte("m")); err == nil {
		t.Error("Sign accepted a TCLSAG ring with no asset delta")
	}
}
