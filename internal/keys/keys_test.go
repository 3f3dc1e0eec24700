package keys

import (
	"bytes"
	"testing"

	"github.com/salvium/walletcore/internal/curve"
)

func master(seed byte) [32]byte {
	var m [32]byte
	for i := range m {
		m[i] = seed + byte(i)
	}
	return m
}

func TestDeriveCarrotIsDeterministic(t *testing.T) {
	m := master(7)
	a := DeriveCarrot(m)
	b := DeriveCarrot(m)

	if a.ViewBalanceSecret != b.ViewBalanceSecret {
		t.Fatal("ViewBalanceSecret differs across calls with the same master")
	}
	if a.GenerateAddrSecret != b.GenerateAddrSecret {
		t.Fatal("GenerateAddrSecret differs across calls with the same master")
	}
	if !bytes.Equal(a.ProveSpendSecret.Bytes(), b.ProveSpendSecret.Bytes()) {
		t.Fatal("ProveSpendSecret differs across calls with the same master")
	}
	if !bytes.Equal(a.SpendPublic.Bytes(), b.SpendPublic.Bytes()) {
		t.Fatal("SpendPublic differs across calls with the same master")
	}
	if !bytes.Equal(a.MainViewPublic.Bytes(), b.MainViewPublic.Bytes()) {
		t.Fatal("MainViewPublic differs across calls with the same master")
	}
}

// TestDeriveCarrotSecretsAreDomainIndependent: same seed, distinct domain
// separators imply distinct outputs. Each of the five CARROT secrets is
// hashed under its own separator from a shared parent, so no two of them
// should collide.
func TestDeriveCarrotSecretsAreDomainIndependent(t *testing.T) {
	k := DeriveCarrot(master(11))

	secrets := [][]byte{
		k.ViewBalanceSecret[:],
		k.ProveSpendSecret.Bytes(),
		k.IncomingViewSecret.Bytes(),
		k.GenerateImageSecret.Bytes(),
		k.GenerateAddrSecret[:],
	}
	for i := 0; i < len(secrets); i++ {
		for j := i + 1; j < len(secrets); j++ {
			if bytes.Equal(secrets[i], secrets[j]) {
				t.Fatalf("secrets %d and %d collided despite distinct domain separators", i, j)
			}
		}
	}
}

func TestDeriveCarrotDiffersAcrossSeeds(t *testing.T) {
	a := DeriveCarrot(master(1))
	b := DeriveCarrot(master(2))
	if bytes.Equal(a.SpendPublic.Bytes(), b.SpendPublic.Bytes()) {
		t.Fatal("two distinct master seeds produced the same CARROT spend public key")
	}
}

func TestDeriveLegacyViewKeyIsDerivedFromSpendKey(t *testing.T) {
	lk := DeriveLegacy(master(3))
	if bytes.Equal(lk.SpendSecret.Bytes(), lk.ViewSecret.Bytes()) {
		t.Fatal("spend and view secrets must not be equal")
	}
	if !bytes.Equal(curve.ScalarMulBase(lk.SpendSecret).Bytes(), lk.SpendPublic.Bytes()) {
		t.Fatal("SpendPublic is not SpendSecret.G")
	}
	if !bytes.Equal(curve.ScalarMulBase(lk.ViewSecret).Bytes(), lk.ViewPublic.Bytes()) {
		t.Fatal("ViewPublic is not ViewSecret.G")
	}
}

func TestKeyImageIsDeterministicAndKeyDependent(t *testing.T) {
	secret := curve.HashToScalar([]byte("one-time-secret"))
	pub := curve.ScalarMulBase(secret)

	i1 := KeyImage(secret, pub)
	i2 := KeyImage(secret, pub)
	if !bytes.Equal(i1.Bytes(), i2.Bytes()) {
		t.Fatal("KeyImage is not deterministic for the same inputs")
	}

	otherSecret := curve.HashToScalar([]byte("other-one-time-secret"))
	otherPub := curve.ScalarMulBase(otherSecret)
	i3 := KeyImage(otherSecret, otherPub)
	if bytes.Equal(i1.Bytes(), i3.Bytes()) {
		t.Fatal("KeyImage collided for two different one-time keys")
	}
}

func TestSubAddrSecretVariesByIndex(t *testing.T) {
	lk := DeriveLegacy(master(4))
	s1 := SubAddrSecret(lk.ViewSecret, 0, 1)
	s2 := SubAddrSecret(lk.ViewSecret, 0, 2)
	s3 := SubAddrSecret(lk.ViewSecret, 1, 1)

	if bytes.Equal(s1.Bytes(), s2.Bytes()) {
		t.Fatal("SubAddrSecret collided across minor indices")
	}
	if bytes.Equal(s1.Bytes(), s3.Bytes()) {
		t.Fatal("SubAddrSecret collided across major indices")
	}
}
