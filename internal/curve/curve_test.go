package curve

import "testing"

func TestScalarAddSubRoundTrip(t *testing.T) {
	a := HashToScalar([]byte("a"))
	b := HashToScalar([]byte("b"))
	sum := a.Add(b)
	back := sum.Sub(b)
	if !back.Equal(a) {
		t.Fatal("(a + b) - b != a")
	}
}

func TestScalarMulInvert(t *testing.T) {
	a := HashToScalar([]byte("nonzero"))
	if a.IsZero() {
		t.Fatal("hash-to-scalar test vector was zero, pick a different input")
	}
	inv := a.Invert()
	one := a.Mul(inv)
	expectOne, err := NewScalarFromCanonicalBytes(append([]byte{1}, make([]byte, 31)...))
	if err != nil {
		t.Fatalf("NewScalarFromCanonicalBytes(1): %v", err)
	}
	if !one.Equal(expectOne) {
		t.Fatal("a * a^-1 != 1")
	}
}

func TestScalarNegateIsAdditiveInverse(t *testing.T) {
	a := HashToScalar([]byte("x"))
	sum := a.Add(a.Negate())
	if !sum.IsZero() {
		t.Fatal("a + (-a) != 0")
	}
}

func TestScalarMulBaseAndScalarMulAgree(t *testing.T) {
	s := HashToScalar([]byte("scalar"))
	fromBase := ScalarMulBase(s)
	fromVar := ScalarMul(s, BasePoint())
	if !fromBase.Equal(fromVar) {
		t.Fatal("ScalarMulBase(s) != ScalarMul(s, G)")
	}
}

func TestPointAddSubRoundTrip(t *testing.T) {
	p := ScalarMulBase(HashToScalar([]byte("p")))
	q := ScalarMulBase(HashToScalar([]byte("q")))
	sum := p.Add(q)
	back := sum.Sub(q)
	if !back.Equal(p) {
		t.Fatal("(p + q) - q != p")
	}
}

func TestDecompressRoundTrip(t *testing.T) {
	p := ScalarMulBase(HashToScalar([]byte("roundtrip")))
	decoded, err := DecompressPoint(p.Bytes())
	if err != nil {
		t.Fatalf("DecompressPoint: %v", err)
	}
	if !decoded.Equal(p) {
		t.Fatal("decompress(compress(p)) != p")
	}
}

func TestDecompressRejectsWrongLength(t *testing.T) {
	if _, err := DecompressPoint(make([]byte, 16)); err == nil {
		t.Fatal("expected an error decompressing a short buffer")
	}
}

func TestHashToPointIsOnCurveAndDeterministic(t *testing.T) {
	p1 := HashToPoint([]byte("seed"))
	p2 := HashToPoint([]byte("seed"))
	if !p1.Equal(p2) {
		t.Fatal("HashToPoint not deterministic")
	}
	if _, err := DecompressPoint(p1.Bytes()); err != nil {
		t.Fatalf("HashToPoint result does not decompress: %v", err)
	}
}

func TestHGenIsNotIdentityOrBase(t *testing.T) {
	h := HGen()
	if h.IsIdentity() {
		t.Fatal("H generator is the identity")
	}
	if h.Equal(BasePoint()) {
		t.Fatal("H generator equals G")
	}
}

func TestDoubleScalarMulBaseMatchesNaive(t *testing.T) {
	a := HashToScalar([]byte("a-coeff"))
	b := HashToScalar([]byte("b-coeff"))
	p := ScalarMulBase(HashToScalar([]byte("point")))

	got := DoubleScalarMulBase(a, p, b)
	want := ScalarMul(a, p).Add(ScalarMulBase(b))
	if !got.Equal(want) {
		t.Fatal("DoubleScalarMulBase(a, P, b) != a*P + b*G")
	}
}
