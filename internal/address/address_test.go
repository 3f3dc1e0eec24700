package address

import "testing"

func testKeys(seed byte) (spend, view [32]byte) {
	for i := range spend {
		spend[i] = seed + byte(i)
		view[i] = seed + byte(i) + 1
	}
	return
}

// Every (network, format, type) combination in the tag table must encode
// and decode back to an identical Address.
func TestEncodeDecodeAllCombinations(t *testing.T) {
	networks := []Network{Mainnet, Testnet, Stagenet}
	formats := []Format{Legacy, Carrot}
	types := []Type{Standard, Integrated, Subaddress}

	seed := byte(1)
	for _, n := range networks {
		for _, f := range formats {
			for _, ty := range types {
				spend, view := testKeys(seed)
				seed++
				a := &Address{Network: n, Format: f, Type: ty, SpendKey: spend, ViewKey: view}
				if ty == Integrated {
					a.PaymentID = []byte{1, 2, 3, 4, 5, 6, 7, 8}
				}
				s, err := Encode(a)
				if err != nil {
					t.Fatalf("Encode(%v,%v,%v): %v", n, f, ty, err)
				}
				got, err := Decode(s)
				if err != nil {
					t.Fatalf("Decode(%v,%v,%v): %v", n, f, ty, err)
				}
				if got.Network != a.Network || got.Format != a.Format || got.Type != a.Type {
					t.Fatalf("Decode(%v,%v,%v) tuple mismatch: got %+v", n, f, ty, got)
				}
				if got.SpendKey != a.SpendKey || got.ViewKey != a.ViewKey {
					t.Fatalf("Decode(%v,%v,%v) key mismatch", n, f, ty)
				}
				if ty == Integrated && string(got.PaymentID) != string(a.PaymentID) {
					t.Fatalf("Decode(%v,%v,%v) payment id mismatch", n, f, ty)
				}
			}
		}
	}
}

func TestDecodeRejectsTamperedChecksum(t *testing.T) {
	spend, view := testKeys(9)
	a := &Address{Network: Mainnet, Format: Legacy, Type: Standard, SpendKey: spend, ViewKey: view}
	s, err := Encode(a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	tampered := []rune(s)
	// Flip a character well inside the payload, not at either fixed end,
	// so it survives block decoding as a different byte value.
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}
	if _, err := Decode(string(tampered)); err == nil {
		t.Fatal("Decode accepted a tampered address")
	}
}

func TestEncodeRejectsIntegratedWithoutPaymentID(t *testing.T) {
	spend, view := testKeys(3)
	a := &Address{Network: Testnet, Format: Legacy, Type: Integrated, SpendKey: spend, ViewKey: view}
	if _, err := Encode(a); err == nil {
		t.Fatal("expected an error encoding an integrated address with no payment id")
	}
}

func TestBase58CNRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x01},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d},
	}
	for _, in := range inputs {
		enc := EncodeCN(in)
		dec, err := DecodeCN(enc)
		if err != nil {
			t.Fatalf("DecodeCN(%x): %v", in, err)
		}
		if len(dec) != len(in) {
			t.Fatalf("round trip length mismatch for %x: got %x", in, dec)
		}
		for i := range in {
			if dec[i] != in[i] {
				t.Fatalf("round trip mismatch for %x: got %x", in, dec)
			}
		}
	}
}
