package scanner

import (
	"context"
	"testing"

	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/keys"
	"github.com/salvium/walletcore/internal/storage"
	"github.com/salvium/walletcore/internal/subaddress"
)

// buildLegacyCandidate constructs a synthetic legacy output paid to lk's
// main address, encrypted/committed the same way testLegacy expects to
// decrypt it, so ScanBlock can recognize it end to end without a real node.
func buildLegacyCandidate(lk *keys.LegacyKeys, outputIndex int, amount uint64) CandidateOutput {
	r := curve.HashToScalar([]byte("ephemeral-random"))
	R := curve.ScalarMulBase(r)
	D := curve.ScalarMul(r, lk.ViewPublic)

	derivationScalar := curve.HashToScalar(D.Bytes(), indexVarint(outputIndex))
	Ko := curve.ScalarMulBase(derivationScalar).Add(lk.SpendPublic)

	maskScalar := curve.HashToScalar([]byte("mask-secret"))
	commitment := curve.ScalarMul(amountScalar(amount), curve.HGen()).Add(curve.ScalarMulBase(maskScalar))

	amountKey := hashKeyedAmount(D.Bytes(), outputIndex)
	maskKey := hashKeyedMask(D.Bytes(), outputIndex)

	var amountBytes [8]byte
	for i := 0; i < 8; i++ {
		amountBytes[i] = byte(amount >> (8 * i))
	}
	blob := make([]byte, 40)
	for i := 0; i < 8; i++ {
		blob[i] = amountBytes[i] ^ amountKey[i]
	}
	maskBytes := maskScalar.Bytes()
	for i := 0; i < 32; i++ {
		blob[8+i] = maskBytes[i] ^ maskKey[i]
	}

	out := CandidateOutput{OutputIndex: outputIndex, AssetType: "SAL"}
	copy(out.TxPubKey[:], R.Bytes())
	copy(out.OutputPublicKey[:], Ko.Bytes())
	copy(out.Commitment[:], commitment.Bytes())
	out.EncryptedAmount = blob
	return out
}

// hashKeyedAmount and hashKeyedMask mirror decryptAmount's own keystream
// derivation exactly so the test builds a blob that function can decrypt.
func hashKeyedAmount(secret []byte, outputIndex int) []byte {
	return hash.Keccak256([]byte("amount"), secret, indexVarint(outputIndex))
}

func hashKeyedMask(secret []byte, outputIndex int) []byte {
	return hash.Keccak256([]byte("mask"), secret, indexVarint(outputIndex))
}

func TestScanBlockRecognizesOwnedLegacyOutput(t *testing.T) {
	ctx := context.Background()
	var master [32]byte
	for i := range master {
		master[i] = byte(i + 1)
	}
	lk := keys.DeriveLegacy(master)
	legacyIdx := subaddress.BuildLegacy(lk, 2, 2)

	store := storage.NewMemoryStore()
	w := &Wallet{Legacy: lk, LegacyIdx: legacyIdx}
	sc := New(nil, store, w)

	var received *storage.Output
	sc.OnOutput = func(o *storage.Output) { received = o }

	out := buildLegacyCandidate(lk, 0, 5_000_000)
	var txHash [32]byte
	txHash[0] = 0x11
	tx := CandidateTx{TxHash: txHash, Outputs: []CandidateOutput{out}}

	if err := sc.ScanBlock(ctx, 42, []CandidateTx{tx}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	if received == nil {
		t.Fatal("OnOutput was not called; the owned output was not recognized")
	}
	if received.Amount != 5_000_000 {
		t.Errorf("recovered amount = %d, want 5000000", received.Amount)
	}
	if received.Subaddress != (storage.SubaddressIndex{Major: 0, Minor: 0}) {
		t.Errorf("recovered subaddress = %+v, want (0,0)", received.Subaddress)
	}
	if received.BlockHeight != 42 {
		t.Errorf("recovered block height = %d, want 42", received.BlockHeight)
	}

	stored, ok, err := store.GetOutput(ctx, received.KeyImage)
	if err != nil || !ok {
		t.Fatalf("GetOutput after scan: ok=%v err=%v", ok, err)
	}
	if stored.Amount != 5_000_000 {
		t.Errorf("stored amount = %d, want 5000000", stored.Amount)
	}

	progress := sc.Progress()
	if progress.TotalFound != 1 || progress.TotalScanned != 1 {
		t.Errorf("Progress() = %+v, want 1 found, 1 scanned", progress)
	}
}

func TestScanBlockIgnoresUnownedOutput(t *testing.T) {
	ctx := context.Background()
	var ownerMaster, strangerMaster [32]byte
	for i := range ownerMaster {
		ownerMaster[i] = byte(i + 1)
		strangerMaster[i] = byte(200 - i)
	}
	ownerKeys := keys.DeriveLegacy(ownerMaster)
	strangerKeys := keys.DeriveLegacy(strangerMaster)
	legacyIdx := subaddress.BuildLegacy(ownerKeys, 1, 1)

	store := storage.NewMemoryStore()
	w := &Wallet{Legacy: ownerKeys, LegacyIdx: legacyIdx}
	sc := New(nil, store, w)

	out := buildLegacyCandidate(strangerKeys, 0, 999)
	var txHash [32]byte
	txHash[0] = 0x22
	tx := CandidateTx{TxHash: txHash, Outputs: []CandidateOutput{out}}

	if err := sc.ScanBlock(ctx, 7, []CandidateTx{tx}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	outs, err := store.GetOutputs(ctx, storage.OutputFilter{})
	if err != nil {
		t.Fatalf("GetOutputs: %v", err)
	}
	if len(outs) != 0 {
		t.Errorf("GetOutputs returned %d outputs, want 0 for a non-owned candidate", len(outs))
	}
}
