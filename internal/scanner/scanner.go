// Package scanner implements the per-block output-recognition pipeline:
// view-tag fast reject, shared-secret derivation, ownership test,
// amount/mask recovery, key-image computation. Matches are persisted to
// Storage in transaction order; candidates that fail any step are skipped.
package scanner

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/keys"
	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/storage"
	"github.com/salvium/walletcore/internal/subaddress"
	"github.com/salvium/walletcore/internal/walleterr"
)

// CandidateOutput is one parsed transaction output presented to the
// scanner. Parsing the node's wire codec into this shape happens upstream;
// the scanner only consumes the already-parsed result.
type CandidateOutput struct {
	OutputIndex     int
	TxPubKey        [32]byte // R, legacy derivation
	EphemeralPubKey [32]byte // D_e, carrot enote ephemeral pubkey
	OutputPublicKey [32]byte // K_o, the one-time address on chain
	ViewTag         []byte   // nil, 1 byte (legacy tagged) or 3 bytes (carrot)
	IsCarrot        bool
	EncryptedAmount []byte // ECDH-encrypted (v, mask) blob
	Commitment      [32]byte
	AssetType       string
	IsCoinbase      bool
}

// CandidateTx is one parsed transaction's outputs.
type CandidateTx struct {
	TxHash  [32]byte
	Outputs []CandidateOutput
}

// Wallet bundles the key material and subaddress oracle the scanner tests
// candidate outputs against. Recognition uses the view-side secrets plus
// the spend public key lookups; the spend-side secrets (legacy k_s, CARROT
// k_gi) are used only after a match, to compute the output's key image.
type Wallet struct {
	Legacy    *keys.LegacyKeys
	Carrot    *keys.CarrotKeys
	LegacyIdx *subaddress.Table
	CarrotIdx *subaddress.Table
}

// Scanner drives candidate outputs against a Wallet and records matches
// in Storage: atomic progress counters, a cancellable per-block loop,
// persistence of matches only.
type Scanner struct {
	n     node.Node
	store storage.Store
	w     *Wallet

	// OnOutput, when set, is called after a matched output is persisted;
	// the wallet session uses it to publish an output_received event.
	OnOutput func(*storage.Output)

	currentHeight atomic.Uint64
	totalScanned  atomic.Uint64
	totalFound    atomic.Uint64
}

func New(n node.Node, store storage.Store, w *Wallet) *Scanner {
	return &Scanner{n: n, store: store, w: w}
}

type Progress struct {
	CurrentHeight uint64
	TotalScanned  uint64
	TotalFound    uint64
}

func (s *Scanner) Progress() Progress {
	return Progress{
		CurrentHeight: s.currentHeight.Load(),
		TotalScanned:  s.totalScanned.Load(),
		TotalFound:    s.totalFound.Load(),
	}
}

// ScanBlock applies the recognition pipeline to every candidate output of
// every transaction in txs, recording matches at blockHeight. Within a
// block, outputs are recorded in transaction order.
func (s *Scanner) ScanBlock(ctx context.Context, blockHeight uint64, txs []CandidateTx) error {
	s.currentHeight.Store(blockHeight)
	for _, tx := range txs {
		select {
		case <-ctx.Done():
			return walleterr.Wrap(walleterr.Cancelled, "scan cancelled", ctx.Err())
		default:
		}
		for _, out := range tx.Outputs {
			s.totalScanned.Add(1)
			owned, rec, err := s.testOutput(tx.TxHash, blockHeight, out)
			if err != nil {
				log.Printf("[scanner] block %d tx %x output %d: %v", blockHeight, tx.TxHash, out.OutputIndex, err)
				continue
			}
			if !owned {
				continue
			}
			if err := s.store.PutOutput(ctx, rec); err != nil {
				return err
			}
			s.totalFound.Add(1)
			if s.OnOutput != nil {
				s.OnOutput(rec)
			}
		}
	}
	return nil
}

// testOutput runs the full recognition pipeline against a single
// candidate output.
func (s *Scanner) testOutput(txHash [32]byte, blockHeight uint64, out CandidateOutput) (bool, *storage.Output, error) {
	if out.IsCarrot {
		return s.testCarrot(txHash, blockHeight, out)
	}
	return s.testLegacy(txHash, blockHeight, out)
}

func (s *Scanner) testLegacy(txHash [32]byte, blockHeight uint64, out CandidateOutput) (bool, *storage.Output, error) {
	lk := s.w.Legacy
	if lk == nil {
		return false, nil, nil
	}

	R, err := curve.DecompressPoint(out.TxPubKey[:])
	if err != nil {
		return false, nil, walleterr.Wrap(walleterr.PointInvalid, "legacy tx pub key", err)
	}
	// Step 2: D = k_v . R
	D := curve.ScalarMul(lk.ViewSecret, R)
	derivationScalar := curve.HashToScalar(D.Bytes(), indexVarint(out.OutputIndex))

	// Step 1: 1-byte view tag fast reject, computed from the same derivation.
	if len(out.ViewTag) == 1 {
		want := legacyViewTag(D.Bytes(), out.OutputIndex)
		if want != out.ViewTag[0] {
			return false, nil, nil
		}
	}

	// Step 3: ownership test. K_o - derivationScalar.G must equal a known
	// subaddress spend public key.
	Ko, err := curve.DecompressPoint(out.OutputPublicKey[:])
	if err != nil {
		return false, nil, walleterr.Wrap(walleterr.PointInvalid, "output public key", err)
	}
	candidateSpend := Ko.Sub(curve.ScalarMulBase(derivationScalar))

	idx, ok := s.w.LegacyIdx.Lookup([32]byte(candidateSpend.Bytes()))
	if !ok {
		return false, nil, nil
	}

	// Step 4: amount/mask recovery + commitment check.
	amount, mask, ok := decryptAmount(D.Bytes(), out.OutputIndex, out.EncryptedAmount)
	if !ok {
		return false, nil, walleterr.New(walleterr.ParseError, "amount decrypt failed")
	}
	if !commitmentMatches(amount, mask, out.Commitment) {
		return false, nil, walleterr.New(walleterr.ChecksumMismatch, "commitment mismatch")
	}

	// Step 5: one-time secret k_o = H_s(x||i) + k_s (+ subaddress offset);
	// key image I = k_o . H_p(K_o).
	oneTimeSecret := lk.SpendSecret.Add(derivationScalar)
	if idx.Major != 0 || idx.Minor != 0 {
		oneTimeSecret = oneTimeSecret.Add(keys.SubAddrSecret(lk.ViewSecret, idx.Major, idx.Minor))
	}
	keyImage := keys.KeyImage(oneTimeSecret, Ko)

	rec := &storage.Output{
		TxHash:          txHash,
		OutputIndex:     out.OutputIndex,
		TxPubKey:        out.TxPubKey,
		OutputPublicKey: out.OutputPublicKey,
		Amount:          amount,
		Subaddress:      storage.SubaddressIndex(idx),
		AssetType:       out.AssetType,
		BlockHeight:     blockHeight,
		UnlockHeight:    blockHeight + lockPeriod(out.IsCoinbase),
	}
	copy(rec.Mask[:], mask)
	rec.Commitment = out.Commitment
	rec.KeyImage = [32]byte(keyImage.Bytes())
	return true, rec, nil
}

func (s *Scanner) testCarrot(txHash [32]byte, blockHeight uint64, out CandidateOutput) (bool, *storage.Output, error) {
	ck := s.w.Carrot
	if ck == nil {
		return false, nil, nil
	}

	De, err := curve.DecompressPoint(out.EphemeralPubKey[:])
	if err != nil {
		return false, nil, walleterr.Wrap(walleterr.PointInvalid, "carrot ephemeral pub key", err)
	}
	// s_sr_ctx = Hs(k_vi . D_e || input_context); input_context here is the
	// output index, since per-enote input-context binding is a node/parser
	// concern out of this scanner's scope.
	sSr := curve.ScalarMul(ck.IncomingViewSecret, De)
	sSrCtx := curve.HashToScalar([]byte("carrot sender-receiver secret"), sSr.Bytes(), indexVarint(out.OutputIndex))

	if len(out.ViewTag) == 3 {
		want := carrotViewTag(sSrCtx.Bytes())
		for i := 0; i < 3; i++ {
			if want[i] != out.ViewTag[i] {
				return false, nil, nil
			}
		}
	}

	senderExtG := curve.HashToScalar([]byte("carrot sender extension g"), sSrCtx.Bytes())

	Ko, err := curve.DecompressPoint(out.OutputPublicKey[:])
	if err != nil {
		return false, nil, walleterr.Wrap(walleterr.PointInvalid, "output public key", err)
	}
	candidateSpend := Ko.Sub(curve.ScalarMulBase(senderExtG))

	idx, ok := s.w.CarrotIdx.Lookup([32]byte(candidateSpend.Bytes()))
	if !ok {
		return false, nil, nil
	}

	amount, mask, ok := decryptAmount(sSrCtx.Bytes(), out.OutputIndex, out.EncryptedAmount)
	if !ok {
		return false, nil, walleterr.New(walleterr.ParseError, "amount decrypt failed")
	}
	if !commitmentMatches(amount, mask, out.Commitment) {
		return false, nil, walleterr.New(walleterr.ChecksumMismatch, "commitment mismatch")
	}

	oneTimeSecret := ck.GenerateImageSecret.Add(senderExtG)
	keyImage := keys.KeyImage(oneTimeSecret, Ko)

	rec := &storage.Output{
		TxHash:             txHash,
		OutputIndex:        out.OutputIndex,
		OutputPublicKey:    out.OutputPublicKey,
		Amount:             amount,
		Subaddress:         storage.SubaddressIndex(idx),
		IsCarrot:           true,
		CarrotSharedSecret: sSrCtx.Bytes(),
		AssetType:          out.AssetType,
		BlockHeight:        blockHeight,
		UnlockHeight:       blockHeight + lockPeriod(out.IsCoinbase),
	}
	copy(rec.Mask[:], mask)
	rec.Commitment = out.Commitment
	rec.KeyImage = [32]byte(keyImage.Bytes())
	return true, rec, nil
}

// lockPeriod returns the unlock-height offset: coinbase outputs carry a
// longer maturity window than ordinary transfers.
func lockPeriod(isCoinbase bool) uint64 {
	if isCoinbase {
		return 60
	}
	return 10
}

func indexVarint(i int) []byte {
	b := make([]byte, 0, 5)
	v := uint64(i)
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

func legacyViewTag(derivation []byte, outputIndex int) byte {
	h := hash.Keccak256([]byte("view_tag"), derivation, indexVarint(outputIndex))
	return h[0]
}

func carrotViewTag(sharedSecret []byte) [3]byte {
	h := hash.Blake2b32(nil, []byte("carrot view tag"), sharedSecret)
	var tag [3]byte
	copy(tag[:], h)
	return tag
}

// decryptAmount recovers (v, mask) from an 8+32-byte ECDH blob using the
// same derivation-keyed keystream convention the rest of CryptoNote uses
// for amount/mask encryption: amount and mask are each XORed against a
// Keccak256 keystream derived from the shared secret.
func decryptAmount(secret []byte, outputIndex int, blob []byte) (uint64, []byte, bool) {
	if len(blob) != 40 {
		return 0, nil, false
	}
	amountKey := hash.Keccak256([]byte("amount"), secret, indexVarint(outputIndex))
	maskKey := hash.Keccak256([]byte("mask"), secret, indexVarint(outputIndex))

	var amountBytes [8]byte
	for i := range amountBytes {
		amountBytes[i] = blob[i] ^ amountKey[i]
	}
	mask := make([]byte, 32)
	for i := range mask {
		mask[i] = blob[8+i] ^ maskKey[i]
	}

	amount := uint64(0)
	for i := 7; i >= 0; i-- {
		amount = (amount << 8) | uint64(amountBytes[i])
	}
	return amount, mask, true
}

// commitmentMatches checks C == v.H + mask.G.
func commitmentMatches(amount uint64, mask []byte, commitment [32]byte) bool {
	maskScalar, err := curve.NewScalarFromCanonicalBytes(mask)
	if err != nil {
		return false
	}
	v := amountScalar(amount)
	expect := curve.ScalarMul(v, curve.HGen()).Add(curve.ScalarMulBase(maskScalar))
	C, err := curve.DecompressPoint(commitment[:])
	if err != nil {
		return false
	}
	return expect.Equal(C)
}

func amountScalar(v uint64) *curve.Scalar {
	var b [32]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	s, _ := curve.NewScalarFromCanonicalBytes(b[:])
	return s
}
