package txbuilder

import (
	"bytes"
	"encoding/hex"

	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/policy"
)

// txPrefix is the portion of the canonical encoding that tx_hash is
// computed over: version, unlock_time, vin[], vout[], extra[].
type txPrefix struct {
	Version     int
	UnlockTime  uint64
	Inputs      []*pseudoOutput
	RingIndices [][]uint64 // per-input, sorted global indices
	Outputs     []*builtOutput
	TxPubKeys   [][32]byte // extra: one per destination output needing its own R
}

// serializePrefix writes the deterministic, canonical byte encoding the
// rest of the network also produces from the same logical transaction;
// varint-length-prefixed fields throughout, mirroring the address/CN
// codec's own varint convention (internal/address.encodeVarint) rather
// than inventing a second one.
func serializePrefix(p *txPrefix) []byte {
	var buf bytes.Buffer
	writeVarint(&buf, uint64(p.Version))
	writeVarint(&buf, p.UnlockTime)

	writeVarint(&buf, uint64(len(p.Inputs)))
	for i, in := range p.Inputs {
		buf.Write(in.Output.KeyImage[:])
		writeVarint(&buf, uint64(len(p.RingIndices[i])))
		for _, idx := range p.RingIndices[i] {
			writeVarint(&buf, idx)
		}
	}

	writeVarint(&buf, uint64(len(p.Outputs)))
	for _, out := range p.Outputs {
		buf.Write(out.OneTimePublic[:])
		buf.WriteByte(out.ViewTag)
	}

	writeVarint(&buf, uint64(len(p.TxPubKeys)))
	for _, r := range p.TxPubKeys {
		buf.Write(r[:])
	}

	return buf.Bytes()
}

// serializeRCTSection encodes the RCT signature envelope: type, fee,
// ecdh-info (the per-output encrypted amount blobs),
// outPk (output commitments), the range proof and the ring signatures.
func serializeRCTSection(rctType policy.RCTType, fee uint64, outputs []*builtOutput, rp *RangeProof, sigs []*Signature) []byte {
	var buf bytes.Buffer
	writeVarint(&buf, uint64(rctType))
	writeVarint(&buf, fee)

	for _, out := range outputs {
		buf.Write(out.EncryptedAmount)
	}
	for _, out := range outputs {
		buf.Write(out.Commitment.Bytes())
	}

	buf.Write(rp.Digest[:])

	for _, sig := range sigs {
		buf.Write(sig.KeyImage[:])
		buf.Write(sig.D[:])
		if sig.IsTCLSAG {
			buf.Write(sig.E[:])
		}
		buf.Write(sig.C1[:])
		for _, s := range sig.S {
			buf.Write(s[:])
		}
	}

	return buf.Bytes()
}

// assembleTx builds the final hex blob and tx hash: tx_hash =
// Keccak256(serialize_prefix), and the wire blob is prefix‖rct_section.
func assembleTx(prefix []byte, rctSection []byte) (txHash [32]byte, hexBlob string) {
	h := hash.Keccak256(prefix)
	copy(txHash[:], h)
	blob := append(append([]byte(nil), prefix...), rctSection...)
	return txHash, hex.EncodeToString(blob)
}

func writeVarint(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// unlockTimeFor returns the chain-height lock for a given tx type: stakes
// lock for the stake lock period, all other types unlock immediately.
func unlockTimeFor(txType policy.TxType, tip uint64) uint64 {
	const stakeLockPeriod = 21600 // ~30 days at 120s blocks, matching DifficultyTargetV2
	if txType == policy.TxStake {
		return tip + stakeLockPeriod
	}
	return 0
}
