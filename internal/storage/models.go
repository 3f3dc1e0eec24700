// Package storage defines the wallet's durable view of its UTXO set,
// transaction history and block-hash index, plus two implementations: an
// in-memory reference store and a Postgres-backed store.
package storage

// SubaddressIndex identifies the (major, minor) account/index pair that
// owns an output. (0, 0) is the main address.
type SubaddressIndex struct {
	Major uint32
	Minor uint32
}

// Output is one wallet-owned on-chain output.
type Output struct {
	KeyImage           [32]byte
	TxHash             [32]byte
	OutputIndex        int
	TxPubKey           [32]byte
	OutputPublicKey    [32]byte
	Amount             uint64
	Mask               [32]byte
	Commitment         [32]byte
	Subaddress         SubaddressIndex
	IsCarrot           bool
	CarrotSharedSecret []byte
	EncryptedAnchor    []byte
	AssetType          string
	BlockHeight        uint64
	UnlockHeight       uint64
	GlobalIndex        *uint64 // nil until resolved from the Node
	IsSpent            bool
	SpentTxHash        [32]byte
	SpentHeight        uint64
	IsFrozen           bool
}

// Spendable reports whether o is eligible for selection: unspent,
// unfrozen, unlocked at tip, and (if carrot) carrying the secret material
// needed to spend it.
func (o *Output) Spendable(tipHeight uint64) bool {
	if o.IsSpent || o.IsFrozen {
		return false
	}
	if o.UnlockHeight > tipHeight {
		return false
	}
	if o.IsCarrot && (len(o.CarrotSharedSecret) == 0 || o.Commitment == ([32]byte{})) {
		return false
	}
	return true
}

// Direction says whether a wallet-observed Transaction moved funds in,
// out, or both.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionBoth
)

// Transaction is a wallet-observed transaction.
type Transaction struct {
	TxHash      [32]byte
	BlockHeight uint64
	Direction   Direction
	Amount      uint64
	Fee         uint64
	Timestamp   int64
}

// OutputFilter narrows GetOutputs queries. A nil/zero field means
// "don't filter on this".
type OutputFilter struct {
	AssetType     string
	OnlySpendable bool
	TipHeight     uint64
	Subaddress    *SubaddressIndex
}
