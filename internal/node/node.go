// Package node defines the abstract Node interface the wallet core
// consumes. The remote-node RPC transport is a boundary concern, so every
// other package depends only on this interface, never on a concrete
// transport.
package node

import "context"

// Info is the result of get_info.
type Info struct {
	Height       uint64
	TopBlockHash string
}

// Block is the result of get_block.
type Block struct {
	MinerTx    string
	ProtocolTx string // empty if absent
	TxHashes   []string
}

// Header is one entry of get_block_headers_range.
type Header struct {
	Height       uint64
	Hash         string
	Timestamp    int64
	Reward       uint64
	MajorVersion int
	MinorVersion int
}

// Out is one entry of get_outs.
type Out struct {
	Key      string
	Mask     string
	Unlocked bool
	Height   uint64
	TxID     string // empty if the node didn't return one
}

// OutputIndexes is the result of get_output_indexes: the global index of
// each output in a transaction, plus the carrot-specific per-asset indices
// when the transaction carries them.
type OutputIndexes struct {
	Indices          []uint64
	AssetTypeIndices map[string][]uint64 // nil unless the tx is carrot
}

// SendResult is the result of send_raw_transaction.
type SendResult struct {
	Status string
	Reason string // populated when Status is not "OK"
}

// Node is the abstract transport boundary to the remote daemon. Every
// method takes a context so a per-call timeout can be enforced by the
// caller or by an adapter's own retry wrapper.
type Node interface {
	GetInfo(ctx context.Context) (*Info, error)
	GetBlock(ctx context.Context, height uint64) (*Block, error)
	GetBlockHeadersRange(ctx context.Context, lo, hi uint64) ([]Header, error)
	GetTransactions(ctx context.Context, hashes []string) ([]string, error)
	GetOuts(ctx context.Context, globalIndices []uint64) ([]Out, error)
	GetOutputDistribution(ctx context.Context, asset string, start uint64, end *uint64) ([]uint64, error)
	GetOutputIndexes(ctx context.Context, txHash string) (*OutputIndexes, error)
	GetTxPool(ctx context.Context) ([]string, error)
	SendRawTransaction(ctx context.Context, hex string, sourceAssetType string) (*SendResult, error)
	IsKeyImageSpent(ctx context.Context, keyImages []string) ([]bool, error)
}
