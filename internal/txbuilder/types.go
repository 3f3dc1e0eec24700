// Package txbuilder implements the transaction-construction pipeline:
// policy resolution, spendable-output selection, decoy sampling,
// destination-output construction, balance-commitment bookkeeping and ring
// signing, for all five entry points (transfer/sweep/stake/burn/convert).
package txbuilder

import (
	"github.com/holiman/uint256"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/scanner"
	"github.com/salvium/walletcore/internal/storage"
)

// Priority maps to the node's fee-per-byte multiplier.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityUnimportant
	PriorityNormal
	PriorityElevated
	PriorityPriority
)

func (p Priority) multiplier() uint64 {
	switch p {
	case PriorityUnimportant:
		return 1
	case PriorityElevated:
		return 5
	case PriorityPriority:
		return 20
	default: // Default, Normal
		return 2
	}
}

// Destination is one payment output requested by the caller.
type Destination struct {
	Address *address.Address
	Amount  uint64
}

// Options controls discretionary behavior common to all entry points.
type Options struct {
	Priority              Priority
	SubtractFeeFromAmount bool
	DryRun                bool
	ChangeSubaddress      *storage.SubaddressIndex
	RingSize              int // 0 selects the default of 11 (1 real + 10 decoys)

	// stakeOrBurnAmount carries the amount for Stake/Burn/Convert, which
	// have no payment destination of their own: the amount is consumed
	// entirely from inputs (locked or burned), with only the remainder
	// returned as change.
	stakeOrBurnAmount uint64
}

func (o Options) ringSize() int {
	if o.RingSize > 0 {
		return o.RingSize
	}
	return 11
}

// Result is what a successful build (and, unless DryRun, broadcast)
// returns.
type Result struct {
	TxHash    [32]byte
	Hex       string
	Fee       uint64
	KeyImages [][32]byte
	Broadcast bool
}

// Wallet is the full key material the builder needs. It is scanner.Wallet
// itself: that type already carries the full key trees, including the
// spend-side secrets (LegacyKeys.SpendSecret, CarrotKeys.GenerateImageSecret)
// that the scanner uses for key images and the builder uses to re-derive
// one-time secret keys, so no new key type is needed.
type Wallet = scanner.Wallet

// Builder assembles and optionally broadcasts transactions for one
// Wallet against one Store/Node pair.
type Builder struct {
	Node    node.Node
	Store   storage.Store
	Wallet  *Wallet
	Network address.Network
}

// amountToUint256 widens a uint64 amount for overflow-safe arithmetic
// during fee/balance bookkeeping.
func amountToUint256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// mulDivAmount computes floor(amount*numerator/denominator) without the
// uint64 overflow a naive amount*numerator risks once amount approaches the
// top of the atomic-unit range (the convert slippage limit is exactly such
// a product).
func mulDivAmount(amount, numerator, denominator uint64) uint64 {
	n := amountToUint256(amount)
	n.Mul(n, amountToUint256(numerator))
	n.Div(n, amountToUint256(denominator))
	return n.Uint64()
}
