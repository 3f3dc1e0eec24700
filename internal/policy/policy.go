// Package policy implements the pure height→policy decision function:
// which hard-fork, tx version, RCT type, signature scheme and asset type
// apply at a given chain height.
package policy

import "github.com/salvium/walletcore/internal/address"

// RCTType enumerates the ring-confidential-transaction formats used across
// forks.
type RCTType int

const (
	RCTBulletproofPlus RCTType = 6
	RCTFullProofs      RCTType = 7
	RCTSalviumZero     RCTType = 8
	RCTSalviumOne      RCTType = 9
)

// SigType selects the ring signature scheme.
type SigType int

const (
	SigCLSAG SigType = iota
	SigTCLSAG
)

// TxType is one of the four transaction kinds the builder produces.
type TxType int

const (
	TxTransfer TxType = iota
	TxStake
	TxBurn
	TxConvert
)

// Policy is the decision-table result for a given height.
type Policy struct {
	HFVersion    int
	TxVersion    int
	RCT          RCTType
	Sig          SigType
	AssetType    string
	CarrotActive bool
}

// forkRow is one row of the per-network hard-fork table.
type forkRow struct {
	hf        int
	height    uint64
	txVersion int
	rct       RCTType
	sig       SigType
	asset     string
}

// testnetForks is the published testnet fork schedule.
var testnetForks = []forkRow{
	{1, 1, 2, RCTBulletproofPlus, SigCLSAG, "SAL"},
	{2, 250, 3, RCTBulletproofPlus, SigCLSAG, "SAL"},
	{3, 500, 3, RCTFullProofs, SigCLSAG, "SAL"},
	{6, 815, 3, RCTSalviumZero, SigCLSAG, "SAL1"},
	{10, 1100, 4, RCTSalviumOne, SigTCLSAG, "SAL1"},
}

// mainnetForks activates each hard fork after HF1 at 10x the testnet
// height (HF1 stays at height 1),
// matching the convention that testnets fork far earlier than mainnet to
// allow protocol soak time; the version/RCT/sig/asset columns are
// unchanged since those are protocol-format decisions, not schedule
// decisions (see DESIGN.md).
var mainnetForks = []forkRow{
	{1, 1, 2, RCTBulletproofPlus, SigCLSAG, "SAL"},
	{2, 2500, 3, RCTBulletproofPlus, SigCLSAG, "SAL"},
	{3, 5000, 3, RCTFullProofs, SigCLSAG, "SAL"},
	{6, 8150, 3, RCTSalviumZero, SigCLSAG, "SAL1"},
	{10, 11000, 4, RCTSalviumOne, SigTCLSAG, "SAL1"},
}

// stagenetForks mirrors testnet: a public pre-release network should
// exercise the same fork schedule testers rely on.
var stagenetForks = testnetForks

func table(network address.Network) []forkRow {
	switch network {
	case address.Mainnet:
		return mainnetForks
	case address.Stagenet:
		return stagenetForks
	default:
		return testnetForks
	}
}

// Resolve returns the Policy in effect at height for the given tx type.
// Non-TRANSFER types keep tx_version 2 pre-HF10 and 4 at HF10+.
func Resolve(height uint64, network address.Network, txType TxType) Policy {
	rows := table(network)
	row := rows[0]
	for _, r := range rows {
		if height >= r.height {
			row = r
		} else {
			break
		}
	}

	txVersion := row.txVersion
	if txType != TxTransfer {
		if row.hf >= 10 {
			txVersion = 4
		} else {
			txVersion = 2
		}
	}

	return Policy{
		HFVersion:    row.hf,
		TxVersion:    txVersion,
		RCT:          row.rct,
		Sig:          row.sig,
		AssetType:    row.asset,
		CarrotActive: row.hf >= 10,
	}
}
