// Wallet-facing entry points: the transaction types plus the read-only
// balance/address helpers a daemon front door needs. Each mutating entry
// point passes its arguments unchanged to the transaction builder, which
// resolves policy and height itself and, on a successful (non-dry-run)
// build, marks the spent inputs and records the outgoing transaction in
// Builder.assemble.
package session

import (
	"context"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/policy"
	"github.com/salvium/walletcore/internal/storage"
	"github.com/salvium/walletcore/internal/txbuilder"
)

// Transfer builds and optionally broadcasts a payment.
func (s *Session) Transfer(ctx context.Context, dests []txbuilder.Destination, opts txbuilder.Options) (*txbuilder.Result, error) {
	return s.Builder.Transfer(ctx, dests, opts)
}

// Sweep consumes all spendable outputs into a single destination.
func (s *Session) Sweep(ctx context.Context, destination *address.Address, opts txbuilder.Options) (*txbuilder.Result, error) {
	return s.Builder.Sweep(ctx, destination, opts)
}

// Stake locks amount for the stake lock period.
func (s *Session) Stake(ctx context.Context, amount uint64, opts txbuilder.Options) (*txbuilder.Result, error) {
	return s.Builder.Stake(ctx, amount, opts)
}

// Burn destroys amount of the current asset.
func (s *Session) Burn(ctx context.Context, amount uint64, opts txbuilder.Options) (*txbuilder.Result, error) {
	return s.Builder.Burn(ctx, amount, opts)
}

// Convert burns srcAsset and asks the network to credit destination in
// dstAsset on inclusion.
func (s *Session) Convert(ctx context.Context, amount uint64, srcAsset, dstAsset string, destination *address.Address, slippageBasisPoints uint64, opts txbuilder.Options) (*txbuilder.ConvertResult, error) {
	return s.Builder.Convert(ctx, amount, srcAsset, dstAsset, destination, slippageBasisPoints, opts)
}

// Balance is the spendable/total split for one asset at the current tip,
// mirroring what a wallet's "show balance" call needs from Storage without
// exposing the raw Output records.
type Balance struct {
	AssetType string
	Spendable uint64
	Total     uint64
	Outputs   int
}

// GetBalance sums the wallet's unspent outputs of assetType into Total
// (frozen and still-locked outputs included), and those Output.Spendable
// accepts at the session height into Spendable.
func (s *Session) GetBalance(ctx context.Context, assetType string) (*Balance, error) {
	outs, err := s.Store.GetOutputs(ctx, storage.OutputFilter{AssetType: assetType})
	if err != nil {
		return nil, err
	}
	tip := s.Height()
	bal := &Balance{AssetType: assetType}
	for _, o := range outs {
		if o.IsSpent {
			continue
		}
		bal.Total += o.Amount
		bal.Outputs++
		if o.Spendable(tip) {
			bal.Spendable += o.Amount
		}
	}
	return bal, nil
}

// MainAddress returns the wallet's primary receiving address: the CARROT
// address once the current tip has activated HF10, the legacy address
// otherwise. The same fork-gated choice Builder.ownAddress makes for
// change outputs.
func (s *Session) MainAddress(ctx context.Context) (*address.Address, error) {
	info, err := s.Node.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	pol := policy.Resolve(info.Height, s.Network, policy.TxTransfer)
	if pol.CarrotActive {
		a := &address.Address{Network: s.Network, Format: address.Carrot, Type: address.Standard}
		copy(a.SpendKey[:], s.Wallet.Carrot.SpendPublic.Bytes())
		copy(a.ViewKey[:], s.Wallet.Carrot.MainViewPublic.Bytes())
		return a, nil
	}
	a := &address.Address{Network: s.Network, Format: address.Legacy, Type: address.Standard}
	copy(a.SpendKey[:], s.Wallet.Legacy.SpendPublic.Bytes())
	copy(a.ViewKey[:], s.Wallet.Legacy.ViewPublic.Bytes())
	return a, nil
}
