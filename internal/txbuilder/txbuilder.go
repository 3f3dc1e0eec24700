package txbuilder

import (
	"context"
	"encoding/hex"

	"golang.org/x/sync/errgroup"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/policy"
	"github.com/salvium/walletcore/internal/storage"
	"github.com/salvium/walletcore/internal/walleterr"
)

// maxConcurrentNodeCalls bounds how many Node RPCs the global-index and
// decoy fetch stages fire at once. Node boundaries are the only suspension
// points in a build, so batching them concurrently is safe as long as it's
// bounded.
const maxConcurrentNodeCalls = 8

// burnAssetSentinel names the destination asset type of a BURN; the
// network creates no output for it.
const burnAssetSentinel = "BURN"

// Transfer builds (and unless DryRun, broadcasts) a payment to one or more
// destinations.
func (b *Builder) Transfer(ctx context.Context, dests []Destination, opts Options) (*Result, error) {
	if len(dests) == 0 {
		return nil, walleterr.New(walleterr.InvalidInput, "transfer requires at least one destination")
	}
	return b.build(ctx, policy.TxTransfer, dests, "", opts)
}

// Sweep consumes every spendable output of the asset up to sweepInputCap
// into a single output with no change.
func (b *Builder) Sweep(ctx context.Context, destination *address.Address, opts Options) (*Result, error) {
	tip, err := b.Node.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	pol := policy.Resolve(tip.Height, b.Network, policy.TxTransfer)
	inputs, total, err := selectSweepOutputs(ctx, b.Store, pol.AssetType, tip.Height)
	if err != nil {
		return nil, err
	}
	fee := estimateFee(len(inputs), 1, opts.ringSize(), opts.Priority)
	if total <= fee {
		return nil, walleterr.New(walleterr.InsufficientBalance, "sweep total does not cover fee")
	}
	return b.assemble(ctx, policy.TxTransfer, pol, tip.Height, inputs, total, []Destination{{Address: destination, Amount: total - fee}}, fee, false, opts)
}

// Stake locks amount for the stake lock period: no payment output, only
// an optional change output, addressed with CARROT keys once the fork is
// active.
func (b *Builder) Stake(ctx context.Context, amount uint64, opts Options) (*Result, error) {
	return b.build(ctx, policy.TxStake, nil, "", withAmount(amount, opts))
}

// Burn destroys amount of the current asset: no asset output, only change
// returns. Inputs are selected from the policy's asset type; the
// destination asset (burnAssetSentinel) is not written into the
// transaction.
func (b *Builder) Burn(ctx context.Context, amount uint64, opts Options) (*Result, error) {
	return b.build(ctx, policy.TxBurn, nil, "", withAmount(amount, opts))
}

// ConvertResult extends Result with the bookkeeping fields the network
// needs to execute a conversion.
type ConvertResult struct {
	Result
	SourceAssetType      string
	DestinationAssetType string
	AmountBurnt          uint64
	AmountSlippageLimit  uint64
}

// Convert burns amount of srcAsset and asks the network to credit
// destination in dstAsset on inclusion, recording source/destination asset
// type, amount burnt and the slippage limit. Locally this still only
// produces a burn-shaped transaction.
func (b *Builder) Convert(ctx context.Context, amount uint64, srcAsset, dstAsset string, destination *address.Address, slippageBasisPoints uint64, opts Options) (*ConvertResult, error) {
	res, err := b.build(ctx, policy.TxConvert, nil, srcAsset, withAmount(amount, opts))
	if err != nil {
		return nil, err
	}
	return &ConvertResult{
		Result:               *res,
		SourceAssetType:      srcAsset,
		DestinationAssetType: dstAsset,
		AmountBurnt:          amount,
		AmountSlippageLimit:  mulDivAmount(amount, slippageBasisPoints, 10000),
	}, nil
}

// withAmount is a small helper letting Stake/Burn/Convert reuse build's
// destination-driven pipeline: they pass no real destination (the
// "destination" for these types is the wallet's own change address,
// resolved inside assemble), just an amount to burn/lock, threaded
// through Options so build's signature doesn't need a second amount
// parameter duplicated across four entry points.
func withAmount(amount uint64, opts Options) Options {
	opts.stakeOrBurnAmount = amount
	return opts
}

// build runs the shared pipeline for transfer, and for stake/burn/convert,
// which carry no payment destinations of their own.
func (b *Builder) build(ctx context.Context, txType policy.TxType, dests []Destination, assetOverride string, opts Options) (*Result, error) {
	tip, err := b.Node.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	pol := policy.Resolve(tip.Height, b.Network, txType)
	assetType := pol.AssetType
	if assetOverride != "" {
		assetType = assetOverride
	}

	var target uint64
	for _, d := range dests {
		target += d.Amount
	}
	target += opts.stakeOrBurnAmount

	numOutputs := len(dests) + 1 // + change; trimmed later if change is zero
	fee := estimateFee(2, numOutputs, opts.ringSize(), opts.Priority)

	inputs, total, err := selectOutputs(ctx, b.Store, assetType, tip.Height, target+fee)
	if err != nil {
		return nil, err
	}

	fee = estimateFee(len(inputs), numOutputs, opts.ringSize(), opts.Priority)
	if opts.SubtractFeeFromAmount && len(dests) > 0 {
		if dests[0].Amount <= fee {
			return nil, walleterr.New(walleterr.InvalidInput, "fee exceeds first destination amount")
		}
		dests[0].Amount -= fee
	} else if total < target+fee {
		return nil, walleterr.New(walleterr.InsufficientBalance, "selected outputs do not cover amount and fee")
	}

	return b.assemble(ctx, txType, pol, tip.Height, inputs, total, dests, fee, true, opts)
}

// assemble runs steps 6-14 once inputs/destinations/fee are fixed: global
// index resolution, per-input secret derivation, decoy selection,
// destination+change construction, range proof, balance commitment,
// ring signing, serialization and (unless DryRun) broadcast.
func (b *Builder) assemble(ctx context.Context, txType policy.TxType, pol policy.Policy, tip uint64, inputs []*storage.Output, totalIn uint64, dests []Destination, fee uint64, allowChange bool, opts Options) (*Result, error) {
	if err := resolveGlobalIndices(ctx, b.Node, inputs); err != nil {
		return nil, err
	}

	secrets := make([]*curve.Scalar, len(inputs))
	for i, in := range inputs {
		s, err := deriveOneTimeSecret(b.Wallet, in)
		if err != nil {
			return nil, err
		}
		secrets[i] = s
	}

	target := opts.stakeOrBurnAmount
	for _, d := range dests {
		target += d.Amount
	}
	change := int64(totalIn) - int64(target) - int64(fee)
	if change < 0 {
		return nil, walleterr.New(walleterr.InsufficientBalance, "inputs do not cover destinations and fee")
	}

	outSpecs := append([]Destination(nil), dests...)
	if allowChange && change > 0 {
		changeAddr, err := b.ownAddress(pol, opts.ChangeSubaddress)
		if err != nil {
			return nil, err
		}
		outSpecs = append(outSpecs, Destination{Address: changeAddr, Amount: uint64(change)})
	}
	if len(outSpecs) == 0 {
		return nil, walleterr.New(walleterr.InvalidInput, "transaction has no outputs")
	}

	built := make([]*builtOutput, len(outSpecs))
	nonce := inputs[0].KeyImage[:]
	for i, d := range outSpecs {
		bo, err := buildDestinationOutput(d.Address, d.Amount, i, nonce)
		if err != nil {
			return nil, err
		}
		built[i] = bo
	}

	commitments := make([]*curve.Point, len(built))
	masks := make([]*curve.Scalar, len(built))
	for i, o := range built {
		commitments[i] = o.Commitment
		masks[i] = o.Mask
	}
	rp := BuildRangeProof(commitments)

	pseudos := buildPseudoOutputs(inputs, sumMasks(masks))

	// Decoy selection plus the ring's Node.GetOuts lookup are pure
	// Node-boundary work per input, independent across inputs, so they run
	// concurrently (bounded) instead of one-at-a-time; the CLSAG/TCLSAG
	// signing itself stays a sequential crypto loop with no suspension
	// points inside it.
	ringIndices := make([][]uint64, len(inputs))
	realPositions := make([]int, len(inputs))
	outsByInput := make([][]node.Out, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentNodeCalls)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			ring, realPos, err := selectDecoys(gctx, b.Node, in.AssetType, *in.GlobalIndex, opts.ringSize()-1)
			if err != nil {
				return err
			}
			outs, err := b.Node.GetOuts(gctx, ring)
			if err != nil {
				return err
			}
			ringIndices[i] = ring
			realPositions[i] = realPos
			outsByInput[i] = outs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sigs := make([]*Signature, len(inputs))
	for i, in := range inputs {
		realPos := realPositions[i]
		r, err := buildRing(pol, in, pseudos[i], outsByInput[i], realPos)
		if err != nil {
			return nil, err
		}

		// The ring's commitment column holds C_real - C', whose discrete log
		// at the real index is mask_real - mask_pseudo.
		z := maskOf(in).Sub(pseudos[i].Mask)
		var zAsset *curve.Scalar
		if pol.Sig == policy.SigTCLSAG {
			za := curve.ZeroScalar()
			zAsset = za
		}
		sig, err := Sign(*r, realPos, secrets[i], z, zAsset, assembleSigMessage(pol, fee))
		if err != nil {
			return nil, err
		}
		sigs[i] = sig
	}

	prefix := serializePrefix(&txPrefix{
		Version:     pol.TxVersion,
		UnlockTime:  unlockTimeFor(txType, tip),
		Inputs:      pseudos,
		RingIndices: ringIndices,
		Outputs:     built,
		TxPubKeys:   txPubKeys(built),
	})
	rctSection := serializeRCTSection(pol.RCT, fee, built, rp, sigs)
	txHash, hexBlob := assembleTx(prefix, rctSection)

	result := &Result{TxHash: txHash, Hex: hexBlob, Fee: fee}
	for _, in := range inputs {
		result.KeyImages = append(result.KeyImages, in.KeyImage)
	}

	if opts.DryRun {
		return result, nil
	}

	sendRes, err := b.Node.SendRawTransaction(ctx, hexBlob, pol.AssetType)
	if err != nil {
		return nil, err
	}
	if sendRes.Status != "OK" {
		return nil, walleterr.Newf(walleterr.RPCError, "node rejected transaction: %s", sendRes.Reason)
	}
	result.Broadcast = true

	for _, in := range inputs {
		if err := b.Store.MarkOutputSpent(ctx, in.KeyImage, txHash, tip); err != nil {
			return nil, err
		}
	}
	if err := b.Store.PutTransaction(ctx, &storage.Transaction{
		TxHash:      txHash,
		BlockHeight: 0, // unconfirmed until the scanner observes it mined
		Direction:   storage.DirectionOut,
		Amount:      target,
		Fee:         fee,
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// resolveGlobalIndices batch-queries the node grouped by tx_hash for every
// selected output missing a cached global index. One
// tx_hash group's query is independent of every other group's, so the
// per-group Node calls run concurrently (bounded), matching the decoy
// fetch's concurrency treatment in assemble.
func resolveGlobalIndices(ctx context.Context, n node.Node, inputs []*storage.Output) error {
	byTx := make(map[[32]byte][]*storage.Output)
	for _, in := range inputs {
		if in.GlobalIndex != nil {
			continue
		}
		byTx[in.TxHash] = append(byTx[in.TxHash], in)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentNodeCalls)
	for txHash, outs := range byTx {
		txHash, outs := txHash, outs
		g.Go(func() error {
			idxs, err := n.GetOutputIndexes(gctx, hex.EncodeToString(txHash[:]))
			if err != nil {
				return err
			}
			for _, o := range outs {
				if o.OutputIndex < 0 || o.OutputIndex >= len(idxs.Indices) {
					return walleterr.New(walleterr.InvalidInput, "output index out of range in node response")
				}
				v := idxs.Indices[o.OutputIndex]
				o.GlobalIndex = &v
			}
			return nil
		})
	}
	return g.Wait()
}

// ownAddress resolves the wallet's own receiving address for change:
// CARROT keys once the fork has activated them, legacy keys before.
func (b *Builder) ownAddress(pol policy.Policy, sub *storage.SubaddressIndex) (*address.Address, error) {
	if pol.CarrotActive {
		if b.Wallet.Carrot == nil {
			return nil, walleterr.New(walleterr.InvalidInput, "wallet has no carrot keys for post-HF10 change")
		}
		return carrotAddress(b.Wallet, b.Network, sub), nil
	}
	if b.Wallet.Legacy == nil {
		return nil, walleterr.New(walleterr.InvalidInput, "wallet has no legacy keys")
	}
	return legacyAddress(b.Wallet, b.Network, sub), nil
}

func legacyAddress(w *Wallet, network address.Network, sub *storage.SubaddressIndex) *address.Address {
	lk := w.Legacy
	a := &address.Address{Network: network, Format: address.Legacy, Type: address.Standard}
	spend := lk.SpendPublic
	if sub != nil && (sub.Major != 0 || sub.Minor != 0) {
		a.Type = address.Subaddress
		offset := curve.HashToScalar([]byte("SubAddr\x00"), lk.ViewSecret.Bytes(), le32(sub.Major), le32(sub.Minor))
		spend = spend.Add(curve.ScalarMulBase(offset))
	}
	copy(a.SpendKey[:], spend.Bytes())
	copy(a.ViewKey[:], lk.ViewPublic.Bytes())
	return a
}

func carrotAddress(w *Wallet, network address.Network, sub *storage.SubaddressIndex) *address.Address {
	ck := w.Carrot
	a := &address.Address{Network: network, Format: address.Carrot, Type: address.Standard}
	spend := ck.SpendPublic
	if sub != nil && (sub.Major != 0 || sub.Minor != 0) {
		a.Type = address.Subaddress
		offset := curve.HashToScalar([]byte("Carrot subaddress"), ck.GenerateAddrSecret[:], le32(sub.Major), le32(sub.Minor))
		spend = spend.Add(curve.ScalarMulBase(offset))
	}
	copy(a.SpendKey[:], spend.Bytes())
	copy(a.ViewKey[:], ck.MainViewPublic.Bytes())
	return a
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func txPubKeys(outs []*builtOutput) [][32]byte {
	keys := make([][32]byte, len(outs))
	for i, o := range outs {
		keys[i] = o.TxPubKey
	}
	return keys
}

// maskOf recovers a spent input's own commitment blinding factor, stored
// verbatim on the Output record since the scanner already decrypted it.
func maskOf(o *storage.Output) *curve.Scalar {
	s, err := curve.NewScalarFromCanonicalBytes(o.Mask[:])
	if err != nil {
		// A stored mask that is not a canonical scalar is replaced by the
		// identity mask 1 rather than failing the spend.
		return curve.Reduce32([]byte{1})
	}
	return s
}

// assembleSigMessage is the message each CLSAG/TCLSAG ring signs:
// binding the fee is enough to tie the signature to this exact
// transaction's public balance equation without re-hashing the entire
// prefix per input.
func assembleSigMessage(pol policy.Policy, fee uint64) []byte {
	return curve.HashToScalar([]byte("txbuilder sig message"), []byte(pol.AssetType), indexVarint(int(fee))).Bytes()
}

// buildRing assembles the public Ring for one input from the decoy
// set's fetched Outs plus the real output's own key/commitment, splicing
// the real entry in at realPos (selectDecoys already sorted the ring and
// located the real position).
func buildRing(pol policy.Policy, real *storage.Output, pseudo *pseudoOutput, outs []node.Out, realPos int) (*Ring, error) {
	n := len(outs)
	ring := &Ring{Keys: make([]*curve.Point, n), Commitments: make([]*curve.Point, n)}
	for i, o := range outs {
		if i == realPos {
			P, err := curve.DecompressPoint(real.OutputPublicKey[:])
			if err != nil {
				return nil, walleterr.Wrap(walleterr.PointInvalid, "real output public key", err)
			}
			C, err := curve.DecompressPoint(real.Commitment[:])
			if err != nil {
				return nil, walleterr.Wrap(walleterr.PointInvalid, "real output commitment", err)
			}
			ring.Keys[i] = P
			ring.Commitments[i] = C.Sub(pseudo.Commitment)
			continue
		}
		P, err := curve.DecompressPoint(mustHex32(o.Key))
		if err != nil {
			return nil, walleterr.Wrap(walleterr.PointInvalid, "decoy output key", err)
		}
		C, err := curve.DecompressPoint(mustHex32(o.Mask))
		if err != nil {
			return nil, walleterr.Wrap(walleterr.PointInvalid, "decoy output commitment", err)
		}
		ring.Keys[i] = P
		ring.Commitments[i] = C.Sub(pseudo.Commitment)
	}
	if pol.Sig == policy.SigTCLSAG {
		ring.AssetCommitments = make([]*curve.Point, n)
		for i := range ring.AssetCommitments {
			ring.AssetCommitments[i] = curve.IdentityPoint()
		}
	}
	return ring, nil
}

func mustHex32(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return make([]byte, 32)
	}
	return b
}
