package txbuilder

import (
	"github.com/salvium/walletcore/internal/curve"
	"github.com/salvium/walletcore/internal/storage"
)

// pseudoOutput is one input's balance-commitment:
// C'_i = mask'_i.G + v_i.H, chosen so that Σ C'_i - Σ C_out = fee.H.
type pseudoOutput struct {
	Mask       *curve.Scalar
	Commitment *curve.Point
	Amount     uint64
	Output     *storage.Output
}

// buildPseudoOutputs derives one pseudo-output commitment per real input.
// Every mask but the last is generated deterministically from the
// input's key image (so it is reproducible yet input-specific); the last
// is solved for so the mask terms telescope against the sum of the
// destination output masks, which is what makes the public balance
// equation hold with the fee as the only uncommitted term.
func buildPseudoOutputs(inputs []*storage.Output, outputMaskSum *curve.Scalar) []*pseudoOutput {
	n := len(inputs)
	pseudos := make([]*pseudoOutput, n)
	sum := curve.ZeroScalar()
	for i := 0; i < n-1; i++ {
		mask := curve.HashToScalar([]byte("txbuilder pseudo-out mask"), inputs[i].KeyImage[:])
		pseudos[i] = &pseudoOutput{
			Mask:       mask,
			Amount:     inputs[i].Amount,
			Output:     inputs[i],
			Commitment: curve.ScalarMulBase(mask).Add(curve.ScalarMul(amountScalar(inputs[i].Amount), curve.HGen())),
		}
		sum = sum.Add(mask)
	}
	lastMask := outputMaskSum.Sub(sum)
	last := inputs[n-1]
	pseudos[n-1] = &pseudoOutput{
		Mask:       lastMask,
		Amount:     last.Amount,
		Output:     last,
		Commitment: curve.ScalarMulBase(lastMask).Add(curve.ScalarMul(amountScalar(last.Amount), curve.HGen())),
	}
	return pseudos
}

// sumMasks folds a list of output masks; assemble uses it for the
// destination side of the balance equation.
func sumMasks(masks []*curve.Scalar) *curve.Scalar {
	sum := curve.ZeroScalar()
	for _, m := range masks {
		sum = sum.Add(m)
	}
	return sum
}
