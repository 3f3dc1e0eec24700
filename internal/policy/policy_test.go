package policy

import (
	"testing"

	"github.com/salvium/walletcore/internal/address"
)

// Three heights on testnet walk through the fork table and land on the
// expected policy row.
func TestResolveTestnetScenario(t *testing.T) {
	cases := []struct {
		height uint64
		want   Policy
	}{
		{100, Policy{HFVersion: 1, TxVersion: 2, RCT: RCTBulletproofPlus, Sig: SigCLSAG, AssetType: "SAL", CarrotActive: false}},
		{815, Policy{HFVersion: 6, TxVersion: 3, RCT: RCTSalviumZero, Sig: SigCLSAG, AssetType: "SAL1", CarrotActive: false}},
		{1100, Policy{HFVersion: 10, TxVersion: 4, RCT: RCTSalviumOne, Sig: SigTCLSAG, AssetType: "SAL1", CarrotActive: true}},
	}
	for _, c := range cases {
		got := Resolve(c.height, address.Testnet, TxTransfer)
		if got != c.want {
			t.Errorf("Resolve(%d) = %+v, want %+v", c.height, got, c.want)
		}
	}
}

func TestResolveNonTransferTxVersion(t *testing.T) {
	pre10 := Resolve(900, address.Testnet, TxStake)
	if pre10.TxVersion != 2 {
		t.Errorf("pre-HF10 stake tx version = %d, want 2", pre10.TxVersion)
	}
	post10 := Resolve(1100, address.Testnet, TxBurn)
	if post10.TxVersion != 4 {
		t.Errorf("post-HF10 burn tx version = %d, want 4", post10.TxVersion)
	}
}

func TestResolveMainnetUsesWiderSchedule(t *testing.T) {
	// At the testnet HF6 height, mainnet has not yet forked (10x schedule).
	got := Resolve(815, address.Mainnet, TxTransfer)
	if got.HFVersion != 1 {
		t.Errorf("mainnet HF at height 815 = %d, want still 1 (HF6 only activates at 8150)", got.HFVersion)
	}
	got = Resolve(8150, address.Mainnet, TxTransfer)
	if got.HFVersion != 6 || got.AssetType != "SAL1" {
		t.Errorf("mainnet at height 8150 = %+v, want HF6/SAL1", got)
	}
}

func TestResolveBelowFirstFork(t *testing.T) {
	got := Resolve(0, address.Testnet, TxTransfer)
	if got.HFVersion != 1 {
		t.Errorf("Resolve(0) HF = %d, want 1 (table has no row below height 1)", got.HFVersion)
	}
}
