package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/scanner"
	"github.com/salvium/walletcore/internal/storage"
)

// fakeNode is a minimal, in-memory node.Node backed by a slice of headers
// indexed by height, enough to drive Sync's control flow without a real
// RPC transport.
type fakeNode struct {
	headers []node.Header
}

func newFakeNode(hashes ...string) *fakeNode {
	n := &fakeNode{}
	for i, h := range hashes {
		n.headers = append(n.headers, node.Header{Height: uint64(i), Hash: h, Timestamp: int64(i)})
	}
	return n
}

func (n *fakeNode) GetInfo(ctx context.Context) (*node.Info, error) {
	top := n.headers[len(n.headers)-1]
	return &node.Info{Height: top.Height, TopBlockHash: top.Hash}, nil
}

func (n *fakeNode) GetBlock(ctx context.Context, height uint64) (*node.Block, error) {
	return &node.Block{}, nil
}

func (n *fakeNode) GetBlockHeadersRange(ctx context.Context, lo, hi uint64) ([]node.Header, error) {
	var out []node.Header
	for _, h := range n.headers {
		if h.Height >= lo && h.Height <= hi {
			out = append(out, h)
		}
	}
	return out, nil
}

func (n *fakeNode) GetTransactions(ctx context.Context, hashes []string) ([]string, error) {
	return nil, nil
}
func (n *fakeNode) GetOuts(ctx context.Context, globalIndices []uint64) ([]node.Out, error) {
	return nil, nil
}
func (n *fakeNode) GetOutputDistribution(ctx context.Context, asset string, start uint64, end *uint64) ([]uint64, error) {
	return nil, nil
}
func (n *fakeNode) GetOutputIndexes(ctx context.Context, txHash string) (*node.OutputIndexes, error) {
	return nil, nil
}
func (n *fakeNode) GetTxPool(ctx context.Context) ([]string, error) { return nil, nil }
func (n *fakeNode) SendRawTransaction(ctx context.Context, hex string, sourceAssetType string) (*node.SendResult, error) {
	return &node.SendResult{Status: "OK"}, nil
}
func (n *fakeNode) IsKeyImageSpent(ctx context.Context, keyImages []string) ([]bool, error) {
	return nil, nil
}

var _ node.Node = (*fakeNode)(nil)

// emptyParser returns no candidate outputs for every block, so Sync's
// height bookkeeping can be tested independent of the scanner pipeline.
type emptyParser struct{}

func (emptyParser) ParseBlock(ctx context.Context, height uint64, block *node.Block) ([]scanner.CandidateTx, error) {
	return nil, nil
}

func testWalletMaster(seed byte) [32]byte {
	var m [32]byte
	for i := range m {
		m[i] = seed + byte(i)
	}
	return m
}

func TestSyncAdvancesHeightAndRecordsBlockHashes(t *testing.T) {
	ctx := context.Background()
	n := newFakeNode("h0", "h1", "h2", "h3")
	store := storage.NewMemoryStore()
	s := Open(testWalletMaster(1), address.Testnet, n, store, emptyParser{}, 0)

	result, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.BlocksRead != 3 {
		t.Errorf("BlocksRead = %d, want 3 (heights 1..3)", result.BlocksRead)
	}
	if s.Height() != 3 {
		t.Errorf("Height() = %d, want 3", s.Height())
	}

	// startHeight (0) is the wallet's pre-existing sync position and is
	// never itself fetched/stored; only heights after it are.
	for h := uint64(1); h <= 3; h++ {
		got, ok, err := store.GetBlockHash(ctx, h)
		if err != nil || !ok {
			t.Fatalf("GetBlockHash(%d): ok=%v err=%v", h, ok, err)
		}
		want := fmt.Sprintf("h%d", h)
		if got != want {
			t.Errorf("GetBlockHash(%d) = %q, want %q", h, got, want)
		}
	}
}

func TestSyncDetectsReorgAndRollsBack(t *testing.T) {
	ctx := context.Background()
	n := newFakeNode("h0", "h1", "h2")
	store := storage.NewMemoryStore()
	s := Open(testWalletMaster(2), address.Testnet, n, store, emptyParser{}, 0)

	if _, err := s.Sync(ctx); err != nil {
		t.Fatalf("initial Sync: %v", err)
	}
	if s.Height() != 2 {
		t.Fatalf("Height() after initial sync = %d, want 2", s.Height())
	}

	var reorgEvents []Event
	sub, cancel := s.Events.Subscribe()
	defer cancel()
	go func() {
		for ev := range sub {
			if ev.Kind == EventReorg {
				reorgEvents = append(reorgEvents, ev)
			}
		}
	}()

	// The node now reports a different hash at height 2: a one-block reorg.
	n.headers[2].Hash = "h2-replaced"
	n.headers = append(n.headers, node.Header{Height: 3, Hash: "h3-new", Timestamp: 3})

	result, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync after reorg: %v", err)
	}
	if result.ReorgAt == nil || *result.ReorgAt != 1 {
		t.Fatalf("ReorgAt = %v, want pointer to 1 (rollback to the last agreeing height)", result.ReorgAt)
	}
	if s.Height() != 3 {
		t.Fatalf("Height() after reorg resync = %d, want 3", s.Height())
	}

	got, ok, err := store.GetBlockHash(ctx, 2)
	if err != nil || !ok || got != "h2-replaced" {
		t.Fatalf("GetBlockHash(2) after reorg = %q, %v, %v; want h2-replaced, true, nil", got, ok, err)
	}
}

func TestGetBalanceSumsUnspentOutputs(t *testing.T) {
	ctx := context.Background()
	n := newFakeNode("h0")
	store := storage.NewMemoryStore()
	s := Open(testWalletMaster(3), address.Testnet, n, store, emptyParser{}, 0)

	var ki1, ki2 [32]byte
	ki1[0], ki2[0] = 1, 2
	if err := store.PutOutput(ctx, &storage.Output{KeyImage: ki1, Amount: 100, AssetType: "SAL"}); err != nil {
		t.Fatalf("PutOutput: %v", err)
	}
	if err := store.PutOutput(ctx, &storage.Output{KeyImage: ki2, Amount: 50, AssetType: "SAL", IsSpent: true}); err != nil {
		t.Fatalf("PutOutput: %v", err)
	}

	bal, err := s.GetBalance(ctx, "SAL")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Total != 100 {
		t.Errorf("Total = %d, want 100 (spent output excluded)", bal.Total)
	}
	if bal.Outputs != 1 {
		t.Errorf("Outputs = %d, want 1", bal.Outputs)
	}
}
