package chain

import (
	"testing"
	"time"
)

func block(hash, prev string, height uint64, ts int64, difficulty uint64) Block {
	return Block{Hash: hash, PrevHash: prev, Height: height, Timestamp: ts, Weight: 1, Difficulty: difficulty}
}

func TestHandleBlockGenesisAndLinearExtension(t *testing.T) {
	tr := New(nil)
	now := time.Now().Unix()

	if got := tr.HandleBlock(block("g", "", 0, now-100, 1)); got != AddedToMain {
		t.Fatalf("genesis admission = %v, want AddedToMain", got)
	}
	if got := tr.HandleBlock(block("h1", "g", 1, now-90, 1)); got != AddedToMain {
		t.Fatalf("height 1 admission = %v, want AddedToMain", got)
	}
	if got := tr.HandleBlock(block("h1", "g", 1, now-90, 1)); got != AlreadyExists {
		t.Fatalf("re-admitting height 1 = %v, want AlreadyExists", got)
	}
	height, hash, ok := tr.Tip()
	if !ok || height != 1 || hash != "h1" {
		t.Fatalf("Tip() = %d,%s,%v; want 1,h1,true", height, hash, ok)
	}
}

func TestHandleBlockOrphansUnknownParent(t *testing.T) {
	tr := New(nil)
	now := time.Now().Unix()
	tr.HandleBlock(block("g", "", 0, now-100, 1))

	got := tr.HandleBlock(block("dangling", "no-such-parent", 5, now, 1))
	if got != Orphaned {
		t.Fatalf("admission of a block with an unknown parent = %v, want Orphaned", got)
	}
}

func TestHandleBlockRejectsFutureTimestamp(t *testing.T) {
	tr := New(nil)
	now := time.Now().Unix()
	tr.HandleBlock(block("g", "", 0, now-100, 1))

	got := tr.HandleBlock(block("h1", "g", 1, now+FutureTimeLimit+1000, 1))
	if got != Orphaned {
		t.Fatalf("admission of a far-future block = %v, want Orphaned", got)
	}
}

// A side chain that accumulates more cumulative difficulty than the main
// chain must trigger a successful switch and fire onReorg. The
// switch fires as soon as the alt chain's running cumulative difficulty
// overtakes the main chain's, so the alt blocks are admitted as AddedToAlt
// right up until the one that tips the balance.
func TestHandleBlockSwitchesToHeavierAltChain(t *testing.T) {
	var events []ReorgEvent
	tr := New(func(ev ReorgEvent) { events = append(events, ev) })
	now := time.Now().Unix()

	// Main chain: genesis(diff=1) -> a1(diff=3) -> a2(diff=3); cumulative 1,4,7.
	tr.HandleBlock(block("g", "", 0, now-1000, 1))
	tr.HandleBlock(block("a1", "g", 1, now-900, 3))
	tr.HandleBlock(block("a2", "a1", 2, now-800, 3))

	// Alt chain forking at genesis with the same per-block difficulty;
	// cumulative 4, 7, 10 - only the third block exceeds the main chain's 7.
	if got := tr.HandleBlock(block("b1", "g", 1, now-900, 3)); got != AddedToAlt {
		t.Fatalf("first alt block admission = %v, want AddedToAlt", got)
	}
	if got := tr.HandleBlock(block("b2", "b1", 2, now-800, 3)); got != AddedToAlt {
		t.Fatalf("second alt block admission = %v, want AddedToAlt (ties don't switch)", got)
	}
	got := tr.HandleBlock(block("b3", "b2", 3, now-700, 3))
	if got != AddedToMain {
		t.Fatalf("third alt block admission = %v, want AddedToMain (chain switch)", got)
	}

	height, hash, ok := tr.Tip()
	if !ok || height != 3 || hash != "b3" {
		t.Fatalf("Tip() after switch = %d,%s,%v; want 3,b3,true", height, hash, ok)
	}
	if len(events) != 1 {
		t.Fatalf("onReorg fired %d times, want 1", len(events))
	}
	ev := events[0]
	if ev.SplitHeight != 0 || ev.BlocksDisconnected != 2 || ev.BlocksConnected != 3 {
		t.Fatalf("ReorgEvent = %+v, want split=0 disconnected=2 connected=3", ev)
	}
}

func TestMarkInvalidOrphansDescendants(t *testing.T) {
	tr := New(nil)
	now := time.Now().Unix()
	tr.HandleBlock(block("g", "", 0, now-100, 1))
	tr.MarkInvalid("bad-parent")

	got := tr.HandleBlock(block("child", "bad-parent", 1, now, 1))
	if got != Orphaned {
		t.Fatalf("admission of a child of a known-invalid block = %v, want Orphaned", got)
	}
}
