// Package chain implements the alt-chain store and chain-switching logic:
// the wallet tracks block hashes per height purely to detect reorgs (it is
// not a consensus validator), but still needs the same "is this the new
// best chain" bookkeeping a full node does, scaled down to what a light
// wallet can observe from Node.
package chain

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// The CryptoNote family's published consensus constants; a wallet talking
// to a real node must agree with it on these.
const (
	// BlockchainTimestampCheckWindow is the median window a newly admitted
	// main-chain block's timestamp must exceed.
	BlockchainTimestampCheckWindow = 60
	// DifficultyTargetV2 is the target seconds-per-block used to convert
	// the alt-block livetime into a block-count pruning depth.
	DifficultyTargetV2 = 120
	// MempoolTxFromAltBlockLivetime is how long (seconds) an alt block is
	// kept before being pruned: 7 days, matching the family's mempool
	// transaction-livetime convention.
	MempoolTxFromAltBlockLivetime = 7 * 24 * 60 * 60
	// FutureTimeLimit bounds how far into the future an admitted block's
	// timestamp may sit.
	FutureTimeLimit = 2 * 60 * 60
)

// PruneDepth is the number of blocks behind tip beyond which alt blocks
// are discarded.
const PruneDepth = MempoolTxFromAltBlockLivetime / DifficultyTargetV2

// Block is a block header as seen by the chain tracker; enough to decide
// admission and ordering, not a full consensus payload.
type Block struct {
	Hash       string
	PrevHash   string
	Height     uint64
	Timestamp  int64
	Weight     uint64
	Difficulty uint64 // this block's own proof-of-work difficulty
}

// mainEntry is one (height, timestamp, cumulative_difficulty, weight, hash)
// row of the main chain. height is carried explicitly rather than
// implied by slice position: a resumed
// wallet bootstraps the tracker at whatever height it starts syncing from,
// not necessarily 0, so position and real chain height are not the same
// number.
type mainEntry struct {
	height               uint64
	timestamp            int64
	cumulativeDifficulty uint64
	weight               uint64
	hash                 string
}

// AltRecord is an alternative (non-main) chain block.
type AltRecord struct {
	Block                Block
	Hash                 string
	Height               uint64
	Weight               uint64
	CumulativeDifficulty uint64
}

// Result is the outcome of HandleBlock.
type Result int

const (
	AlreadyExists Result = iota
	Orphaned
	AddedToMain
	AddedToAlt
)

func (r Result) String() string {
	switch r {
	case AlreadyExists:
		return "already_exists"
	case Orphaned:
		return "orphaned"
	case AddedToMain:
		return "added_to_main"
	case AddedToAlt:
		return "added_to_alt"
	default:
		return "unknown"
	}
}

// ReorgEvent is emitted to the wallet session on a successful chain
// switch.
type ReorgEvent struct {
	SplitHeight        uint64
	OldHeight          uint64
	NewHeight          uint64
	BlocksDisconnected int
	BlocksConnected    int
}

// Tracker holds the main chain, the alt-block map, and known-invalid
// hashes. All mutating methods are safe for concurrent use, the
// same single-mutex discipline the storage package uses for ReorgRollback.
type Tracker struct {
	mu sync.Mutex

	main       []mainEntry             // index 0 is the tracker's root block
	altBySplit map[string][]*AltRecord // keyed by the hash of the parent of the earliest alt entry, appended in height order
	altByHash  map[string]*AltRecord
	invalid    map[string]bool

	onReorg func(ReorgEvent)
}

// New creates an empty Tracker. onReorg (may be nil) receives a
// ReorgEvent whenever a chain switch succeeds.
func New(onReorg func(ReorgEvent)) *Tracker {
	return &Tracker{
		altBySplit: make(map[string][]*AltRecord),
		altByHash:  make(map[string]*AltRecord),
		invalid:    make(map[string]bool),
		onReorg:    onReorg,
	}
}

// Tip returns the main chain's current height and hash, or false if empty.
func (t *Tracker) Tip() (height uint64, hash string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tipLocked()
}

// lastCumLocked returns the cumulative difficulty of the current tip, or 0
// if the tracker is still empty.
func (t *Tracker) lastCumLocked() uint64 {
	if len(t.main) == 0 {
		return 0
	}
	return t.main[len(t.main)-1].cumulativeDifficulty
}

// HandleBlock runs the block-admission decision table.
func (t *Tracker) HandleBlock(b Block) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inMainLocked(b.Hash) || t.altByHash[b.Hash] != nil {
		return AlreadyExists
	}
	if t.invalid[b.Hash] || t.invalid[b.PrevHash] {
		t.invalid[b.Hash] = true
		return Orphaned
	}

	_, tipHash, haveTip := t.tipLocked()
	if haveTip && b.PrevHash == tipHash {
		if !t.timestampOKLocked(b.Timestamp) {
			t.invalid[b.Hash] = true
			log.Printf("[chain] rejecting block %s at height %d: timestamp out of range", b.Hash, b.Height)
			return Orphaned
		}
		t.main = append(t.main, mainEntry{
			height:               b.Height,
			timestamp:            b.Timestamp,
			cumulativeDifficulty: t.lastCumLocked() + b.Difficulty,
			weight:               b.Weight,
			hash:                 b.Hash,
		})
		return AddedToMain
	}

	// A light wallet never replays a chain from true genesis: whatever
	// block it hands the tracker first (height 0 on a fresh wallet, or a
	// resumed wallet's starting height) is trusted as the tracker's own
	// root, since there is nothing earlier in its view to compare it to.
	if !haveTip {
		t.main = append(t.main, mainEntry{
			height:               b.Height,
			timestamp:            b.Timestamp,
			cumulativeDifficulty: b.Difficulty,
			weight:               b.Weight,
			hash:                 b.Hash,
		})
		return AddedToMain
	}

	if t.parentKnownLocked(b.PrevHash) {
		rec := t.extendAltLocked(b)
		if rec.CumulativeDifficulty > t.lastCumLocked() {
			if t.switchToAltLocked(rec) {
				return AddedToMain
			}
		}
		return AddedToAlt
	}

	return Orphaned
}

func (t *Tracker) tipLocked() (uint64, string, bool) {
	if len(t.main) == 0 {
		return 0, "", false
	}
	last := t.main[len(t.main)-1]
	return last.height, last.hash, true
}

func (t *Tracker) inMainLocked(hash string) bool {
	for _, e := range t.main {
		if e.hash == hash {
			return true
		}
	}
	return false
}

func (t *Tracker) parentKnownLocked(hash string) bool {
	return t.inMainLocked(hash) || t.altByHash[hash] != nil
}

// timestampOKLocked validates against the median of the last
// BlockchainTimestampCheckWindow timestamps and the future limit.
func (t *Tracker) timestampOKLocked(ts int64) bool {
	now := time.Now().Unix()
	if ts > now+FutureTimeLimit {
		return false
	}
	n := len(t.main)
	if n == 0 {
		return true
	}
	window := BlockchainTimestampCheckWindow
	if window > n {
		window = n
	}
	samples := make([]int64, window)
	for i := 0; i < window; i++ {
		samples[i] = t.main[n-window+i].timestamp
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	median := samples[len(samples)/2]
	return ts > median
}

// extendAltLocked builds or extends the alt-chain record rooted at the
// split point, carrying cumulative difficulty forward from the parent
// record or the main-chain ancestor.
func (t *Tracker) extendAltLocked(b Block) *AltRecord {
	var parentCum uint64
	if parent := t.altByHash[b.PrevHash]; parent != nil {
		parentCum = parent.CumulativeDifficulty
	} else {
		parentCum = t.cumulativeDifficultyAtHashLocked(b.PrevHash)
	}

	rec := &AltRecord{
		Block:                b,
		Hash:                 b.Hash,
		Height:               b.Height,
		Weight:               b.Weight,
		CumulativeDifficulty: parentCum + b.Difficulty,
	}
	t.altByHash[b.Hash] = rec

	split := t.splitHashLocked(rec)
	t.altBySplit[split] = append(t.altBySplit[split], rec)
	return rec
}

func (t *Tracker) cumulativeDifficultyAtHashLocked(hash string) uint64 {
	for _, e := range t.main {
		if e.hash == hash {
			return e.cumulativeDifficulty
		}
	}
	return 0
}

// splitHashLocked walks an alt record's ancestry back to the first
// ancestor present in the main chain, returning that ancestor's hash.
func (t *Tracker) splitHashLocked(rec *AltRecord) string {
	cur := rec
	for {
		if parent := t.altByHash[cur.Block.PrevHash]; parent != nil && parent != rec {
			cur = parent
			continue
		}
		return cur.Block.PrevHash
	}
}

// switchToAltLocked reorganizes onto the winning alt chain. It returns
// true on success; on failure it has already rolled back and the main
// chain is unchanged.
func (t *Tracker) switchToAltLocked(winning *AltRecord) bool {
	splitHash := t.splitHashLocked(winning)
	splitHeight, ok := t.heightOfLocked(splitHash)
	if !ok {
		return false
	}

	_, _, haveTip := t.tipLocked()
	oldHeight := uint64(0)
	if haveTip {
		oldHeight = t.main[len(t.main)-1].height
	}

	// Step 1: pop main-chain blocks above the split point, newest first.
	popped := make([]mainEntry, 0, len(t.main))
	for len(t.main) > 0 && t.main[len(t.main)-1].height > splitHeight {
		last := t.main[len(t.main)-1]
		popped = append(popped, last)
		t.main = t.main[:len(t.main)-1]
	}

	chain := t.altBySplit[splitHash]
	sort.Slice(chain, func(i, j int) bool { return chain[i].Height < chain[j].Height })

	applied := 0
	for _, rec := range chain {
		if rec.Height > winning.Height {
			break
		}
		t.main = append(t.main, mainEntry{
			height:               rec.Height,
			timestamp:            rec.Block.Timestamp,
			cumulativeDifficulty: t.lastCumLocked() + rec.Block.Difficulty,
			weight:               rec.Weight,
			hash:                 rec.Hash,
		})
		applied++
	}

	if applied != len(chain) {
		// Rollback: discard what we applied, restore popped blocks in
		// original order.
		t.main = t.main[:len(t.main)-applied]
		for i := len(popped) - 1; i >= 0; i-- {
			t.main = append(t.main, popped[i])
		}
		return false
	}

	// Step 3: the popped main blocks become the minority fork; remove the
	// now-applied alt records.
	for _, p := range popped {
		t.altByHash[p.hash] = &AltRecord{
			Block:                Block{Hash: p.hash},
			Hash:                 p.hash,
			CumulativeDifficulty: p.cumulativeDifficulty,
			Weight:               p.weight,
		}
	}
	for _, rec := range chain {
		delete(t.altByHash, rec.Hash)
	}
	delete(t.altBySplit, splitHash)

	newHeight := uint64(0)
	if len(t.main) > 0 {
		newHeight = t.main[len(t.main)-1].height
	}
	event := ReorgEvent{
		SplitHeight:        splitHeight,
		OldHeight:          oldHeight,
		NewHeight:          newHeight,
		BlocksDisconnected: len(popped),
		BlocksConnected:    applied,
	}
	log.Printf("[chain] switched chains: split=%d old_height=%d new_height=%d disconnected=%d connected=%d",
		event.SplitHeight, event.OldHeight, event.NewHeight, event.BlocksDisconnected, event.BlocksConnected)
	if t.onReorg != nil {
		t.onReorg(event)
	}
	return true
}

func (t *Tracker) heightOfLocked(hash string) (uint64, bool) {
	for _, e := range t.main {
		if e.hash == hash {
			return e.height, true
		}
	}
	return 0, false
}

// PruneAltBlocks discards alt-chain records more than PruneDepth blocks
// behind the current tip.
func (t *Tracker) PruneAltBlocks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	tipHeight, _, ok := t.tipLocked()
	if !ok || tipHeight < PruneDepth {
		return
	}
	cutoff := tipHeight - PruneDepth
	for split, chain := range t.altBySplit {
		kept := chain[:0]
		for _, rec := range chain {
			if rec.Height < cutoff {
				delete(t.altByHash, rec.Hash)
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(t.altBySplit, split)
		} else {
			t.altBySplit[split] = kept
		}
	}
}

// MarkInvalid records hash as known-invalid, the way a node would after a
// consensus validation failure surfaces through the Node interface.
func (t *Tracker) MarkInvalid(hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invalid[hash] = true
}

// RollbackTo truncates the main chain down to height (inclusive) and
// discards all alt-chain bookkeeping. This is the tracker-side mirror of
// storage.ReorgRollback: a caller that detects a reorg by comparing stored
// block hashes against the node (rather than through HandleBlock's own
// cumulative-difficulty switch) must rewind the tracker the same way it
// rewinds storage, or the tracker keeps treating the replacement blocks it
// is handed next as a competing alt chain instead of a linear extension.
func (t *Tracker) RollbackTo(height uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.main[:0]
	for _, e := range t.main {
		if e.height > height {
			break
		}
		kept = append(kept, e)
	}
	t.main = kept
	t.altBySplit = make(map[string][]*AltRecord)
	t.altByHash = make(map[string]*AltRecord)
}

// String implements fmt.Stringer for debugging/logging.
func (t *Tracker) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("chain.Tracker{main=%d alt_chains=%d invalid=%d}", len(t.main), len(t.altBySplit), len(t.invalid))
}
