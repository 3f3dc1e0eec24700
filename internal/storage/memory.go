package storage

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory reference Store implementation. All
// operations run under a single mutex so that a multi-step caller
// sequence like ReorgRollback behaves as one atomic step from the
// caller's point of view.
type MemoryStore struct {
	mu           sync.Mutex
	outputs      map[[32]byte]*Output
	transactions map[[32]byte]*Transaction
	blockHashes  map[uint64]string
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outputs:      make(map[[32]byte]*Output),
		transactions: make(map[[32]byte]*Transaction),
		blockHashes:  make(map[uint64]string),
	}
}

func (m *MemoryStore) PutOutput(_ context.Context, o *Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.outputs[o.KeyImage] = &cp
	return nil
}

func (m *MemoryStore) GetOutput(_ context.Context, keyImage [32]byte) (*Output, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[keyImage]
	if !ok {
		return nil, false, nil
	}
	cp := *o
	return &cp, true, nil
}

func (m *MemoryStore) GetOutputs(_ context.Context, filter OutputFilter) ([]*Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Output
	for _, o := range m.outputs {
		if filter.AssetType != "" && o.AssetType != filter.AssetType {
			continue
		}
		if filter.Subaddress != nil && o.Subaddress != *filter.Subaddress {
			continue
		}
		if filter.OnlySpendable && !o.Spendable(filter.TipHeight) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) DeleteOutputsAbove(_ context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, o := range m.outputs {
		if o.BlockHeight > height {
			delete(m.outputs, k)
		}
	}
	return nil
}

func (m *MemoryStore) MarkOutputSpent(_ context.Context, keyImage [32]byte, txHash [32]byte, spentHeight uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[keyImage]
	if !ok {
		return nil
	}
	o.IsSpent = true
	o.SpentTxHash = txHash
	o.SpentHeight = spentHeight
	return nil
}

func (m *MemoryStore) UnspendOutputsAbove(_ context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.outputs {
		if o.IsSpent && o.SpentHeight > height {
			o.IsSpent = false
			o.SpentTxHash = [32]byte{}
			o.SpentHeight = 0
		}
	}
	return nil
}

func (m *MemoryStore) SetOutputFrozen(_ context.Context, keyImage [32]byte, frozen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.outputs[keyImage]; ok {
		o.IsFrozen = frozen
	}
	return nil
}

func (m *MemoryStore) PutTransaction(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transactions[t.TxHash] = &cp
	return nil
}

func (m *MemoryStore) DeleteTransactionsAbove(_ context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.transactions {
		if t.BlockHeight > height {
			delete(m.transactions, k)
		}
	}
	return nil
}

func (m *MemoryStore) PutBlockHash(_ context.Context, height uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockHashes[height] = hash
	return nil
}

func (m *MemoryStore) GetBlockHash(_ context.Context, height uint64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.blockHashes[height]
	return h, ok, nil
}

func (m *MemoryStore) DeleteBlockHashesAbove(_ context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.blockHashes {
		if h > height {
			delete(m.blockHashes, h)
		}
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = make(map[[32]byte]*Output)
	m.transactions = make(map[[32]byte]*Transaction)
	m.blockHashes = make(map[uint64]string)
	return nil
}

var _ Store = (*MemoryStore)(nil)
