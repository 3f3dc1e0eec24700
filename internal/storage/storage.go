package storage

import "context"

// Store is the durable view of the wallet's UTXO set and history.
// Every mutating call from a single caller sequence (e.g. the reorg
// recipe) must behave as an uninterruptible sequence from that caller's
// point of view; the in-memory reference achieves that with a single
// mutex, the Postgres implementation with an explicit transaction.
type Store interface {
	PutOutput(ctx context.Context, o *Output) error
	GetOutput(ctx context.Context, keyImage [32]byte) (*Output, bool, error)
	GetOutputs(ctx context.Context, filter OutputFilter) ([]*Output, error)
	DeleteOutputsAbove(ctx context.Context, height uint64) error

	MarkOutputSpent(ctx context.Context, keyImage [32]byte, txHash [32]byte, spentHeight uint64) error
	UnspendOutputsAbove(ctx context.Context, height uint64) error
	SetOutputFrozen(ctx context.Context, keyImage [32]byte, frozen bool) error

	PutTransaction(ctx context.Context, t *Transaction) error
	DeleteTransactionsAbove(ctx context.Context, height uint64) error

	PutBlockHash(ctx context.Context, height uint64, hash string) error
	GetBlockHash(ctx context.Context, height uint64) (string, bool, error)
	DeleteBlockHashesAbove(ctx context.Context, height uint64) error

	Clear(ctx context.Context) error
}

// TransactionalReorg is implemented by durable Store backends that can run
// the four-step reorg recipe inside a single database transaction instead
// of relying on the in-memory store's single-mutex atomicity.
type TransactionalReorg interface {
	ReorgRollbackTx(ctx context.Context, reorgHeight uint64) error
}

// ReorgRollback runs the reorg recipe: every output,
// transaction and block-hash record above reorgHeight is undone, and any
// output spent above reorgHeight is unspent. The whole sequence runs as
// one call so a durable Store can wrap it in a single transaction/lock.
// Stores implementing TransactionalReorg
// get the batch-write path; others (e.g. MemoryStore, already
// single-mutex-atomic) get the four sequential calls.
func ReorgRollback(ctx context.Context, s Store, reorgHeight uint64) error {
	if tr, ok := s.(TransactionalReorg); ok {
		return tr.ReorgRollbackTx(ctx, reorgHeight)
	}
	if err := s.DeleteOutputsAbove(ctx, reorgHeight); err != nil {
		return err
	}
	if err := s.DeleteTransactionsAbove(ctx, reorgHeight); err != nil {
		return err
	}
	if err := s.UnspendOutputsAbove(ctx, reorgHeight); err != nil {
		return err
	}
	if err := s.DeleteBlockHashesAbove(ctx, reorgHeight); err != nil {
		return err
	}
	return nil
}
