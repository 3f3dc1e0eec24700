package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable Store backend: pgxpool for pooling, a
// schema file executed once at startup, and explicit
// Begin/Rollback/Commit for any write that must appear atomic to a caller
// (here, ReorgRollback's four-step sequence).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	log.Println("[storage] connected to PostgreSQL wallet store")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql once at startup.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/storage/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	log.Println("[storage] wallet schema initialized")
	return nil
}

func (s *PostgresStore) PutOutput(ctx context.Context, o *Output) error {
	const q = `
		INSERT INTO wallet_outputs
			(key_image, tx_hash, output_index, tx_pub_key, output_public_key, amount, mask,
			 commitment, subaddr_major, subaddr_minor, is_carrot, carrot_shared_secret,
			 encrypted_anchor, asset_type, block_height, unlock_height, global_index,
			 is_spent, spent_tx_hash, spent_height, is_frozen)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (key_image) DO UPDATE SET
			amount = EXCLUDED.amount, mask = EXCLUDED.mask, commitment = EXCLUDED.commitment,
			global_index = EXCLUDED.global_index, is_spent = EXCLUDED.is_spent,
			spent_tx_hash = EXCLUDED.spent_tx_hash, spent_height = EXCLUDED.spent_height,
			is_frozen = EXCLUDED.is_frozen;
	`
	var spentTxHash []byte
	if o.IsSpent {
		spentTxHash = o.SpentTxHash[:]
	}
	_, err := s.pool.Exec(ctx, q,
		o.KeyImage[:], o.TxHash[:], o.OutputIndex, o.TxPubKey[:], o.OutputPublicKey[:],
		o.Amount, o.Mask[:], o.Commitment[:], o.Subaddress.Major, o.Subaddress.Minor,
		o.IsCarrot, o.CarrotSharedSecret, o.EncryptedAnchor, o.AssetType, o.BlockHeight,
		o.UnlockHeight, nullableGlobalIndex(o.GlobalIndex), o.IsSpent, spentTxHash,
		nullableHeight(o.IsSpent, o.SpentHeight), o.IsFrozen,
	)
	return err
}

func nullableGlobalIndex(v *uint64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableHeight(set bool, v uint64) any {
	if !set {
		return nil
	}
	return v
}

func (s *PostgresStore) GetOutput(ctx context.Context, keyImage [32]byte) (*Output, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT
		key_image, tx_hash, output_index, tx_pub_key, output_public_key, amount, mask,
		commitment, subaddr_major, subaddr_minor, is_carrot, carrot_shared_secret,
		encrypted_anchor, asset_type, block_height, unlock_height, global_index,
		is_spent, spent_tx_hash, spent_height, is_frozen
		FROM wallet_outputs WHERE key_image = $1`, keyImage[:])
	o, err := scanOutput(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutput(row rowScanner) (*Output, error) {
	var o Output
	var keyImage, txHash, txPubKey, outPubKey, mask, commitment []byte
	var carrotSecret, encAnchor, spentTxHash []byte
	var globalIndex, spentHeight *uint64
	err := row.Scan(
		&keyImage, &txHash, &o.OutputIndex, &txPubKey, &outPubKey, &o.Amount, &mask,
		&commitment, &o.Subaddress.Major, &o.Subaddress.Minor, &o.IsCarrot, &carrotSecret,
		&encAnchor, &o.AssetType, &o.BlockHeight, &o.UnlockHeight, &globalIndex,
		&o.IsSpent, &spentTxHash, &spentHeight, &o.IsFrozen,
	)
	if err != nil {
		return nil, err
	}
	copy(o.KeyImage[:], keyImage)
	copy(o.TxHash[:], txHash)
	copy(o.TxPubKey[:], txPubKey)
	copy(o.OutputPublicKey[:], outPubKey)
	copy(o.Mask[:], mask)
	copy(o.Commitment[:], commitment)
	o.CarrotSharedSecret = carrotSecret
	o.EncryptedAnchor = encAnchor
	o.GlobalIndex = globalIndex
	if spentTxHash != nil {
		copy(o.SpentTxHash[:], spentTxHash)
	}
	if spentHeight != nil {
		o.SpentHeight = *spentHeight
	}
	return &o, nil
}

func (s *PostgresStore) GetOutputs(ctx context.Context, filter OutputFilter) ([]*Output, error) {
	q := `SELECT
		key_image, tx_hash, output_index, tx_pub_key, output_public_key, amount, mask,
		commitment, subaddr_major, subaddr_minor, is_carrot, carrot_shared_secret,
		encrypted_anchor, asset_type, block_height, unlock_height, global_index,
		is_spent, spent_tx_hash, spent_height, is_frozen
		FROM wallet_outputs WHERE ($1 = '' OR asset_type = $1)`
	rows, err := s.pool.Query(ctx, q, filter.AssetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Output
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		if filter.Subaddress != nil && o.Subaddress != *filter.Subaddress {
			continue
		}
		if filter.OnlySpendable && !o.Spendable(filter.TipHeight) {
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteOutputsAbove(ctx context.Context, height uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wallet_outputs WHERE block_height > $1`, height)
	return err
}

func (s *PostgresStore) MarkOutputSpent(ctx context.Context, keyImage [32]byte, txHash [32]byte, spentHeight uint64) error {
	_, err := s.pool.Exec(ctx, `UPDATE wallet_outputs SET is_spent = TRUE, spent_tx_hash = $2, spent_height = $3 WHERE key_image = $1`,
		keyImage[:], txHash[:], spentHeight)
	return err
}

func (s *PostgresStore) UnspendOutputsAbove(ctx context.Context, height uint64) error {
	_, err := s.pool.Exec(ctx, `UPDATE wallet_outputs SET is_spent = FALSE, spent_tx_hash = NULL, spent_height = NULL
		WHERE is_spent = TRUE AND spent_height > $1`, height)
	return err
}

func (s *PostgresStore) SetOutputFrozen(ctx context.Context, keyImage [32]byte, frozen bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE wallet_outputs SET is_frozen = $2 WHERE key_image = $1`,
		keyImage[:], frozen)
	return err
}

func (s *PostgresStore) PutTransaction(ctx context.Context, t *Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallet_transactions (tx_hash, block_height, direction, amount, fee, ts)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tx_hash) DO UPDATE SET
			block_height = EXCLUDED.block_height, direction = EXCLUDED.direction,
			amount = EXCLUDED.amount, fee = EXCLUDED.fee, ts = EXCLUDED.ts`,
		t.TxHash[:], t.BlockHeight, int(t.Direction), t.Amount, t.Fee, t.Timestamp)
	return err
}

func (s *PostgresStore) DeleteTransactionsAbove(ctx context.Context, height uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wallet_transactions WHERE block_height > $1`, height)
	return err
}

func (s *PostgresStore) PutBlockHash(ctx context.Context, height uint64, hash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallet_block_hashes (height, hash) VALUES ($1,$2)
		ON CONFLICT (height) DO UPDATE SET hash = EXCLUDED.hash`, height, hash)
	return err
}

func (s *PostgresStore) GetBlockHash(ctx context.Context, height uint64) (string, bool, error) {
	var h string
	err := s.pool.QueryRow(ctx, `SELECT hash FROM wallet_block_hashes WHERE height = $1`, height).Scan(&h)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return h, true, nil
}

func (s *PostgresStore) DeleteBlockHashesAbove(ctx context.Context, height uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wallet_block_hashes WHERE height > $1`, height)
	return err
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	// Runs as a single transaction so a caller never observes a partially
	// wiped store.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range []string{
		`TRUNCATE wallet_outputs`,
		`TRUNCATE wallet_transactions`,
		`TRUNCATE wallet_block_hashes`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ReorgRollbackTx runs the reorg recipe as one transaction, giving
// ReorgRollback a true batch-write path instead of four separate
// round-trips each visible to a concurrent reader.
func (s *PostgresStore) ReorgRollbackTx(ctx context.Context, reorgHeight uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM wallet_outputs WHERE block_height > $1`, reorgHeight); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM wallet_transactions WHERE block_height > $1`, reorgHeight); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallet_outputs SET is_spent = FALSE, spent_tx_hash = NULL, spent_height = NULL
		WHERE is_spent = TRUE AND spent_height > $1`, reorgHeight); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM wallet_block_hashes WHERE height > $1`, reorgHeight); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ Store = (*PostgresStore)(nil)
var _ TransactionalReorg = (*PostgresStore)(nil)
