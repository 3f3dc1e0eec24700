// Package rpcparser turns a node.Block plus the node's JSON transaction
// bodies into the scanner.CandidateTx shapes session.Sync needs, so
// nothing above session.BlockParser ever touches a wire format. A real
// Salvium daemon speaks a binary portable-storage codec for some calls;
// this parser assumes a node that returns the JSON-shaped equivalents
// (tx_json bodies from get_transactions), the shape the Node interface's
// own doc comments assume throughout.
package rpcparser

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/scanner"
	"github.com/salvium/walletcore/internal/walleterr"
)

// JSONParser implements session.BlockParser against a Node returning
// tx_json bodies from GetTransactions, plus inline miner_tx/protocol_tx
// bodies on the block itself.
type JSONParser struct {
	Node node.Node
}

type outputJSON struct {
	OutputIndex     int    `json:"output_index"`
	TxPubKey        string `json:"tx_pub_key"`
	EphemeralPubKey string `json:"ephemeral_pub_key"`
	OutputPublicKey string `json:"output_public_key"`
	ViewTag         string `json:"view_tag"`
	IsCarrot        bool   `json:"is_carrot"`
	EncryptedAmount string `json:"encrypted_amount"`
	Commitment      string `json:"commitment"`
	AssetType       string `json:"asset_type"`
	IsCoinbase      bool   `json:"is_coinbase"`
}

type txJSON struct {
	TxHash  string       `json:"tx_hash"`
	Outputs []outputJSON `json:"outputs"`
}

// ParseBlock decodes the block's inline miner/protocol transactions and
// fetches the remaining transactions by hash, turning each into a
// scanner.CandidateTx. block.TxHashes is reported by the node in
// transaction order, and that order is preserved here.
func (p *JSONParser) ParseBlock(ctx context.Context, height uint64, block *node.Block) ([]scanner.CandidateTx, error) {
	var out []scanner.CandidateTx

	if block.MinerTx != "" {
		tx, err := decodeTx(block.MinerTx)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if block.ProtocolTx != "" {
		tx, err := decodeTx(block.ProtocolTx)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}

	if len(block.TxHashes) > 0 {
		bodies, err := p.Node.GetTransactions(ctx, block.TxHashes)
		if err != nil {
			return nil, err
		}
		for _, body := range bodies {
			tx, err := decodeTx(body)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
	}
	return out, nil
}

func decodeTx(body string) (scanner.CandidateTx, error) {
	var raw txJSON
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return scanner.CandidateTx{}, walleterr.Wrap(walleterr.ParseError, "decode tx json", err)
	}

	tx := scanner.CandidateTx{
		Outputs: make([]scanner.CandidateOutput, 0, len(raw.Outputs)),
	}
	if h, err := decodeHash32(raw.TxHash); err == nil {
		tx.TxHash = h
	}

	for _, o := range raw.Outputs {
		cand := scanner.CandidateOutput{
			OutputIndex: o.OutputIndex,
			IsCarrot:    o.IsCarrot,
			AssetType:   o.AssetType,
			IsCoinbase:  o.IsCoinbase,
		}
		if o.TxPubKey != "" {
			if k, err := decodeHash32(o.TxPubKey); err == nil {
				cand.TxPubKey = k
			}
		}
		if o.EphemeralPubKey != "" {
			if k, err := decodeHash32(o.EphemeralPubKey); err == nil {
				cand.EphemeralPubKey = k
			}
		}
		if k, err := decodeHash32(o.OutputPublicKey); err == nil {
			cand.OutputPublicKey = k
		} else {
			return scanner.CandidateTx{}, walleterr.Wrap(walleterr.ParseError, "decode output public key", err)
		}
		if o.ViewTag != "" {
			if b, err := hex.DecodeString(o.ViewTag); err == nil {
				cand.ViewTag = b
			}
		}
		if o.EncryptedAmount != "" {
			if b, err := hex.DecodeString(o.EncryptedAmount); err == nil {
				cand.EncryptedAmount = b
			}
		}
		if o.Commitment != "" {
			if k, err := decodeHash32(o.Commitment); err == nil {
				cand.Commitment = k
			}
		}
		tx.Outputs = append(tx.Outputs, cand)
	}
	return tx, nil
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, walleterr.Wrap(walleterr.ParseError, "decode hex", err)
	}
	if len(b) != 32 {
		return out, walleterr.New(walleterr.ParseError, "expected 32-byte hex value")
	}
	copy(out[:], b)
	return out, nil
}
