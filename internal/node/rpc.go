package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/btcsuite/btcd/rpcclient"

	"github.com/salvium/walletcore/internal/walleterr"
)

// RPCConfig is just enough to dial a JSON-RPC-over-HTTP daemon.
type RPCConfig struct {
	Host string
	User string
	Pass string

	// CallTimeout bounds a single RPC round trip; Retries and RetryDelay
	// default to 2 retries with a 1s delay.
	CallTimeout time.Duration
	Retries     int
	RetryDelay  time.Duration
}

func (c RPCConfig) withDefaults() RPCConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// RPCNode is a Node backed by a generic JSON-RPC client: an
// rpcclient.Client dialed with HTTPPostMode/DisableTLS for a local daemon,
// driven entirely through RawRequest since the node's method set
// (get_info, get_block, ...) has no typed btcjson counterpart.
type RPCNode struct {
	client *rpcclient.Client
	cfg    RPCConfig
}

// Dial connects to the node daemon, verifying reachability with a single
// get_info call before handing the client out.
func Dial(cfg RPCConfig) (*RPCNode, error) {
	cfg = cfg.withDefaults()
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	log.Printf("[node] connecting to %s...", cfg.Host)
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.NetworkError, "dial node", err)
	}

	n := &RPCNode{client: client, cfg: cfg}
	if _, err := n.GetInfo(context.Background()); err != nil {
		client.Shutdown()
		return nil, err
	}
	log.Printf("[node] connected to %s", cfg.Host)
	return n, nil
}

func (n *RPCNode) Shutdown() {
	n.client.Shutdown()
}

// call applies the per-call timeout and bounded retry policy to one RPC.
// An exhausted retry budget surfaces as a network_error. ctx cancellation
// is honored between attempts so the wallet session's cancellation signal
// short-circuits the retry loop.
func (n *RPCNode) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	rawParams := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return walleterr.Wrap(walleterr.Internal, "marshal rpc param", err)
		}
		rawParams[i] = b
	}

	var lastErr error
	attempts := n.cfg.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return walleterr.Wrap(walleterr.Cancelled, "node call cancelled", ctx.Err())
			case <-time.After(n.cfg.RetryDelay):
			}
		}

		resultCh := make(chan struct {
			raw json.RawMessage
			err error
		}, 1)
		go func() {
			raw, err := n.client.RawRequest(method, rawParams)
			resultCh <- struct {
				raw json.RawMessage
				err error
			}{raw, err}
		}()

		select {
		case <-ctx.Done():
			return walleterr.Wrap(walleterr.Cancelled, "node call cancelled", ctx.Err())
		case <-time.After(n.cfg.CallTimeout):
			lastErr = fmt.Errorf("%s: timed out after %s", method, n.cfg.CallTimeout)
			continue
		case res := <-resultCh:
			if res.err != nil {
				lastErr = res.err
				continue
			}
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(res.raw, out); err != nil {
				return walleterr.Wrap(walleterr.ParseError, method+": unmarshal result", err)
			}
			return nil
		}
	}
	return walleterr.Wrap(walleterr.NetworkError, method+": exhausted retries", lastErr)
}

func (n *RPCNode) GetInfo(ctx context.Context) (*Info, error) {
	var res struct {
		Height       uint64 `json:"height"`
		TopBlockHash string `json:"top_block_hash"`
	}
	if err := n.call(ctx, "get_info", nil, &res); err != nil {
		return nil, err
	}
	return &Info{Height: res.Height, TopBlockHash: res.TopBlockHash}, nil
}

func (n *RPCNode) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	var res struct {
		MinerTx    string   `json:"miner_tx"`
		ProtocolTx string   `json:"protocol_tx"`
		TxHashes   []string `json:"tx_hashes"`
	}
	if err := n.call(ctx, "get_block", []interface{}{height}, &res); err != nil {
		return nil, err
	}
	return &Block{MinerTx: res.MinerTx, ProtocolTx: res.ProtocolTx, TxHashes: res.TxHashes}, nil
}

func (n *RPCNode) GetBlockHeadersRange(ctx context.Context, lo, hi uint64) ([]Header, error) {
	var res []Header
	if err := n.call(ctx, "get_block_headers_range", []interface{}{lo, hi}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (n *RPCNode) GetTransactions(ctx context.Context, hashes []string) ([]string, error) {
	var res []string
	if err := n.call(ctx, "get_transactions", []interface{}{hashes}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (n *RPCNode) GetOuts(ctx context.Context, globalIndices []uint64) ([]Out, error) {
	var res []Out
	if err := n.call(ctx, "get_outs", []interface{}{globalIndices}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (n *RPCNode) GetOutputDistribution(ctx context.Context, asset string, start uint64, end *uint64) ([]uint64, error) {
	params := []interface{}{asset, start}
	if end != nil {
		params = append(params, *end)
	}
	var res []uint64
	if err := n.call(ctx, "get_output_distribution", params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (n *RPCNode) GetOutputIndexes(ctx context.Context, txHash string) (*OutputIndexes, error) {
	var res struct {
		Indices          []uint64            `json:"indices"`
		AssetTypeIndices map[string][]uint64 `json:"asset_type_output_indices"`
	}
	if err := n.call(ctx, "get_output_indexes", []interface{}{txHash}, &res); err != nil {
		return nil, err
	}
	return &OutputIndexes{Indices: res.Indices, AssetTypeIndices: res.AssetTypeIndices}, nil
}

func (n *RPCNode) GetTxPool(ctx context.Context) ([]string, error) {
	var res []string
	if err := n.call(ctx, "get_tx_pool", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (n *RPCNode) SendRawTransaction(ctx context.Context, hex string, sourceAssetType string) (*SendResult, error) {
	var res struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	params := []interface{}{hex, map[string]string{"source_asset_type": sourceAssetType}}
	if err := n.call(ctx, "send_raw_transaction", params, &res); err != nil {
		return nil, err
	}
	return &SendResult{Status: res.Status, Reason: res.Reason}, nil
}

func (n *RPCNode) IsKeyImageSpent(ctx context.Context, keyImages []string) ([]bool, error) {
	var raw []int
	if err := n.call(ctx, "is_key_image_spent", []interface{}{keyImages}, &raw); err != nil {
		return nil, err
	}
	out := make([]bool, len(raw))
	for i, v := range raw {
		out[i] = v != 0
	}
	return out, nil
}

var _ Node = (*RPCNode)(nil)
