package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/salvium/walletcore/internal/session"
)

// wireEvent is the JSON shape pushed to websocket subscribers. Output
// records are projected down to their public fields: the stream never
// carries the commitment mask or the carrot shared secret, which are
// spend-side material a dashboard has no business seeing.
type wireEvent struct {
	Type          string `json:"type"`
	CorrelationID string `json:"correlationId,omitempty"`

	KeyImage    string `json:"keyImage,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	AssetType   string `json:"assetType,omitempty"`
	BlockHeight uint64 `json:"blockHeight,omitempty"`

	Height             uint64 `json:"height,omitempty"`
	TipHeight          uint64 `json:"tipHeight,omitempty"`
	BlocksDisconnected int    `json:"blocksDisconnected,omitempty"`
	BlocksConnected    int    `json:"blocksConnected,omitempty"`
}

func toWireEvent(ev session.Event) wireEvent {
	w := wireEvent{Type: string(ev.Kind), CorrelationID: ev.CorrelationID}
	if ev.Output != nil {
		w.KeyImage = hex.EncodeToString(ev.Output.KeyImage[:])
		w.TxHash = hex.EncodeToString(ev.Output.TxHash[:])
		w.Amount = ev.Output.Amount
		w.AssetType = ev.Output.AssetType
		w.BlockHeight = ev.Output.BlockHeight
	}
	if ev.Progress != nil {
		w.Height = ev.Progress.Height
		w.TipHeight = ev.Progress.TipHeight
	}
	if ev.Reorg != nil {
		w.Height = ev.Reorg.Height
		w.BlocksDisconnected = ev.Reorg.BlocksDisconnected
		w.BlocksConnected = ev.Reorg.BlocksConnected
	}
	return w
}

// BridgeEvents subscribes to the wallet session's event feed and
// rebroadcasts every output_received/output_spent/reorg/sync_progress
// event as JSON over the websocket hub. Runs until ctx is cancelled.
func BridgeEvents(ctx context.Context, events *session.Events, wsHub *Hub) {
	ch, cancel := events.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(toWireEvent(ev))
			if err != nil {
				log.Printf("[api] marshal event: %v", err)
				continue
			}
			wsHub.Broadcast(payload)
		}
	}
}
