// Command walletd is the daemon entrypoint: environment-variable
// configuration, a Node RPC connection, a wallet session with a
// background sync loop, and the Gin HTTP/websocket front door.
package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"strings"
	"time"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/api"
	"github.com/salvium/walletcore/internal/mnemonic"
	"github.com/salvium/walletcore/internal/node"
	"github.com/salvium/walletcore/internal/rpcparser"
	"github.com/salvium/walletcore/internal/session"
	"github.com/salvium/walletcore/internal/storage"
)

func main() {
	log.Println("Starting walletd (Salvium-family CryptoNote wallet core)...")

	network := parseNetwork(getEnvOrDefault("WALLET_NETWORK", "mainnet"))
	master := loadMasterSecret()

	store := openStorage()

	n, err := node.Dial(node.RPCConfig{
		Host: requireEnv("NODE_RPC_URL"),
		User: getEnvOrDefault("NODE_RPC_USER", ""),
		Pass: getEnvOrDefault("NODE_RPC_PASS", ""),
	})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to node: %v", err)
	}
	defer n.Shutdown()

	parser := &rpcparser.JSONParser{Node: n}

	startHeight := resumeHeight(store)
	sess := session.Open(master, network, n, store, parser, startHeight)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsHub := api.NewHub()
	go wsHub.Run()
	go api.BridgeEvents(ctx, sess.Events, wsHub)

	go runSyncLoop(ctx, sess)

	r := api.SetupRouter(sess, wsHub)
	port := getEnvOrDefault("PORT", "18338")
	log.Printf("walletd listening on :%s (network=%s)", port, getEnvOrDefault("WALLET_NETWORK", "mainnet"))
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("FATAL: failed to start server: %v", err)
	}
}

// runSyncLoop drives session.Sync on a fixed interval until ctx is
// cancelled.
func runSyncLoop(ctx context.Context, sess *session.Session) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sess.Sync(ctx); err != nil {
				log.Printf("[walletd] sync error: %v", err)
			}
		}
	}
}

// openStorage returns a Postgres-backed Store when WALLET_DATABASE_URL is
// set, otherwise the in-memory reference Store.
func openStorage() storage.Store {
	dbURL := os.Getenv("WALLET_DATABASE_URL")
	if dbURL == "" {
		log.Println("[walletd] WALLET_DATABASE_URL not set, using in-memory storage (not durable across restarts)")
		return storage.NewMemoryStore()
	}
	pg, err := storage.Connect(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to WALLET_DATABASE_URL: %v", err)
	}
	if err := pg.InitSchema(context.Background()); err != nil {
		log.Fatalf("FATAL: failed to initialize wallet schema: %v", err)
	}
	return pg
}

// resumeHeight resumes a sync position from the highest stored block hash
// (session.Open's startHeight doc comment: "the height of the highest
// stored block hash"). Absent any stored block hashes this returns 0 and
// the session syncs from height 1.
func resumeHeight(store storage.Store) uint64 {
	var height uint64
	for {
		if _, ok, err := store.GetBlockHash(context.Background(), height+1); err != nil || !ok {
			break
		}
		height++
	}
	return height
}

// loadMasterSecret resolves the wallet's 32-byte master secret from
// either a 25-word mnemonic or a raw hex seed; at least one of
// WALLET_MNEMONIC/WALLET_SEED_HEX must be set, and WALLET_MNEMONIC takes
// precedence when both are.
func loadMasterSecret() [32]byte {
	if phrase := os.Getenv("WALLET_MNEMONIC"); phrase != "" {
		seed, err := mnemonic.MnemonicToSeed(mnemonic.Split(strings.TrimSpace(phrase)), mnemonic.English)
		if err != nil {
			log.Fatalf("FATAL: WALLET_MNEMONIC invalid: %v", err)
		}
		return seed
	}
	hexSeed := requireEnv("WALLET_SEED_HEX")
	b, err := hex.DecodeString(strings.TrimSpace(hexSeed))
	if err != nil || len(b) != 32 {
		log.Fatalf("FATAL: WALLET_SEED_HEX must be 64 hex characters (32 bytes)")
	}
	var seed [32]byte
	copy(seed[:], b)
	return seed
}

func parseNetwork(s string) address.Network {
	switch strings.ToLower(s) {
	case "testnet":
		return address.Testnet
	case "stagenet":
		return address.Stagenet
	default:
		return address.Mainnet
	}
}

// requireEnv reads a required environment variable and exits if it is not
// set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
