package core

import (
	"encoding/hex"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raid-guild/x402-paygate-go/types"
)

var replayMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "x402_replay_cache",
		Help: "",
	},
	[]string{
		"result",
	},
)

// ReplayGuard enforces at-most-once use of a verified payment payload.
// Entries expire after the requirement's validity window, so the cache
// never grows past the set of payments still inside their window.
type ReplayGuard struct {
	mu    sync.Mutex
	cache *cache.Cache[string, struct{}]
	ttl   time.Duration
}

// NewReplayGuard creates a replay guard whose entries live for ttl.
func NewReplayGuard(ttl time.Duration) *ReplayGuard {
	return &ReplayGuard{
		cache: cache.New[string, struct{}](),
		ttl:   ttl,
	}
}

// Remember records the payload and reports whether it was already seen.
// Check and insert happen under a single lock so two concurrent
// resubmissions of the same payload cannot both pass.
func (g *ReplayGuard) Remember(p types.PaymentPayload) bool {
	key := replayKey(p)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.cache.Get(key); ok {
		replayMetrics.WithLabelValues("replayed").Inc()
		return true
	}

	g.cache.Set(key, struct{}{}, cache.WithExpiration(g.ttl))
	replayMetrics.WithLabelValues("recorded").Inc()
	return false
}

// replayKey keys the cache by transaction hash when present, falling back
// to a hash of the signature for payloads submitted before broadcast.
func replayKey(p types.PaymentPayload) string {
	if p.TxHash != "" {
		return p.TxHash
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(p.Signature)))
}
