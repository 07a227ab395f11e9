package core

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raid-guild/x402-paygate-go/types"
)

func TestReplayGuard(t *testing.T) {

	t.Run("second submission is flagged", func(t *testing.T) {
		guard := NewReplayGuard(time.Minute)
		p := types.PaymentPayload{TxHash: "0xaaa", Signature: "0xsig"}

		require.False(t, guard.Remember(p))
		require.True(t, guard.Remember(p))
	})

	t.Run("distinct payloads are independent", func(t *testing.T) {
		guard := NewReplayGuard(time.Minute)

		require.False(t, guard.Remember(types.PaymentPayload{TxHash: "0xaaa"}))
		require.False(t, guard.Remember(types.PaymentPayload{TxHash: "0xbbb"}))
	})

	t.Run("falls back to the signature when no tx hash", func(t *testing.T) {
		guard := NewReplayGuard(time.Minute)

		require.False(t, guard.Remember(types.PaymentPayload{Signature: "0xsig"}))
		require.True(t, guard.Remember(types.PaymentPayload{Signature: "0xsig"}))
		require.False(t, guard.Remember(types.PaymentPayload{Signature: "0xother"}))
	})

	t.Run("exactly one of many concurrent submissions passes", func(t *testing.T) {
		guard := NewReplayGuard(time.Minute)
		p := types.PaymentPayload{TxHash: "0xccc"}

		const workers = 16
		var wg sync.WaitGroup
		results := make(chan bool, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- guard.Remember(p)
			}()
		}
		wg.Wait()
		close(results)

		passed := 0
		for replayed := range results {
			if !replayed {
				passed++
			}
		}
		require.Equal(t, 1, passed)
	})

	t.Run("entries expire after the ttl", func(t *testing.T) {
		guard := NewReplayGuard(10 * time.Millisecond)
		p := types.PaymentPayload{TxHash: "0xddd"}

		require.False(t, guard.Remember(p))
		time.Sleep(20 * time.Millisecond)
		require.False(t, guard.Remember(p))
	})
}

func TestReplayKey(t *testing.T) {
	withHash := types.PaymentPayload{TxHash: "0xaaa", Signature: "0xsig"}
	require.Equal(t, "0xaaa", replayKey(withHash))

	withoutHash := types.PaymentPayload{Signature: "0xsig"}
	key := replayKey(withoutHash)
	require.NotEmpty(t, key)
	require.NotEqual(t, "0xsig", key, fmt.Sprintf("signature must be hashed, got %s", key))
}
