package xjob_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisey/telekit/pkg/jobs/xjob"
)

func TestIdempotencyGuard_Claim(t *testing.T) {
	m, reader := newTestMetrics(t, "idem-service")
	guard := xjob.NewIdempotencyGuard(m)
	ctx := context.Background()

	key := xjob.NewKey()

	// 首次认领登记任务 ID
	jobID, dup, err := guard.Claim(ctx, key, "job-1")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, "job-1", jobID)

	// 重复认领返回首次登记的任务 ID
	jobID, dup, err = guard.Claim(ctx, key, "job-2")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "job-1", jobID)

	reqs, ok := collectMetric(t, reader, "idempotent_requests_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), sumTotal(t, reqs))

	hits, ok := collectMetric(t, reader, "idempotent_hits_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumTotal(t, hits))
}

func TestIdempotencyGuard_ConcurrentClaimSingleWinner(t *testing.T) {
	ctx := context.Background()
	const claimants = 16

	for i := 0; i < 200; i++ {
		guard := xjob.NewIdempotencyGuard(nil)
		key := xjob.NewKey()

		var (
			wg      sync.WaitGroup
			winners atomic.Int64
		)
		ids := make([]string, claimants)
		start := make(chan struct{})

		for c := 0; c < claimants; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				jobID, dup, err := guard.Claim(ctx, key, fmt.Sprintf("job-%d", c))
				assert.NoError(t, err)
				if !dup {
					winners.Add(1)
				}
				ids[c] = jobID
			}()
		}
		close(start)
		wg.Wait()

		// 同键并发认领只能有一个赢家，其余全部拿到赢家的任务 ID
		require.Equal(t, int64(1), winners.Load(), "iteration %d", i)
		for c := 1; c < claimants; c++ {
			require.Equal(t, ids[0], ids[c], "iteration %d", i)
		}
	}
}

func TestIdempotencyGuard_EmptyKey(t *testing.T) {
	guard := xjob.NewIdempotencyGuard(nil)

	_, _, err := guard.Claim(context.Background(), "", "job-1")
	assert.ErrorIs(t, err, xjob.ErrEmptyKey)
}

func TestIdempotencyGuard_TTLExpiry(t *testing.T) {
	guard := xjob.NewIdempotencyGuard(nil,
		xjob.WithIdempotencyTTL(50*time.Millisecond))
	ctx := context.Background()

	_, dup, err := guard.Claim(ctx, "key-1", "job-1")
	require.NoError(t, err)
	require.False(t, dup)

	// TTL 过后同键视为新请求
	time.Sleep(120 * time.Millisecond)

	jobID, dup, err := guard.Claim(ctx, "key-1", "job-2")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, "job-2", jobID)
}

func TestIdempotencyGuard_LookupAndForget(t *testing.T) {
	guard := xjob.NewIdempotencyGuard(nil)
	ctx := context.Background()

	_, _, err := guard.Claim(ctx, "key-1", "job-1")
	require.NoError(t, err)

	jobID, ok := guard.Lookup("key-1")
	require.True(t, ok)
	assert.Equal(t, "job-1", jobID)

	guard.Forget("key-1")
	_, ok = guard.Lookup("key-1")
	assert.False(t, ok)
}

func TestNewKey_Unique(t *testing.T) {
	assert.NotEqual(t, xjob.NewKey(), xjob.NewKey())
}
