package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(config Config) *QueryCache {
	logger, _ := test.NewNullLogger()
	return NewQueryCache(config, logger, nil)
}

func TestNewQueryKeyNormalizesParams(t *testing.T) {
	a := NewQueryKey("checkpoints", Params{"limit": 25, "cursor": ""})
	b := NewQueryKey("checkpoints", map[string]interface{}{"cursor": "", "limit": 25})
	assert.Equal(t, a, b)
	assert.Equal(t, QueryKey("checkpoints:{cursor=,limit=25}"), a)
	assert.Equal(t, "checkpoints", a.Resource())

	assert.Equal(t, QueryKey("checkpoints:count"), NewQueryKey("checkpoints", "count"))
	assert.NotEqual(t, a, NewQueryKey("checkpoints", Params{"limit": 25, "cursor": "976"}))
}

func TestFetchCoalescesIdenticalKeys(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	var calls int32
	release := make(chan struct{})
	fetchFn := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "page", nil
	}

	key := NewQueryKey("checkpoints", Params{"limit": 25, "cursor": ""})
	results := make([]interface{}, 5)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := qc.Fetch(context.Background(), key, fetchFn)
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}

	require.Eventually(t, func() bool {
		stats := qc.Stats()
		return len(stats) == 1 && stats[0].InFlight
	}, time.Second, 5*time.Millisecond)
	// give the remaining callers a moment to join the pending call
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		assert.Equal(t, "page", res)
	}
}

func TestFetchServesFreshDataFromCache(t *testing.T) {
	qc := newTestCache(Config{StaleTime: time.Minute})
	defer qc.Close()

	now := time.Unix(1000, 0)
	qc.now = func() time.Time { return now }

	var calls int32
	fetchFn := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	key := NewQueryKey("epochs", "count")

	data, err := qc.Fetch(context.Background(), key, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), data)

	data, err = qc.Fetch(context.Background(), key, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), data)

	now = now.Add(2 * time.Minute)
	data, err = qc.Fetch(context.Background(), key, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), data)
}

func TestZeroStaleTimeKeepsDataUntilInvalidated(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	var calls int32
	fetchFn := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	key := NewQueryKey("checkpoints", "count")

	for i := 0; i < 3; i++ {
		data, err := qc.Fetch(context.Background(), key, fetchFn)
		require.NoError(t, err)
		assert.Equal(t, int32(1), data)
	}
	assert.False(t, qc.IsStale(key))

	assert.Equal(t, 1, qc.Invalidate("checkpoints"))
	assert.True(t, qc.IsStale(key))

	data, err := qc.Fetch(context.Background(), key, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), data)
}

func TestRefetchBypassesFreshData(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	var calls int32
	fetchFn := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	key := NewQueryKey("checkpoints", Params{"limit": 10, "cursor": ""})

	_, err := qc.Fetch(context.Background(), key, fetchFn)
	require.NoError(t, err)

	data, err := qc.Refetch(context.Background(), key, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), data)
}

func TestFailedCallKeepsPreviousDataPerKey(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	keyA := NewQueryKey("checkpoints", Params{"limit": 10, "cursor": ""})
	keyB := NewQueryKey("checkpoints", Params{"limit": 10, "cursor": "990"})
	upstreamErr := errors.New("upstream down")

	_, err := qc.Fetch(context.Background(), keyA, func(ctx context.Context) (interface{}, error) {
		return "a1", nil
	})
	require.NoError(t, err)

	_, err = qc.Refetch(context.Background(), keyA, func(ctx context.Context) (interface{}, error) {
		return nil, upstreamErr
	})
	assert.ErrorIs(t, err, upstreamErr)

	_, err = qc.Fetch(context.Background(), keyB, func(ctx context.Context) (interface{}, error) {
		return nil, upstreamErr
	})
	assert.ErrorIs(t, err, upstreamErr)

	data, _, found := qc.Peek(keyA)
	require.True(t, found)
	assert.Equal(t, "a1", data)
	assert.ErrorIs(t, qc.LastError(keyA), upstreamErr)

	_, _, found = qc.Peek(keyB)
	assert.False(t, found)
}

func TestCancelledCallerDoesNotCancelSharedCall(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	release := make(chan struct{})
	fetchFn := func(ctx context.Context) (interface{}, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	key := NewQueryKey("epochs", Params{"limit": 5, "cursor": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := qc.Fetch(ctx, key, fetchFn)
	assert.ErrorIs(t, err, context.Canceled)

	resultChan := make(chan interface{})
	go func() {
		data, _ := qc.Fetch(context.Background(), key, fetchFn)
		resultChan <- data
	}()
	close(release)

	select {
	case data := <-resultChan:
		assert.Equal(t, "done", data)
	case <-time.After(time.Second):
		t.Fatal("shared call did not complete")
	}
}

func TestCallTimeout(t *testing.T) {
	qc := newTestCache(Config{CallTimeout: 20 * time.Millisecond})
	defer qc.Close()

	_, err := qc.Fetch(context.Background(), NewQueryKey("slow"), func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrCallTimeout)
}

func TestPanicInFetchIsReturnedAsError(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	_, err := qc.Fetch(context.Background(), NewQueryKey("broken"), func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCollectGarbageDropsIdleEntries(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()
	qc.config.GCTime = time.Minute

	now := time.Unix(1000, 0)
	qc.now = func() time.Time { return now }

	_, err := qc.Fetch(context.Background(), NewQueryKey("old"), func(ctx context.Context) (interface{}, error) {
		return 1, nil
	})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = qc.Fetch(context.Background(), NewQueryKey("recent"), func(ctx context.Context) (interface{}, error) {
		return 2, nil
	})
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, qc.collectGarbage())

	stats := qc.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, NewQueryKey("recent"), stats[0].Key)
}

func TestTypedHelpers(t *testing.T) {
	qc := newTestCache(Config{})
	defer qc.Close()

	key := NewQueryKey("checkpoints", "count")
	count, err := FetchQuery(context.Background(), qc, key, func(ctx context.Context) (uint64, error) {
		return 1000, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), count)

	peeked, found := PeekQuery[uint64](qc, key)
	assert.True(t, found)
	assert.Equal(t, uint64(1000), peeked)

	_, found = PeekQuery[string](qc, key)
	assert.False(t, found)

	_, err = FetchQuery(context.Background(), qc, key, func(ctx context.Context) (string, error) {
		return "unused", nil
	})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
