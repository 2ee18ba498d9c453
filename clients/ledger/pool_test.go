package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeNode(t *testing.T, chainId string, head string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "sui_getChainIdentifier":
			resp["result"] = chainId
		case "sui_getLatestCheckpointSequenceNumber":
			resp["result"] = head
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestPool(t *testing.T) *Pool {
	logger, _ := test.NewNullLogger()
	pool := NewPool(context.Background(), &PoolConfig{
		PollInterval:  50 * time.Millisecond,
		RetryInterval: 50 * time.Millisecond,
	}, logger)
	t.Cleanup(pool.Close)
	return pool
}

func TestPoolClientGetsReady(t *testing.T) {
	pool := newTestPool(t)
	node := newFakeNode(t, "35834a8a", "1200")

	client, err := pool.AddEndpoint(&ClientConfig{Name: "node1", URL: node.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ready := pool.AwaitReadyEndpoint(ctx)
	require.NotNil(t, ready)

	assert.Equal(t, client, ready)
	assert.Equal(t, "35834a8a", pool.GetChainId())
	assert.Equal(t, uint64(1200), ready.GetLastHead())
	assert.Equal(t, ClientStatusOnline, ready.GetStatus())
	assert.NoError(t, ready.GetLastError())
}

func TestPoolRejectsEndpointWithoutUrl(t *testing.T) {
	pool := newTestPool(t)
	_, err := pool.AddEndpoint(&ClientConfig{Name: "broken"})
	assert.Error(t, err)
	assert.Empty(t, pool.GetAllEndpoints())
}

func TestPoolChainMismatch(t *testing.T) {
	pool := newTestPool(t)
	good := newFakeNode(t, "35834a8a", "1200")
	other := newFakeNode(t, "4c78adac", "900")

	_, err := pool.AddEndpoint(&ClientConfig{Name: "good", URL: good.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NotNil(t, pool.AwaitReadyEndpoint(ctx))

	mismatched, err := pool.AddEndpoint(&ClientConfig{Name: "other", URL: other.URL})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return mismatched.GetLastError() != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, mismatched.GetLastError(), ErrChainMismatch)
	assert.Equal(t, ClientStatusOffline, mismatched.GetStatus())
	assert.Len(t, pool.GetReadyEndpoints(), 1)
}

func TestPoolSchedulerRoundRobin(t *testing.T) {
	pool := newTestPool(t)
	clients := []*Client{
		{pool: pool, clientIdx: 0, config: &ClientConfig{Name: "a"}, isOnline: true},
		{pool: pool, clientIdx: 1, config: &ClientConfig{Name: "b"}, isOnline: true},
		{pool: pool, clientIdx: 2, config: &ClientConfig{Name: "c", Priority: -1}, isOnline: true},
	}
	pool.clients = clients

	ready := pool.GetReadyEndpoints()
	require.Len(t, ready, 2)

	assert.Equal(t, "a", pool.GetReadyEndpoint().GetName())
	assert.Equal(t, "b", pool.GetReadyEndpoint().GetName())
	assert.Equal(t, "a", pool.GetReadyEndpoint().GetName())

	clients[0].MarkFailed(assert.AnError)
	clients[1].MarkFailed(assert.AnError)
	assert.Equal(t, "c", pool.GetReadyEndpoint().GetName())
}
