package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrChainMismatch = errors.New("endpoint serves a different chain")

type PoolConfig struct {
	// PollInterval is the interval of the health checks for ready clients.
	PollInterval time.Duration `yaml:"pollInterval"`
	// RetryInterval is the base delay before reconnecting an offline client.
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// Pool manages the ledger api endpoints and hands out ready clients in round robin order.
type Pool struct {
	config        *PoolConfig
	ctx           context.Context
	ctxCancel     context.CancelFunc
	logger        logrus.FieldLogger
	clientCounter uint16
	clientsMutex  sync.RWMutex
	clients       []*Client

	chainMutex sync.Mutex
	chainId    string

	schedulerMutex sync.Mutex
	rrLastIndex    int
}

func NewPool(ctx context.Context, config *PoolConfig, logger logrus.FieldLogger) *Pool {
	if config.PollInterval == 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 10 * time.Second
	}

	pool := &Pool{
		config:      config,
		logger:      logger,
		clients:     make([]*Client, 0),
		rrLastIndex: -1,
	}
	pool.ctx, pool.ctxCancel = context.WithCancel(ctx)
	return pool
}

func (pool *Pool) AddEndpoint(endpoint *ClientConfig) (*Client, error) {
	if endpoint.URL == "" {
		return nil, fmt.Errorf("endpoint %v has no url", endpoint.Name)
	}

	pool.clientsMutex.Lock()
	clientIdx := pool.clientCounter
	pool.clientCounter++
	client := pool.newPoolClient(clientIdx, endpoint)
	pool.clients = append(pool.clients, client)
	pool.clientsMutex.Unlock()

	go client.runClientLoop()

	return client, nil
}

func (pool *Pool) GetAllEndpoints() []*Client {
	pool.clientsMutex.RLock()
	defer pool.clientsMutex.RUnlock()

	clients := make([]*Client, len(pool.clients))
	copy(clients, pool.clients)
	return clients
}

// GetReadyEndpoints returns all online clients of the best available priority.
func (pool *Pool) GetReadyEndpoints() []*Client {
	readyClients := []*Client{}
	for _, client := range pool.GetAllEndpoints() {
		if client.GetStatus() == ClientStatusOnline {
			readyClients = append(readyClients, client)
		}
	}
	if len(readyClients) == 0 {
		return nil
	}

	sort.SliceStable(readyClients, func(a, b int) bool {
		return readyClients[a].config.Priority > readyClients[b].config.Priority
	})

	bestPriority := readyClients[0].config.Priority
	for idx, client := range readyClients {
		if client.config.Priority != bestPriority {
			return readyClients[:idx]
		}
	}
	return readyClients
}

func (pool *Pool) GetReadyEndpoint() *Client {
	return pool.runClientScheduler(pool.GetReadyEndpoints())
}

func (pool *Pool) AwaitReadyEndpoint(ctx context.Context) *Client {
	for {
		client := pool.GetReadyEndpoint()
		if client != nil {
			return client
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (pool *Pool) runClientScheduler(readyClients []*Client) *Client {
	if len(readyClients) == 0 {
		return nil
	}

	pool.schedulerMutex.Lock()
	defer pool.schedulerMutex.Unlock()

	for _, client := range readyClients {
		if int(client.clientIdx) > pool.rrLastIndex {
			pool.rrLastIndex = int(client.clientIdx)
			return client
		}
	}

	pool.rrLastIndex = int(readyClients[0].clientIdx)
	return readyClients[0]
}

// GetChainId returns the chain identifier reported by the first connected endpoint.
func (pool *Pool) GetChainId() string {
	pool.chainMutex.Lock()
	defer pool.chainMutex.Unlock()
	return pool.chainId
}

func (pool *Pool) checkChainId(chainId string) error {
	pool.chainMutex.Lock()
	defer pool.chainMutex.Unlock()

	if pool.chainId == "" {
		pool.chainId = chainId
		pool.logger.Infof("ledger chain identifier: %v", chainId)
		return nil
	}
	if pool.chainId != chainId {
		return fmt.Errorf("%w: %v (expected %v)", ErrChainMismatch, chainId, pool.chainId)
	}
	return nil
}

func (pool *Pool) Close() {
	pool.ctxCancel()
	for _, client := range pool.GetAllEndpoints() {
		if client.rpcClient != nil {
			client.rpcClient.Close()
		}
	}
}
