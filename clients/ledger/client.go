package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/rpc"
)

type ClientStatus uint8

var (
	ClientStatusOnline  ClientStatus = 1
	ClientStatusOffline ClientStatus = 2
)

func (s ClientStatus) String() string {
	switch s {
	case ClientStatusOnline:
		return "online"
	default:
		return "offline"
	}
}

type ClientConfig struct {
	URL      string
	Name     string
	Priority int
	Headers  map[string]string
}

type Client struct {
	pool         *Pool
	clientIdx    uint16
	config       *ClientConfig
	rpcClient    *rpc.LedgerClient
	logger       *logrus.Entry
	statusMutex  sync.RWMutex
	isOnline     bool
	lastEvent    time.Time
	retryCounter uint64
	lastError    error
	headSequence uint64
}

func (pool *Pool) newPoolClient(clientIdx uint16, endpoint *ClientConfig) *Client {
	logger := pool.logger.WithField("client", endpoint.Name)
	return &Client{
		pool:      pool,
		clientIdx: clientIdx,
		config:    endpoint,
		rpcClient: rpc.NewLedgerClient(endpoint.Name, endpoint.URL, endpoint.Headers, logger),
		logger:    logger,
	}
}

func (client *Client) GetIndex() uint16 {
	return client.clientIdx
}

func (client *Client) GetName() string {
	return client.config.Name
}

func (client *Client) GetEndpointConfig() *ClientConfig {
	return client.config
}

func (client *Client) GetRPCClient() *rpc.LedgerClient {
	return client.rpcClient
}

// GetLastHead returns the latest checkpoint sequence number seen by the health checks.
func (client *Client) GetLastHead() uint64 {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()
	return client.headSequence
}

func (client *Client) GetLastError() error {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()
	return client.lastError
}

func (client *Client) GetLastEventTime() time.Time {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()
	return client.lastEvent
}

func (client *Client) GetStatus() ClientStatus {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()
	if client.isOnline {
		return ClientStatusOnline
	}
	return ClientStatusOffline
}

// MarkFailed takes the client out of rotation until the next successful health check.
func (client *Client) MarkFailed(err error) {
	client.statusMutex.Lock()
	defer client.statusMutex.Unlock()
	client.isOnline = false
	client.lastError = err
	client.lastEvent = time.Now()
}

func (client *Client) setOnline(headSequence uint64) {
	client.statusMutex.Lock()
	defer client.statusMutex.Unlock()
	client.isOnline = true
	client.lastError = nil
	client.lastEvent = time.Now()
	client.headSequence = headSequence
}

// context returns the pool context, clients stop with the pool.
func (client *Client) context() context.Context {
	return client.pool.ctx
}
