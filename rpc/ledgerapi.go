package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/rpctypes"
)

var ErrNotInitialized = errors.New("ledger client not initialized")

type LedgerClient struct {
	name      string
	endpoint  string
	headers   map[string]string
	logger    logrus.FieldLogger
	mutex     sync.Mutex
	rpcClient *rpc.Client
}

// NewLedgerClient is used to create a new ledger json-rpc client
func NewLedgerClient(name, endpoint string, headers map[string]string, logger logrus.FieldLogger) *LedgerClient {
	return &LedgerClient{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
		logger:   logger.WithField("client", name),
	}
}

func (lc *LedgerClient) Initialize(ctx context.Context) error {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	if lc.rpcClient != nil {
		return nil
	}

	rpcClient, err := rpc.DialContext(ctx, lc.endpoint)
	if err != nil {
		return fmt.Errorf("could not dial %v: %w", lc.name, err)
	}

	for hKey, hVal := range lc.headers {
		rpcClient.SetHeader(hKey, hVal)
	}

	lc.rpcClient = rpcClient
	return nil
}

func (lc *LedgerClient) Close() {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	if lc.rpcClient != nil {
		lc.rpcClient.Close()
		lc.rpcClient = nil
	}
}

func (lc *LedgerClient) GetName() string {
	return lc.name
}

func (lc *LedgerClient) GetEndpoint() string {
	return lc.endpoint
}

func (lc *LedgerClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	lc.mutex.Lock()
	rpcClient := lc.rpcClient
	lc.mutex.Unlock()

	if rpcClient == nil {
		return ErrNotInitialized
	}

	lc.logger.Debugf("rpc call %v", method)
	if err := rpcClient.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%v call failed: %w", method, err)
	}
	return nil
}

// cursorArg converts an absent cursor into a json null
func cursorArg(cursor string) *string {
	if cursor == "" {
		return nil
	}
	return &cursor
}

func (lc *LedgerClient) GetChainIdentifier(ctx context.Context) (string, error) {
	var result string
	err := lc.call(ctx, &result, "sui_getChainIdentifier")
	return result, err
}

func (lc *LedgerClient) GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, error) {
	var result rpctypes.BigUint64
	if err := lc.call(ctx, &result, "sui_getLatestCheckpointSequenceNumber"); err != nil {
		return 0, err
	}
	return result.Uint64(), nil
}

func (lc *LedgerClient) GetCheckpoints(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.CheckpointPage, error) {
	result := &rpctypes.CheckpointPage{}
	if err := lc.call(ctx, result, "sui_getCheckpoints", cursorArg(cursor), limit, descending); err != nil {
		return nil, err
	}
	return result, nil
}

func (lc *LedgerClient) GetCurrentEpoch(ctx context.Context) (*rpctypes.EpochInfo, error) {
	result := &rpctypes.EpochInfo{}
	if err := lc.call(ctx, result, "suix_getCurrentEpoch"); err != nil {
		return nil, err
	}
	return result, nil
}

func (lc *LedgerClient) GetEpochs(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.EpochPage, error) {
	result := &rpctypes.EpochPage{}
	if err := lc.call(ctx, result, "suix_getEpochs", cursorArg(cursor), limit, descending); err != nil {
		return nil, err
	}
	return result, nil
}

func (lc *LedgerClient) GetSystemState(ctx context.Context) (*rpctypes.SystemStateSummary, error) {
	result := &rpctypes.SystemStateSummary{}
	if err := lc.call(ctx, result, "suix_getLatestSuiSystemState"); err != nil {
		return nil, err
	}
	return result, nil
}
