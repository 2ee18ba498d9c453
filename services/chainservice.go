package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/clients/ledger"
	"github.com/ethpandaops/suiscope/rpc"
	"github.com/ethpandaops/suiscope/rpctypes"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/utils"
)

var ErrNoReadyEndpoint = errors.New("no ready ledger endpoint")

type ChainService struct {
	logger     logrus.FieldLogger
	ledgerPool *ledger.Pool
	started    bool
}

var GlobalChainService *ChainService

// InitChainService is used to initialize the global chain service
func InitChainService(ctx context.Context, logger logrus.FieldLogger) {
	if GlobalChainService != nil {
		return
	}

	ledgerPool := ledger.NewPool(ctx, &ledger.PoolConfig{}, logger.WithField("service", "ledger-pool"))

	GlobalChainService = &ChainService{
		logger:     logger,
		ledgerPool: ledgerPool,
	}
}

// StartService adds the configured ledger endpoints and waits for the first one to get ready.
func (cs *ChainService) StartService() error {
	if cs.started {
		return fmt.Errorf("service already started")
	}
	cs.started = true

	for _, endpoint := range utils.Config.LedgerApi.Endpoints {
		_, err := cs.ledgerPool.AddEndpoint(&ledger.ClientConfig{
			URL:      endpoint.Url,
			Name:     endpoint.Name,
			Priority: endpoint.Priority,
			Headers:  endpoint.Headers,
		})
		if err != nil {
			cs.logger.Errorf("could not add ledger endpoint %v: %v", endpoint.Name, err)
			continue
		}
	}

	if len(cs.ledgerPool.GetAllEndpoints()) == 0 {
		return fmt.Errorf("no usable ledger endpoints")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cs.ledgerPool.AwaitReadyEndpoint(ctx) == nil {
		cs.logger.Warnf("no ledger endpoint got ready within 30s, continuing in the background")
	}

	return nil
}

func (cs *ChainService) StopService() {
	if !cs.started {
		return
	}
	cs.ledgerPool.Close()
	cs.started = false
}

func (cs *ChainService) GetLedgerPool() *ledger.Pool {
	return cs.ledgerPool
}

func (cs *ChainService) GetChainIdentifier() string {
	return cs.ledgerPool.GetChainId()
}

// withClient runs fn against the ready endpoints until one of them succeeds.
func withClient[T any](ctx context.Context, cs *ChainService, fn func(client *rpc.LedgerClient) (T, error)) (T, error) {
	var result T
	var lastErr error

	readyClients := cs.ledgerPool.GetReadyEndpoints()
	if len(readyClients) == 0 {
		client := cs.ledgerPool.AwaitReadyEndpoint(ctx)
		if client == nil {
			return result, ErrNoReadyEndpoint
		}
		readyClients = []*ledger.Client{client}
	} else if first := cs.ledgerPool.GetReadyEndpoint(); first != nil {
		// start with the scheduled client and keep the others as fallbacks
		ordered := []*ledger.Client{first}
		for _, client := range readyClients {
			if client != first {
				ordered = append(ordered, client)
			}
		}
		readyClients = ordered
	}

	for _, client := range readyClients {
		res, err := fn(client.GetRPCClient())
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return result, err
		}

		cs.logger.WithField("client", client.GetName()).Warnf("ledger call failed: %v", err)
		lastErr = err
	}

	return result, lastErr
}

func (cs *ChainService) GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, error) {
	return withClient(ctx, cs, func(client *rpc.LedgerClient) (uint64, error) {
		return client.GetLatestCheckpointSequenceNumber(ctx)
	})
}

func (cs *ChainService) GetCheckpoints(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.CheckpointPage, error) {
	return withClient(ctx, cs, func(client *rpc.LedgerClient) (*rpctypes.CheckpointPage, error) {
		return client.GetCheckpoints(ctx, limit, cursor, descending)
	})
}

func (cs *ChainService) GetCurrentEpoch(ctx context.Context) (*rpctypes.EpochInfo, error) {
	return withClient(ctx, cs, func(client *rpc.LedgerClient) (*rpctypes.EpochInfo, error) {
		return client.GetCurrentEpoch(ctx)
	})
}

func (cs *ChainService) GetEpochs(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.EpochPage, error) {
	return withClient(ctx, cs, func(client *rpc.LedgerClient) (*rpctypes.EpochPage, error) {
		return client.GetEpochs(ctx, limit, cursor, descending)
	})
}

func (cs *ChainService) GetSystemState(ctx context.Context) (*rpctypes.SystemStateSummary, error) {
	return withClient(ctx, cs, func(client *rpc.LedgerClient) (*rpctypes.SystemStateSummary, error) {
		return client.GetSystemState(ctx)
	})
}

func (cs *ChainService) CheckpointsDefinition() *tableview.Definition[rpctypes.Checkpoint] {
	return tableview.CheckpointsDefinition(cs)
}

func (cs *ChainService) EpochsDefinition() *tableview.Definition[rpctypes.EpochInfo] {
	return tableview.EpochsDefinition(cs)
}
