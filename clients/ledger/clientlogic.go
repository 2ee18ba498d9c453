package ledger

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

func (client *Client) runClientLoop() {
	defer func() {
		if err := recover(); err != nil {
			client.logger.Errorf("uncaught panic in clients.ledger.Client.runClientLoop subroutine: %v, stack: %v", err, string(debug.Stack()))
			if client.sleep(10 * time.Second) {
				go client.runClientLoop()
			}
		}
	}()

	for {
		err := client.checkClient()

		if err == nil {
			client.retryCounter = 0
			err = client.runClientLogic()
		}
		if client.context().Err() != nil {
			return
		}

		client.MarkFailed(err)
		client.retryCounter++

		waitTime := client.pool.config.RetryInterval
		if client.retryCounter > 10 {
			waitTime *= 30
		} else if client.retryCounter > 5 {
			waitTime *= 6
		}

		client.logger.Warnf("ledger client error: %v, retrying in %v...", err, waitTime)
		if !client.sleep(waitTime) {
			return
		}
	}
}

// sleep waits for d and returns false when the pool was closed meanwhile.
func (client *Client) sleep(d time.Duration) bool {
	select {
	case <-client.context().Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (client *Client) checkClient() error {
	ctx, cancel := context.WithTimeout(client.context(), 60*time.Second)
	defer cancel()

	err := client.rpcClient.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialization of ledger client failed: %w", err)
	}

	chainId, err := client.rpcClient.GetChainIdentifier(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching chain identifier: %w", err)
	}

	err = client.pool.checkChainId(chainId)
	if err != nil {
		return err
	}

	return client.pollClientHead()
}

// runClientLogic polls the latest checkpoint until the endpoint fails.
func (client *Client) runClientLogic() error {
	for {
		if !client.sleep(client.pool.config.PollInterval) {
			return client.context().Err()
		}

		err := client.pollClientHead()
		if err != nil {
			return err
		}
	}
}

func (client *Client) pollClientHead() error {
	ctx, cancel := context.WithTimeout(client.context(), 30*time.Second)
	defer cancel()

	sequence, err := client.rpcClient.GetLatestCheckpointSequenceNumber(ctx)
	if err != nil {
		return fmt.Errorf("could not get latest checkpoint: %w", err)
	}

	client.setOnline(sequence)
	client.logger.Debugf("ledger client head: checkpoint %v", sequence)
	return nil
}
