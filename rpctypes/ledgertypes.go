package rpctypes

import "time"

type Checkpoint struct {
	Epoch                    BigUint64 `json:"epoch"`
	SequenceNumber           BigUint64 `json:"sequenceNumber"`
	Digest                   string    `json:"digest"`
	NetworkTotalTransactions BigUint64 `json:"networkTotalTransactions"`
	PreviousDigest           string    `json:"previousDigest,omitempty"`
	TimestampMs              BigUint64 `json:"timestampMs"`
	Transactions             []string  `json:"transactions"`
}

func (c *Checkpoint) Time() time.Time {
	return time.UnixMilli(int64(c.TimestampMs)).UTC()
}

type CheckpointPage struct {
	Data        []Checkpoint `json:"data"`
	NextCursor  *string      `json:"nextCursor"`
	HasNextPage bool         `json:"hasNextPage"`
}

type EpochInfo struct {
	Epoch                  BigUint64       `json:"epoch"`
	EpochTotalTransactions BigUint64       `json:"epochTotalTransactions"`
	FirstCheckpointID      BigUint64       `json:"firstCheckpointId"`
	EpochStartTimestamp    BigUint64       `json:"epochStartTimestamp"`
	ReferenceGasPrice      *BigUint64      `json:"referenceGasPrice,omitempty"`
	EndOfEpochInfo         *EndOfEpochInfo `json:"endOfEpochInfo"`
}

// EndOfEpochInfo is only present once an epoch has been closed.
type EndOfEpochInfo struct {
	LastCheckpointID             BigUint64 `json:"lastCheckpointId"`
	EpochEndTimestamp            BigUint64 `json:"epochEndTimestamp"`
	ProtocolVersion              BigUint64 `json:"protocolVersion"`
	ReferenceGasPrice            BigUint64 `json:"referenceGasPrice"`
	TotalStake                   BigUint64 `json:"totalStake"`
	StorageFundReinvestment      BigUint64 `json:"storageFundReinvestment"`
	StorageCharge                BigUint64 `json:"storageCharge"`
	StorageRebate                BigUint64 `json:"storageRebate"`
	StorageFundBalance           BigUint64 `json:"storageFundBalance"`
	StakeSubsidyAmount           BigUint64 `json:"stakeSubsidyAmount"`
	TotalGasFees                 BigUint64 `json:"totalGasFees"`
	TotalStakeRewardsDistributed BigUint64 `json:"totalStakeRewardsDistributed"`
	LeftoverStorageFundInflow    BigUint64 `json:"leftoverStorageFundInflow"`
}

type EpochPage struct {
	Data        []EpochInfo `json:"data"`
	NextCursor  *string     `json:"nextCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}

// SystemStateSummary holds the subset of the system state needed for epoch timing.
type SystemStateSummary struct {
	Epoch                 BigUint64 `json:"epoch"`
	ProtocolVersion       BigUint64 `json:"protocolVersion"`
	EpochStartTimestampMs BigUint64 `json:"epochStartTimestampMs"`
	EpochDurationMs       BigUint64 `json:"epochDurationMs"`
}
