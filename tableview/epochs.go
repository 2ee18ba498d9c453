package tableview

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/suiscope/querycache"
	"github.com/ethpandaops/suiscope/rpctypes"
)

type EpochSource interface {
	GetCurrentEpoch(ctx context.Context) (*rpctypes.EpochInfo, error)
	GetEpochs(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.EpochPage, error)
	GetSystemState(ctx context.Context) (*rpctypes.SystemStateSummary, error)
}

func EpochsDefinition(src EpochSource) *Definition[rpctypes.EpochInfo] {
	return &Definition[rpctypes.EpochInfo]{
		Resource: "epochs",
		Label:    "Epochs",
		Columns: []Column{
			{Header: "Epoch", AccessorKey: "epoch"},
			{Header: "Transactions", AccessorKey: "transactions"},
			{Header: "Stake Rewards", AccessorKey: "stakeRewards"},
			{Header: "Checkpoints", AccessorKey: "checkpoints"},
			{Header: "Storage Revenue", AccessorKey: "storageRevenue"},
			{Header: "Time", AccessorKey: "time"},
		},
		// the epochs placeholder shows the checkpoint headings
		PlaceholderHeadings: checkpointHeadings,
		MapRow:              EpochRow,
		FetchCount: func(ctx context.Context) (uint64, error) {
			epoch, err := src.GetCurrentEpoch(ctx)
			if err != nil {
				return 0, err
			}
			return epoch.Epoch.Uint64(), nil
		},
		FetchPage: func(ctx context.Context, req PageRequest) (*Page[rpctypes.EpochInfo], error) {
			res, err := src.GetEpochs(ctx, req.Limit, req.Cursor, req.DescendingOrder)
			if err != nil {
				return nil, err
			}
			page := &Page[rpctypes.EpochInfo]{
				Items:       res.Data,
				HasNextPage: res.HasNextPage,
			}
			if res.NextCursor != nil {
				page.NextCursor = *res.NextCursor
			}
			return page, nil
		},
	}
}

// EpochRow maps an epoch to its table row. Fields of the end of epoch info
// are absent for the running epoch and render as empty cells.
func EpochRow(epoch *rpctypes.EpochInfo) Row {
	row := Row{
		"epoch":          LinkCell(epoch.Epoch.String(), EpochLink(epoch.Epoch.Uint64())),
		"transactions":   TextCell(epoch.EpochTotalTransactions.String()),
		"stakeRewards":   EmptyCell(),
		"storageRevenue": EmptyCell(),
		"time":           EmptyCell(),
	}

	firstCheckpoint := epoch.FirstCheckpointID.String()
	lastCheckpoint := EmptyCell()

	if end := epoch.EndOfEpochInfo; end != nil {
		row["stakeRewards"] = AmountCell(end.TotalStakeRewardsDistributed.Uint64())
		row["storageRevenue"] = TextCell(end.StorageCharge.String())
		if end.EpochEndTimestamp > 0 {
			row["time"] = TimeCell(time.UnixMilli(int64(end.EpochEndTimestamp)).UTC())
		}
		last := end.LastCheckpointID.String()
		lastCheckpoint = LinkCell(last, CheckpointLink(last))
	}
	row["checkpoints"] = RangeCell(LinkCell(firstCheckpoint, CheckpointLink(firstCheckpoint)), lastCheckpoint)

	return row
}

func EpochLink(epoch uint64) string {
	return fmt.Sprintf("/epoch/%v", epoch)
}

// EpochTimer describes the progress of the running epoch.
type EpochTimer struct {
	Epoch     uint64        `json:"epoch"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Duration  time.Duration `json:"duration"`
	Progress  float64       `json:"progress"`
	Remaining time.Duration `json:"remaining"`
}

func NewEpochTimer(state *rpctypes.SystemStateSummary, now time.Time) *EpochTimer {
	timer := &EpochTimer{
		Epoch:    state.Epoch.Uint64(),
		Start:    time.UnixMilli(int64(state.EpochStartTimestampMs)).UTC(),
		Duration: time.Duration(state.EpochDurationMs) * time.Millisecond,
	}
	timer.End = timer.Start.Add(timer.Duration)

	if timer.Duration > 0 {
		elapsed := now.Sub(timer.Start)
		switch {
		case elapsed <= 0:
			timer.Progress = 0
		case elapsed >= timer.Duration:
			timer.Progress = 100
		default:
			timer.Progress = float64(elapsed) * 100 / float64(timer.Duration)
		}
	}
	if remaining := timer.End.Sub(now); remaining > 0 {
		timer.Remaining = remaining.Truncate(time.Second)
	}

	return timer
}

// IsEnding reports whether the epoch already reached its planned duration
// and is waiting for the reconfiguration.
func (t *EpochTimer) IsEnding() bool {
	return t.Duration > 0 && t.Remaining == 0
}

// LoadEpochTimer loads the system state through the shared query cache.
func LoadEpochTimer(ctx context.Context, queries *querycache.QueryCache, src EpochSource, now time.Time) (*EpochTimer, error) {
	state, err := querycache.FetchQuery(ctx, queries, querycache.NewQueryKey("epochs", "systemState"), src.GetSystemState)
	if err != nil {
		return nil, err
	}
	return NewEpochTimer(state, now), nil
}
