package tableview

import (
	"context"
	"fmt"

	"github.com/ethpandaops/suiscope/rpctypes"
)

type CheckpointSource interface {
	GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, error)
	GetCheckpoints(ctx context.Context, limit uint64, cursor string, descending bool) (*rpctypes.CheckpointPage, error)
}

var checkpointHeadings = []string{"Digest", "Sequence Number", "Time", "Transaction Count"}

func CheckpointsDefinition(src CheckpointSource) *Definition[rpctypes.Checkpoint] {
	return &Definition[rpctypes.Checkpoint]{
		Resource: "checkpoints",
		Label:    "Checkpoints",
		Columns: []Column{
			{Header: "Digest", AccessorKey: "digest"},
			{Header: "Sequence Number", AccessorKey: "sequenceNumber"},
			{Header: "Time", AccessorKey: "time"},
			{Header: "Transaction Count", AccessorKey: "transactionCount"},
		},
		PlaceholderHeadings: checkpointHeadings,
		MapRow:              CheckpointRow,
		FetchCount:          src.GetLatestCheckpointSequenceNumber,
		FetchPage: func(ctx context.Context, req PageRequest) (*Page[rpctypes.Checkpoint], error) {
			res, err := src.GetCheckpoints(ctx, req.Limit, req.Cursor, req.DescendingOrder)
			if err != nil {
				return nil, err
			}
			page := &Page[rpctypes.Checkpoint]{
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

func CheckpointRow(checkpoint *rpctypes.Checkpoint) Row {
	return Row{
		"digest":           LinkCell(checkpoint.Digest, CheckpointLink(checkpoint.Digest)),
		"sequenceNumber":   TextCell(checkpoint.SequenceNumber.String()),
		"time":             TimeCell(checkpoint.Time()),
		"transactionCount": NumberCell(uint64(len(checkpoint.Transactions))),
	}
}

// CheckpointLink builds the explorer path of a checkpoint by digest or sequence number.
func CheckpointLink(id string) string {
	return fmt.Sprintf("/checkpoint/%v", id)
}
