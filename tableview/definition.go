package tableview

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidPageSize     = errors.New("page size must be positive")
	ErrInvalidDefinition   = errors.New("incomplete table definition")
	ErrPaginationDisabled  = errors.New("pagination is disabled for this view")
	ErrViewClosed          = errors.New("table view closed")
	DefaultLimitOptions    = []uint64{20, 40, 60}
	defaultPageSizeMaximum = uint64(100)
)

type PageRequest struct {
	Limit           uint64
	Cursor          string
	DescendingOrder bool
}

type Page[T any] struct {
	Items       []T
	NextCursor  string
	HasNextPage bool
}

// Definition describes one paginated resource: how to fetch it and how to map
// its items to table rows.
type Definition[T any] struct {
	Resource            string
	Label               string
	Columns             []Column
	PlaceholderHeadings []string
	MapRow              func(item *T) Row
	FetchCount          func(ctx context.Context) (uint64, error)
	FetchPage           func(ctx context.Context, req PageRequest) (*Page[T], error)
}

func (d *Definition[T]) validate() error {
	if d == nil || d.Resource == "" || d.MapRow == nil || d.FetchCount == nil || d.FetchPage == nil {
		return ErrInvalidDefinition
	}
	return nil
}

type Options struct {
	InitialCursor string
	// History holds the cursors of previously visited pages, oldest first.
	History           []string
	InitialLimit      uint64
	DisablePagination bool
	// RefetchInterval enables periodic refresh while the first page is displayed.
	RefetchInterval time.Duration
	LimitOptions    []uint64
	// MaxLimit caps page sizes requested by users. Defaults to 100.
	MaxLimit uint64
}
