package tableview

import (
	"strconv"
	"time"
)

type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellLink   CellKind = "link"
	CellTime   CellKind = "time"
	CellAmount CellKind = "amount"
	CellRange  CellKind = "range"
)

// Cell is the renderable content of one table cell.
type Cell struct {
	Kind   CellKind   `json:"kind"`
	Text   string     `json:"text,omitempty"`
	Href   string     `json:"href,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
	Amount *uint64    `json:"amount,omitempty"`
	Parts  []Cell     `json:"parts,omitempty"`
}

func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

func TextCell(text string) Cell {
	return Cell{Kind: CellText, Text: text}
}

func NumberCell(value uint64) Cell {
	return TextCell(strconv.FormatUint(value, 10))
}

func LinkCell(text, href string) Cell {
	return Cell{Kind: CellLink, Text: text, Href: href}
}

func TimeCell(ts time.Time) Cell {
	return Cell{Kind: CellTime, Time: &ts}
}

func AmountCell(amount uint64) Cell {
	return Cell{Kind: CellAmount, Amount: &amount}
}

func RangeCell(from, to Cell) Cell {
	return Cell{Kind: CellRange, Parts: []Cell{from, to}}
}

func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Kind == ""
}

type Column struct {
	Header      string `json:"header"`
	AccessorKey string `json:"accessor_key"`
}

// Row maps a column accessor key to its cell.
type Row map[string]Cell

type TableModel struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// PlaceholderTable is rendered until the first page arrives.
type PlaceholderTable struct {
	RowCount uint64   `json:"row_count"`
	Headings []string `json:"headings"`
}

type PaginationControls struct {
	PageIndex  int      `json:"page_index"`
	Cursor     string   `json:"cursor,omitempty"`
	HasPrev    bool     `json:"has_prev"`
	HasNext    bool     `json:"has_next"`
	NextCursor string   `json:"next_cursor,omitempty"`
	Stack      []string `json:"stack"`
}

type Footer struct {
	Label        string              `json:"label"`
	HasData      bool                `json:"has_data"`
	PageItems    int                 `json:"page_items"`
	Count        *uint64             `json:"count,omitempty"`
	Limit        uint64              `json:"limit"`
	LimitOptions []uint64            `json:"limit_options"`
	Pagination   *PaginationControls `json:"pagination,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// View is the full render output of a table view: either the table or its
// placeholder, always accompanied by the footer.
type View struct {
	Resource        string            `json:"resource"`
	Table           *TableModel       `json:"table,omitempty"`
	Placeholder     *PlaceholderTable `json:"placeholder,omitempty"`
	Footer          *Footer           `json:"footer"`
	AutoRefresh     bool              `json:"auto_refresh"`
	RefetchInterval time.Duration     `json:"refetch_interval"`
}

// RowCount is the number of rendered body rows.
func (v *View) RowCount() int {
	if v.Table != nil {
		return len(v.Table.Rows)
	}
	if v.Placeholder != nil {
		return int(v.Placeholder.RowCount)
	}
	return 0
}
