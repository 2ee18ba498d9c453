package models

import (
	"time"

	"github.com/ethpandaops/suiscope/tableview"
)

// TablePageData is a struct to hold info for the checkpoints and epochs pages
type TablePageData struct {
	Resource    string                `json:"resource"`
	BasePath    string                `json:"base_path"`
	View        *tableview.View       `json:"view"`
	Limit       uint64                `json:"limit"`
	Cursor      string                `json:"cursor"`
	IsFirstPage bool                  `json:"is_first_page"`
	PageIndex   int                   `json:"page_index"`
	EpochTimer  *tableview.EpochTimer `json:"epoch_timer,omitempty"`
	LoadedAt    time.Time             `json:"loaded_at"`

	FirstPageLink string            `json:"first_page_link"`
	PrevPageLink  string            `json:"prev_page_link"`
	NextPageLink  string            `json:"next_page_link"`
	LimitLinks    []*TableLimitLink `json:"limit_links"`
}

type TableLimitLink struct {
	Limit  uint64 `json:"limit"`
	Link   string `json:"link"`
	Active bool   `json:"active"`
}
