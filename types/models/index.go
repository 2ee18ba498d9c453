package models

// IndexPageData is a struct to hold info for the main web page
type IndexPageData struct {
	NetworkName      string         `json:"network_name"`
	ChainId          string         `json:"chain_id"`
	LatestCheckpoint uint64         `json:"latest_checkpoint"`
	CurrentEpoch     uint64         `json:"current_epoch"`
	Checkpoints      *TablePageData `json:"checkpoints"`
	Epochs           *TablePageData `json:"epochs"`
}
