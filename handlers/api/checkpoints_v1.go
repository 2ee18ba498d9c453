package api

import (
	"net/http"

	"github.com/ethpandaops/suiscope/services"
)

// ApiCheckpointsV1 returns one page of the latest checkpoints
// @Summary Get checkpoints list
// @Description Returns a page of checkpoints, newest first, together with the latest checkpoint sequence number
// @Tags checkpoints
// @Produce json
// @Param limit query int false "Number of checkpoints to return (max 100)"
// @Param cursor query string false "Sequence number from next_cursor of the previous page"
// @Success 200 {object} ApiResponse{data=ApiTableResponseV1}
// @Failure 400 {object} ApiResponse "Invalid cursor"
// @Failure 500 {object} ApiResponse "Ledger node unavailable"
// @Router /v1/checkpoints [get]
// @ID getCheckpoints
func ApiCheckpointsV1(w http.ResponseWriter, r *http.Request) {
	serveTableV1(w, r, services.GlobalChainService.CheckpointsDefinition())
}
