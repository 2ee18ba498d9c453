package api

import (
	"net/http"

	"github.com/ethpandaops/suiscope/services"
)

// ApiEpochsV1 returns one page of epochs, newest first
// @Summary Get epochs list
// @Description Returns a page of epochs, newest first, with transaction counts, checkpoint ranges and rewards of closed epochs
// @Tags epochs
// @Produce json
// @Param limit query int false "Number of epochs to return (max 100)"
// @Param cursor query string false "Epoch from next_cursor of the previous page"
// @Success 200 {object} ApiResponse{data=ApiTableResponseV1}
// @Failure 400 {object} ApiResponse "Invalid cursor"
// @Failure 500 {object} ApiResponse "Ledger node unavailable"
// @Router /v1/epochs [get]
// @ID getEpochs
func ApiEpochsV1(w http.ResponseWriter, r *http.Request) {
	serveTableV1(w, r, services.GlobalChainService.EpochsDefinition())
}
