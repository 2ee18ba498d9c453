package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/templates"
	"github.com/ethpandaops/suiscope/types/models"
	"github.com/ethpandaops/suiscope/utils"
)

// DebugCache shows the state of the query cache, the page cache and the ledger endpoints
func DebugCache(w http.ResponseWriter, r *http.Request) {
	var debugCacheTemplateFiles = append(layoutTemplateFiles,
		"debug_cache/debug_cache.html",
	)
	var pageTemplate = templates.GetTemplate(debugCacheTemplateFiles...)

	if !utils.Config.Frontend.Pprof {
		handlePageError(w, r, errors.New("debug pages are not enabled"))
		return
	}

	data := InitPageData(w, r, "", "/debug/cache", "Debug Cache", debugCacheTemplateFiles)
	data.Data = buildDebugCachePageData()
	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "debug_cache.go", "Debug Cache", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

func buildDebugCachePageData() *models.DebugCachePageData {
	logrus.Debugf("debug cache page called")
	pageData := &models.DebugCachePageData{}

	if services.GlobalQueryCache != nil {
		queryStats, _ := json.MarshalIndent(services.GlobalQueryCache.Stats(), "", "  ")
		pageData.QueryStats = string(queryStats)
	}
	if services.GlobalFrontendCache != nil {
		pageStats, _ := json.MarshalIndent(services.GlobalFrontendCache.Stats(), "", "  ")
		pageData.PageStats = string(pageStats)
	}
	if services.GlobalChainService != nil {
		for _, client := range services.GlobalChainService.GetLedgerPool().GetAllEndpoints() {
			endpoint := &models.DebugCacheEndpoint{
				Name:   client.GetName(),
				Status: client.GetStatus().String(),
				Head:   client.GetLastHead(),
			}
			if lastEvent := client.GetLastEventTime(); !lastEvent.IsZero() {
				endpoint.LastEvent = utils.FormatTimestamp(lastEvent)
			}
			if lastErr := client.GetLastError(); lastErr != nil {
				endpoint.LastError = lastErr.Error()
			}
			pageData.Endpoints = append(pageData.Endpoints, endpoint)
		}
	}

	return pageData
}
