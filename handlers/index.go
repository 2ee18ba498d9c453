package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/templates"
	"github.com/ethpandaops/suiscope/types/models"
	"github.com/ethpandaops/suiscope/utils"
)

// Index will return the main "index" page using a go template
func Index(w http.ResponseWriter, r *http.Request) {
	var indexTemplateFiles = append(layoutTemplateFiles,
		"index/index.html",
		"_table/table.html",
	)

	var indexTemplate = templates.GetTemplate(indexTemplateFiles...)
	data := InitPageData(w, r, "index", "", "", indexTemplateFiles)

	var pageData *models.IndexPageData
	pageError := services.GlobalCallRateLimiter.CheckCallLimit(r, 2)
	if pageError == nil {
		pageData, pageError = getIndexPageData()
	}
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	data.Data = pageData
	data.Meta.RefreshSeconds = int(utils.Config.Tables.RefetchInterval.Seconds())

	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "index.go", "Index", "", indexTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

func getIndexPageData() (*models.IndexPageData, error) {
	pageData := &models.IndexPageData{}
	pageRes, pageErr := services.GlobalFrontendCache.ProcessCachedPage("index", true, pageData, func(pageCall *services.FrontendCacheProcessingPage) interface{} {
		pageData, cacheTimeout := buildIndexPageData(pageCall.CallCtx)
		pageCall.CacheTimeout = cacheTimeout
		return pageData
	})
	if pageErr == nil && pageRes != nil {
		resData, resOk := pageRes.(*models.IndexPageData)
		if !resOk {
			return nil, ErrInvalidPageModel
		}
		pageData = resData
	}
	return pageData, pageErr
}

func buildIndexPageData(ctx context.Context) (*models.IndexPageData, time.Duration) {
	logrus.Debugf("index page called")

	pageData := &models.IndexPageData{
		NetworkName: utils.Config.Chain.DisplayName,
		ChainId:     services.GlobalChainService.GetChainIdentifier(),
	}
	query := &tableQuery{
		Limit: utils.Config.Tables.IndexLimit,
	}

	cacheTimeout := utils.Config.Tables.RefetchInterval
	if cacheTimeout == 0 {
		cacheTimeout = -1
	}

	checkpoints, checkpointsTimeout, err := buildCheckpointsPageData(ctx, query, true)
	if err != nil {
		logrus.Warnf("error building index checkpoints: %v", err)
		cacheTimeout = -1
	} else {
		pageData.Checkpoints = checkpoints
		if count := checkpoints.View.Footer.Count; count != nil {
			pageData.LatestCheckpoint = *count
		}
		if checkpointsTimeout < 0 {
			cacheTimeout = -1
		}
	}

	epochs, epochsTimeout, err := buildEpochsPageData(ctx, query, true)
	if err != nil {
		logrus.Warnf("error building index epochs: %v", err)
		cacheTimeout = -1
	} else {
		pageData.Epochs = epochs
		if count := epochs.View.Footer.Count; count != nil {
			pageData.CurrentEpoch = *count
		}
		if epochsTimeout < 0 {
			cacheTimeout = -1
		}
	}

	return pageData, cacheTimeout
}
