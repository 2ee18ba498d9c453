package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/templates"
	"github.com/ethpandaops/suiscope/types/models"
)

// Checkpoints will return the main "checkpoints" page using a go template
func Checkpoints(w http.ResponseWriter, r *http.Request) {
	var checkpointsTemplateFiles = append(layoutTemplateFiles,
		"checkpoints/checkpoints.html",
		"_table/table.html",
	)

	var pageTemplate = templates.GetTemplate(checkpointsTemplateFiles...)
	data := InitPageData(w, r, "checkpoints", "/checkpoints", "Checkpoints", checkpointsTemplateFiles)

	query := parseTableQuery(r)

	var pageData *models.TablePageData
	pageError := services.GlobalCallRateLimiter.CheckCallLimit(r, 1)
	if pageError == nil {
		pageData, pageError = getCheckpointsPageData(query)
	}
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	data.Data = pageData
	data.Meta.RefreshSeconds = tableRefreshSeconds(pageData)

	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "checkpoints.go", "Checkpoints", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

func getCheckpointsPageData(query *tableQuery) (*models.TablePageData, error) {
	return getTablePageData(query.cacheKey("checkpoints"), func(ctx context.Context) (*models.TablePageData, time.Duration, error) {
		return buildCheckpointsPageData(ctx, query, false)
	})
}

func buildCheckpointsPageData(ctx context.Context, query *tableQuery, disablePagination bool) (*models.TablePageData, time.Duration, error) {
	logrus.Debugf("checkpoints page called: %v:%v", query.Limit, query.Cursor)
	return buildTablePageData(ctx, services.GlobalChainService.CheckpointsDefinition(), "/checkpoints", query, disablePagination)
}
