package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/templates"
	"github.com/ethpandaops/suiscope/types/models"
)

// Epochs will return the main "epochs" page using a go template
func Epochs(w http.ResponseWriter, r *http.Request) {
	var epochsTemplateFiles = append(layoutTemplateFiles,
		"epochs/epochs.html",
		"_table/table.html",
	)

	var pageTemplate = templates.GetTemplate(epochsTemplateFiles...)
	data := InitPageData(w, r, "epochs", "/epochs", "Epochs", epochsTemplateFiles)

	query := parseTableQuery(r)

	var pageData *models.TablePageData
	pageError := services.GlobalCallRateLimiter.CheckCallLimit(r, 1)
	if pageError == nil {
		pageData, pageError = getEpochsPageData(query)
	}
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	data.Data = pageData
	data.Meta.RefreshSeconds = tableRefreshSeconds(pageData)

	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "epochs.go", "Epochs", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

func getEpochsPageData(query *tableQuery) (*models.TablePageData, error) {
	return getTablePageData(query.cacheKey("epochs"), func(ctx context.Context) (*models.TablePageData, time.Duration, error) {
		return buildEpochsPageData(ctx, query, false)
	})
}

func buildEpochsPageData(ctx context.Context, query *tableQuery, disablePagination bool) (*models.TablePageData, time.Duration, error) {
	logrus.Debugf("epochs page called: %v:%v", query.Limit, query.Cursor)

	pageData, cacheTimeout, err := buildTablePageData(ctx, services.GlobalChainService.EpochsDefinition(), "/epochs", query, disablePagination)
	if err != nil {
		return nil, cacheTimeout, err
	}

	// the epoch timer belongs to the paginated epochs table only
	if !disablePagination {
		timer, err := tableview.LoadEpochTimer(ctx, services.GlobalQueryCache, services.GlobalChainService, time.Now())
		if err != nil {
			logrus.Warnf("error loading epoch timer: %v", err)
		} else {
			pageData.EpochTimer = timer
		}
	}

	return pageData, cacheTimeout, nil
}
