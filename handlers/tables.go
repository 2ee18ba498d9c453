package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/pagination"
	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/types/models"
	"github.com/ethpandaops/suiscope/utils"
)

// tableQuery holds the pagination state passed in the url: page size (c),
// current cursor (cursor) and the cursors of the previous pages (p).
type tableQuery struct {
	Limit   uint64
	Cursor  string
	History []string
}

func parseTableQuery(r *http.Request) *tableQuery {
	urlArgs := r.URL.Query()
	query := &tableQuery{
		Limit: utils.ParseLimit(urlArgs.Get("c"), utils.Config.Tables.DefaultLimit, utils.Config.Tables.MaxLimit),
	}

	cursor := urlArgs.Get("cursor")
	if cursor == "" || !utils.IsValidCursor(cursor) {
		return query
	}
	query.Cursor = cursor

	history := pagination.DecodeStack(urlArgs.Get("p")).Cursors()
	for _, c := range history {
		if !utils.IsValidCursor(c) {
			history = nil
			break
		}
	}
	query.History = history

	return query
}

func (q *tableQuery) cacheKey(resource string) string {
	return fmt.Sprintf("%v:%v:%v:%v", resource, q.Limit, q.Cursor, pagination.NewStack(q.History...).Encode())
}

func (q *tableQuery) viewOptions(disablePagination bool) tableview.Options {
	return tableview.Options{
		InitialCursor:     q.Cursor,
		History:           q.History,
		InitialLimit:      q.Limit,
		DisablePagination: disablePagination,
		RefetchInterval:   utils.Config.Tables.RefetchInterval,
		LimitOptions:      utils.Config.Tables.LimitOptions,
		MaxLimit:          utils.Config.Tables.MaxLimit,
	}
}

// tableLink builds the url of a table page. The last entry of cursors is the
// page cursor, the preceding entries are passed as history.
func tableLink(basePath string, limit uint64, cursors []string) string {
	urlArgs := url.Values{}
	urlArgs.Set("c", strconv.FormatUint(limit, 10))

	stack := pagination.NewStack(cursors...)
	if cursor := stack.Cursor(); cursor != "" {
		urlArgs.Set("cursor", cursor)
		if history := stack.EncodeBack(); history != "" {
			urlArgs.Set("p", history)
		}
	}
	return basePath + "?" + urlArgs.Encode()
}

// buildTablePageData loads one page of a table through the shared query cache.
// A failed page load still yields a page model: the placeholder table with the
// error in its footer.
func buildTablePageData[T any](ctx context.Context, def *tableview.Definition[T], basePath string, query *tableQuery, disablePagination bool) (*models.TablePageData, time.Duration, error) {
	logger := logrus.WithField("module", "handlers")

	view, err := tableview.New(def, services.GlobalQueryCache, query.viewOptions(disablePagination), logger)
	if err != nil {
		return nil, -1, err
	}
	defer view.Close()

	loadErr := view.Load(ctx)
	rendered := view.Render()

	pageData := &models.TablePageData{
		Resource:    def.Resource,
		BasePath:    basePath,
		View:        rendered,
		Limit:       rendered.Footer.Limit,
		Cursor:      view.Cursor(),
		IsFirstPage: view.Cursor() == "",
		PageIndex:   1,
		LoadedAt:    time.Now(),
	}

	if controls := rendered.Footer.Pagination; controls != nil {
		pageData.PageIndex = controls.PageIndex
		pageData.FirstPageLink = tableLink(basePath, pageData.Limit, nil)
		if controls.HasPrev {
			pageData.PrevPageLink = tableLink(basePath, pageData.Limit, controls.Stack[:len(controls.Stack)-1])
		}
		if controls.HasNext {
			pageData.NextPageLink = tableLink(basePath, pageData.Limit, append(slices.Clone(controls.Stack), controls.NextCursor))
		}
		for _, limit := range rendered.Footer.LimitOptions {
			pageData.LimitLinks = append(pageData.LimitLinks, &models.TableLimitLink{
				Limit:  limit,
				Link:   tableLink(basePath, limit, controls.Stack),
				Active: limit == pageData.Limit,
			})
		}
	}

	var cacheTimeout time.Duration
	switch {
	case loadErr != nil:
		logger.Warnf("error loading %v page: %v", def.Resource, loadErr)
		cacheTimeout = -1
	case !pageData.IsFirstPage:
		// pages behind a cursor are immutable
		cacheTimeout = utils.Config.Tables.HistoryCacheTtl
	case utils.Config.Tables.RefetchInterval > 0:
		cacheTimeout = utils.Config.Tables.RefetchInterval
	default:
		cacheTimeout = -1
	}

	return pageData, cacheTimeout, nil
}

func getTablePageData(pageCacheKey string, buildFn func(ctx context.Context) (*models.TablePageData, time.Duration, error)) (*models.TablePageData, error) {
	pageData := &models.TablePageData{}
	pageRes, pageErr := services.GlobalFrontendCache.ProcessCachedPage(pageCacheKey, true, pageData, func(pageCall *services.FrontendCacheProcessingPage) interface{} {
		pageData, cacheTimeout, err := buildFn(pageCall.CallCtx)
		if err != nil {
			pageCall.CacheTimeout = -1
			return err
		}
		pageCall.CacheTimeout = cacheTimeout
		return pageData
	})
	if pageErr == nil && pageRes != nil {
		if buildErr, isErr := pageRes.(error); isErr {
			return nil, buildErr
		}
		resData, resOk := pageRes.(*models.TablePageData)
		if !resOk {
			return nil, ErrInvalidPageModel
		}
		pageData = resData
	}
	return pageData, pageErr
}

// tableRefreshSeconds returns the meta refresh interval of a table page.
// Only the first page refreshes, pages behind a cursor never change.
func tableRefreshSeconds(pageData *models.TablePageData) int {
	if pageData == nil || pageData.View == nil || !pageData.IsFirstPage {
		return 0
	}
	return int(pageData.View.RefetchInterval.Seconds())
}
