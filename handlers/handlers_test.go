package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/suiscope/rpc/rpctest"
	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/types"
	"github.com/ethpandaops/suiscope/utils"
)

var fakeLedger *rpctest.FakeLedger

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.FatalLevel)

	fakeLedger = rpctest.NewFakeLedger()
	node := fakeLedger.Start()

	cfg := &types.Config{}
	if err := utils.ReadConfig(cfg, ""); err != nil {
		panic(err)
	}
	cfg.LedgerApi.Endpoints = []types.EndpointConfig{{Url: node.URL, Name: "fake"}}
	cfg.LedgerApi.StaleTime = time.Minute
	cfg.Frontend.Minify = false
	cfg.Frontend.DisablePageCache = true
	cfg.Tables.RefetchInterval = 10 * time.Second
	utils.Config = cfg

	ctx, cancel := context.WithCancel(context.Background())
	services.InitChainService(ctx, logrus.StandardLogger())
	if err := services.StartQueryCache(logrus.StandardLogger()); err != nil {
		panic(err)
	}
	if err := services.StartFrontendCache(logrus.StandardLogger()); err != nil {
		panic(err)
	}
	if err := services.GlobalChainService.StartService(); err != nil {
		panic(err)
	}

	code := m.Run()

	services.GlobalChainService.StopService()
	services.StopQueryCache()
	cancel()
	node.Close()
	os.Exit(code)
}

func serve(t *testing.T, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestParseTableQuery(t *testing.T) {
	query := parseTableQuery(httptest.NewRequest(http.MethodGet, "/checkpoints?c=40&cursor=900&p=1000,950", nil))
	assert.Equal(t, uint64(40), query.Limit)
	assert.Equal(t, "900", query.Cursor)
	assert.Equal(t, []string{"1000", "950"}, query.History)
	assert.Equal(t, "checkpoints:40:900:1000,950", query.cacheKey("checkpoints"))

	query = parseTableQuery(httptest.NewRequest(http.MethodGet, "/checkpoints?c=5000&cursor=abc&p=1000", nil))
	assert.Equal(t, uint64(100), query.Limit)
	assert.Empty(t, query.Cursor)
	assert.Empty(t, query.History)

	query = parseTableQuery(httptest.NewRequest(http.MethodGet, "/checkpoints?cursor=900&p=1000,x", nil))
	assert.Equal(t, uint64(20), query.Limit)
	assert.Equal(t, "900", query.Cursor)
	assert.Empty(t, query.History)

	opts := query.viewOptions(true)
	assert.True(t, opts.DisablePagination)
	assert.Equal(t, "900", opts.InitialCursor)
	assert.Equal(t, uint64(100), opts.MaxLimit)
}

func TestTableLink(t *testing.T) {
	assert.Equal(t, "/checkpoints?c=20", tableLink("/checkpoints", 20, nil))
	assert.Equal(t, "/checkpoints?c=40&cursor=950", tableLink("/checkpoints", 40, []string{"950"}))
	assert.Equal(t, "/epochs?c=20&cursor=5&p=9%2C7", tableLink("/epochs", 20, []string{"9", "7", "5"}))
}

func TestBuildTablePageData(t *testing.T) {
	query := &tableQuery{Limit: 3, Cursor: "1197", History: []string{"1200"}}
	pageData, cacheTimeout, err := buildCheckpointsPageData(context.Background(), query, false)
	require.NoError(t, err)

	assert.Equal(t, utils.Config.Tables.HistoryCacheTtl, cacheTimeout)
	assert.False(t, pageData.IsFirstPage)
	assert.Equal(t, 3, pageData.PageIndex)
	require.NotNil(t, pageData.View.Table)
	require.Len(t, pageData.View.Table.Rows, 3)
	assert.Equal(t, "cp1196", pageData.View.Table.Rows[0]["digest"].Text)

	assert.Equal(t, "/checkpoints?c=3", pageData.FirstPageLink)
	assert.Equal(t, "/checkpoints?c=3&cursor=1200", pageData.PrevPageLink)
	assert.Equal(t, "/checkpoints?c=3&cursor=1194&p=1200%2C1197", pageData.NextPageLink)
	require.Len(t, pageData.LimitLinks, 4)
	assert.Equal(t, uint64(3), pageData.LimitLinks[0].Limit)
	assert.True(t, pageData.LimitLinks[0].Active)
	assert.Equal(t, "/checkpoints?c=20&cursor=1197&p=1200", pageData.LimitLinks[1].Link)
}

func TestCheckpointsPage(t *testing.T) {
	rec := serve(t, Checkpoints, "/checkpoints?c=5")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "cp1199")
	assert.Contains(t, body, "cp1195")
	assert.NotContains(t, body, "cp1194")
	assert.Contains(t, body, "Page 1")
	assert.Contains(t, body, "cursor=1195")
	assert.Contains(t, body, `http-equiv="refresh"`)

	rec = serve(t, Checkpoints, "/checkpoints?c=5&cursor=1195")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "cp1194")
	assert.Contains(t, body, "Page 2")
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestEpochsPage(t *testing.T) {
	rec := serve(t, Epochs, "/epochs")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "/epoch/11")
	assert.Contains(t, body, "/checkpoint/1000")
	assert.Contains(t, body, "Epochs")
}

func TestIndexPage(t *testing.T) {
	rec := serve(t, Index, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "cp1199")
	assert.Contains(t, body, "/epoch/11")
	assert.NotContains(t, body, "Page 1")
}

func TestTablePageLoadFailure(t *testing.T) {
	fakeLedger.SetFail(true)
	defer fakeLedger.SetFail(false)

	query := &tableQuery{Limit: 7}
	pageData, cacheTimeout, err := buildCheckpointsPageData(context.Background(), query, false)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(-1), cacheTimeout)
	assert.Nil(t, pageData.View.Table)
	require.NotNil(t, pageData.View.Placeholder)
	assert.Equal(t, uint64(7), pageData.View.Placeholder.RowCount)
	assert.Contains(t, pageData.View.Footer.Error, "node unavailable")

	rec := serve(t, Checkpoints, "/checkpoints?c=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load Checkpoints")
}

func TestNotFoundPage(t *testing.T) {
	rec := serve(t, NotFound, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
