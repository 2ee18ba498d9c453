package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/timandy/routine"

	"github.com/ethpandaops/suiscope/cache"
	"github.com/ethpandaops/suiscope/utils"
)

type FrontendCacheService struct {
	logger               logrus.FieldLogger
	pageCallCounter      uint64
	pageCallCounterMutex sync.Mutex
	tieredCache          *cache.TieredCache
	callTimeout          time.Duration
	cachingDisabled      bool
	processingMutex      sync.Mutex
	processingDict       map[string]*FrontendCacheProcessingPage
	callStackMutex       sync.RWMutex
	callStackBuffer      []byte

	pageCallCount    *prometheus.CounterVec
	pageCallDuration *prometheus.HistogramVec
	pageCallCacheHit *prometheus.CounterVec
}

type FrontendCacheProcessingPage struct {
	CallCtx      context.Context
	modelMutex   sync.RWMutex
	pageModel    interface{}
	pageError    error
	PageKey      string
	CacheTimeout time.Duration
}

type PageDataHandlerFn = func(pageCall *FrontendCacheProcessingPage) interface{}

var GlobalFrontendCache *FrontendCacheService

type FrontendCachePageError struct {
	err   error
	name  string
	stack string
}

func (e FrontendCachePageError) Error() string {
	return e.err.Error()
}
func (e FrontendCachePageError) Name() string {
	return e.name
}
func (e FrontendCachePageError) Stack() string {
	return e.stack
}

type FrontendCacheStats struct {
	Processing []string               `json:"processing"`
	Tiered     cache.TieredCacheStats `json:"tiered"`
}

// StartFrontendCache is used to start the global frontend cache service
func StartFrontendCache(logger logrus.FieldLogger) error {
	if GlobalFrontendCache != nil {
		return nil
	}

	cachePrefix := fmt.Sprintf("%sgui-", utils.Config.Cache.RedisCachePrefix)
	tieredCache, err := cache.NewTieredCache(logger.WithField("service", "page-cache"), utils.Config.Cache.LocalCacheSize, utils.Config.Cache.RedisCacheAddr, cachePrefix)
	if err != nil {
		return err
	}

	callTimeout := utils.Config.Frontend.PageCallTimeout
	cachingDisabled := utils.Config.Frontend.Debug || utils.Config.Frontend.DisablePageCache
	GlobalFrontendCache = NewFrontendCacheService(logger, tieredCache, callTimeout, cachingDisabled, prometheus.DefaultRegisterer)
	return nil
}

func NewFrontendCacheService(logger logrus.FieldLogger, tieredCache *cache.TieredCache, callTimeout time.Duration, cachingDisabled bool, registerer prometheus.Registerer) *FrontendCacheService {
	if callTimeout == 0 {
		callTimeout = 30 * time.Second
	}

	factory := promauto.With(registerer)
	return &FrontendCacheService{
		logger:          logger,
		tieredCache:     tieredCache,
		callTimeout:     callTimeout,
		cachingDisabled: cachingDisabled,
		processingDict:  make(map[string]*FrontendCacheProcessingPage),
		callStackBuffer: make([]byte, 1024*1024*5),

		pageCallCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_frontend_page_call_count",
			Help: "Number of page calls",
		}, []string{"page"}),
		pageCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "suiscope_frontend_page_call_duration",
			Help:    "Processing time for page calls",
			Buckets: []float64{0, 25, 50, 75, 100, 250, 500, 750, 1000, 2500, 5000, 10000, 20000, 30000, 60000, 120000},
		}, []string{"page"}),
		pageCallCacheHit: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_frontend_page_call_cache_hit",
			Help: "Number of page calls that were served from cache",
		}, []string{"page"}),
	}
}

// ProcessCachedPage builds the page model for pageKey. Concurrent calls for the same key share one build.
func (fc *FrontendCacheService) ProcessCachedPage(pageKey string, caching bool, returnValue interface{}, buildFn PageDataHandlerFn) (interface{}, error) {
	pageType := pageKey
	if strings.Contains(pageKey, ":") {
		pageType = strings.Split(pageKey, ":")[0]
	}

	fc.pageCallCount.WithLabelValues(pageType).Inc()

	fc.processingMutex.Lock()
	processingPage := fc.processingDict[pageKey]
	if processingPage != nil {
		fc.processingMutex.Unlock()
		fc.logger.Debugf("page already processing: %v", pageKey)

		fc.pageCallCacheHit.WithLabelValues(pageType).Inc()

		processingPage.modelMutex.RLock()
		defer processingPage.modelMutex.RUnlock()
		return processingPage.pageModel, processingPage.pageError
	}
	processingPage = &FrontendCacheProcessingPage{
		PageKey:      pageKey,
		CacheTimeout: -1,
	}
	fc.processingDict[pageKey] = processingPage
	processingPage.modelMutex.Lock()
	defer fc.completePageLoad(pageKey, processingPage)
	fc.processingMutex.Unlock()

	startTime := time.Now()
	var returnError error
	returnValue, returnError = fc.processPageCall(pageKey, caching && !fc.cachingDisabled, returnValue, buildFn, processingPage)
	processingPage.pageModel = returnValue
	processingPage.pageError = returnError

	duration := time.Since(startTime)
	fc.pageCallDuration.WithLabelValues(pageType).Observe(float64(duration.Milliseconds()))

	return returnValue, returnError
}

func (fc *FrontendCacheService) processPageCall(pageKey string, caching bool, pageData interface{}, buildFn PageDataHandlerFn, pageCall *FrontendCacheProcessingPage) (interface{}, error) {
	// the build routine may outlive a timed out call, so both channels are buffered
	returnChan := make(chan interface{}, 1)
	errorChan := make(chan error, 1)
	isTimedOut := atomic.Bool{}

	callCtx, callCtxCancel := context.WithCancel(context.Background())
	defer callCtxCancel()
	pageCall.CallCtx = callCtx

	fc.pageCallCounterMutex.Lock()
	fc.pageCallCounter++
	callIdx := fc.pageCallCounter
	fc.pageCallCounterMutex.Unlock()

	callGoId := atomic.Int64{}

	go func(callIdx uint64) {
		defer func() {
			if err := recover(); err != nil {
				errorChan <- &FrontendCachePageError{
					name:  "page panic",
					err:   fmt.Errorf("page call %v panic: %v", callIdx, err),
					stack: string(debug.Stack()),
				}
			}
		}()

		callGoId.Store(int64(routine.Goid()))

		// check cache
		if caching && fc.tieredCache != nil {
			if _, err := fc.tieredCache.Get(pageKey, pageData); err == nil {
				fc.logger.Debugf("page served from cache: %v", pageKey)
				returnChan <- pageData
				return
			}
		}

		// process page call
		pageData = buildFn(pageCall)

		if isTimedOut.Load() {
			return
		}
		if caching && fc.tieredCache != nil && pageCall.CacheTimeout >= 0 {
			if err := fc.tieredCache.Set(pageKey, pageData, pageCall.CacheTimeout); err != nil {
				fc.logger.Warnf("could not cache page %v: %v", pageKey, err)
			}
		}
		returnChan <- pageData
	}(callIdx)

	select {
	case returnValue := <-returnChan:
		return returnValue, nil
	case returnError := <-errorChan:
		return nil, returnError
	case <-time.After(fc.callTimeout):
		isTimedOut.Store(true)
		callCtxCancel()
		return nil, &FrontendCachePageError{
			name:  "page timeout",
			err:   fmt.Errorf("page call %v timeout", callIdx),
			stack: fc.extractPageCallStack(callGoId.Load()),
		}
	}
}

func (fc *FrontendCacheService) completePageLoad(pageKey string, processingPage *FrontendCacheProcessingPage) {
	processingPage.modelMutex.Unlock()
	fc.processingMutex.Lock()
	delete(fc.processingDict, pageKey)
	fc.processingMutex.Unlock()
}

// InvalidatePage drops a cached page model.
func (fc *FrontendCacheService) InvalidatePage(pageKey string) {
	if fc.tieredCache != nil {
		fc.tieredCache.Delete(pageKey)
	}
}

func (fc *FrontendCacheService) Stats() FrontendCacheStats {
	stats := FrontendCacheStats{
		Processing: []string{},
	}

	fc.processingMutex.Lock()
	for pageKey := range fc.processingDict {
		stats.Processing = append(stats.Processing, pageKey)
	}
	fc.processingMutex.Unlock()

	if fc.tieredCache != nil {
		stats.Tiered = fc.tieredCache.Stats()
	}
	return stats
}

func (fc *FrontendCacheService) extractPageCallStack(callGoid int64) string {
	if fc.callStackMutex.TryLock() {
		runtime.Stack(fc.callStackBuffer, true)
		fc.callStackMutex.Unlock()
	}
	fc.callStackMutex.RLock()
	defer fc.callStackMutex.RUnlock()

	scanner := bufio.NewScanner(bytes.NewReader(fc.callStackBuffer))
	stackTrace := []string{}
	isRelevantCall := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "goroutine ") {
			if isRelevantCall {
				break
			}

			isRelevantCall = strings.HasPrefix(line, fmt.Sprintf("goroutine %v ", callGoid))
		}

		if isRelevantCall {
			stackTrace = append(stackTrace, line)
		}
	}

	if !isRelevantCall {
		return "call stack not found"
	}

	return strings.Join(stackTrace, "\n")
}
