package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/ethpandaops/suiscope/utils"
)

type callCostKey string

const contextKeyCallCost callCostKey = "call_cost"

var (
	endpointCosts = map[string]int{}
	costMutex     sync.RWMutex
)

// SetEndpointCost sets the base call cost of an api path
func SetEndpointCost(path string, cost int) {
	costMutex.Lock()
	defer costMutex.Unlock()
	endpointCosts[path] = cost
}

func endpointCost(path string) int {
	costMutex.RLock()
	defer costMutex.RUnlock()
	if cost, found := endpointCosts[path]; found {
		return cost
	}
	return 1
}

// pageCostFactor counts how many default sized pages the requested limit spans.
func pageCostFactor(r *http.Request) int {
	if utils.Config == nil || utils.Config.Tables.DefaultLimit == 0 {
		return 1
	}
	defaultLimit := utils.Config.Tables.DefaultLimit
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultLimit, utils.Config.Tables.MaxLimit)
	return int((limit + defaultLimit - 1) / defaultLimit)
}

// CallCostMiddleware attaches the cost of the request to its context. Table
// endpoints get more expensive with page sizes above the default limit.
func CallCostMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cost := endpointCost(r.URL.Path) * pageCostFactor(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyCallCost, cost)))
	})
}

// GetCallCost returns the request cost, 1 when no cost has been attached.
func GetCallCost(r *http.Request) int {
	if cost, ok := r.Context().Value(contextKeyCallCost).(int); ok {
		return cost
	}
	return 1
}
