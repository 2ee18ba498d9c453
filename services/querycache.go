package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/querycache"
	"github.com/ethpandaops/suiscope/utils"
)

// GlobalQueryCache is shared by every table view of the process.
var GlobalQueryCache *querycache.QueryCache

// StartQueryCache is used to start the global query cache
func StartQueryCache(logger logrus.FieldLogger) error {
	if GlobalQueryCache != nil {
		return nil
	}

	GlobalQueryCache = querycache.NewQueryCache(querycache.Config{
		StaleTime:   utils.Config.LedgerApi.StaleTime,
		GCTime:      utils.Config.LedgerApi.GcTime,
		CallTimeout: utils.Config.LedgerApi.CallTimeout,
	}, logger.WithField("service", "query-cache"), prometheus.DefaultRegisterer)
	return nil
}

func StopQueryCache() {
	if GlobalQueryCache != nil {
		GlobalQueryCache.Close()
		GlobalQueryCache = nil
	}
}
