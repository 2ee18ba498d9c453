package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/utils"
)

// TieredCache combines a local in-memory cache with an optional shared redis cache.
// Values are stored as json envelopes so both tiers hold the same representation.
type TieredCache struct {
	logger       logrus.FieldLogger
	localGoCache *freecache.Cache
	remoteCache  RemoteCache
}

type cachedValue struct {
	Version uint64      `json:"i"`
	Timeout uint64      `json:"t"`
	Value   interface{} `json:"v"`
}

var CacheMissError error = errors.New("cache miss")

type RemoteCache interface {
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type TieredCacheStats struct {
	LocalEntries int64
	LocalHits    int64
	LocalMisses  int64
	HitRate      float64
	Remote       bool
}

func NewTieredCache(logger logrus.FieldLogger, cacheSizeMb int, redisAddress string, redisPrefix string) (*TieredCache, error) {
	var remoteCache RemoteCache
	if redisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		var err error
		remoteCache, err = InitRedisCache(ctx, redisAddress, redisPrefix)
		if err != nil {
			logger.WithError(err).Errorf("error initializing remote redis cache. address: %v", redisAddress)
			return nil, err
		}
	}
	if cacheSizeMb <= 0 {
		cacheSizeMb = 100
	}

	return &TieredCache{
		logger:       logger,
		remoteCache:  remoteCache,
		localGoCache: freecache.NewCache(cacheSizeMb * 1024 * 1024),
	}, nil
}

func (cache *TieredCache) Set(key string, value interface{}, expiration time.Duration) error {
	cacheValue := cachedValue{
		Version: 1,
		Value:   value,
	}
	if expiration > 0 {
		cacheValue.Timeout = uint64(time.Now().Add(expiration).Unix())
	}

	valueMarshal, err := json.Marshal(cacheValue)
	if err != nil {
		return err
	}
	err = cache.localGoCache.Set([]byte(key), valueMarshal, expirySeconds(expiration))
	if err != nil {
		// entries larger than a freecache segment are kept remote only
		cache.logger.Debugf("local cache rejected %v: %v", key, err)
	}
	if cache.remoteCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		return cache.remoteCache.SetBytes(ctx, key, valueMarshal, expiration)
	}
	return nil
}

// Get decodes the cached value for key into returnValue.
func (cache *TieredCache) Get(key string, returnValue interface{}) (interface{}, error) {
	cacheValue := &cachedValue{
		Value: returnValue,
	}

	wanted, err := cache.localGoCache.Get([]byte(key))
	if err == nil {
		err = json.Unmarshal(wanted, cacheValue)
		if err != nil {
			utils.LogError(err, "error unmarshalling data for key", 0, map[string]interface{}{"key": key})
			cache.localGoCache.Del([]byte(key))
			return nil, err
		}

		return returnValue, nil
	}

	if cache.remoteCache == nil {
		return nil, CacheMissError
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	remoteValue, err := cache.remoteCache.GetBytes(ctx, key)
	if err != nil {
		return nil, CacheMissError
	}
	err = json.Unmarshal(remoteValue, cacheValue)
	if err != nil {
		utils.LogError(err, "error unmarshalling remote data for key", 0, map[string]interface{}{"key": key})
		cache.remoteCache.Delete(ctx, key)
		return nil, err
	}

	// promote to the local cache unless the entry is about to expire
	now := uint64(time.Now().Unix())
	if cacheValue.Timeout == 0 {
		cache.localGoCache.Set([]byte(key), remoteValue, 0)
	} else if cacheValue.Timeout > now+2 {
		cache.localGoCache.Set([]byte(key), remoteValue, int(cacheValue.Timeout-now))
	}
	return returnValue, nil
}

func (cache *TieredCache) Delete(key string) {
	cache.localGoCache.Del([]byte(key))
	if cache.remoteCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		if err := cache.remoteCache.Delete(ctx, key); err != nil {
			cache.logger.Warnf("failed deleting %v from remote cache: %v", key, err)
		}
	}
}

func (cache *TieredCache) Stats() TieredCacheStats {
	return TieredCacheStats{
		LocalEntries: cache.localGoCache.EntryCount(),
		LocalHits:    cache.localGoCache.HitCount(),
		LocalMisses:  cache.localGoCache.MissCount(),
		HitRate:      cache.localGoCache.HitRate(),
		Remote:       cache.remoteCache != nil,
	}
}

func (cache *TieredCache) Close() error {
	cache.localGoCache.Clear()
	if cache.remoteCache != nil {
		return cache.remoteCache.Close()
	}
	return nil
}

func expirySeconds(expiration time.Duration) int {
	if expiration <= 0 {
		return 0
	}
	seconds := int(expiration.Seconds())
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}
