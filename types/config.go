package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Server struct {
		Port string `yaml:"port" envconfig:"FRONTEND_SERVER_PORT"`
		Host string `yaml:"host" envconfig:"FRONTEND_SERVER_HOST"`
	} `yaml:"server"`

	Chain struct {
		DisplayName string `yaml:"displayName" envconfig:"CHAIN_DISPLAY_NAME"`
		TokenSymbol string `yaml:"tokenSymbol" envconfig:"CHAIN_TOKEN_SYMBOL"`
	} `yaml:"chain"`

	Frontend struct {
		Enabled bool `yaml:"enabled" envconfig:"FRONTEND_ENABLED"`
		Debug   bool `yaml:"debug" envconfig:"FRONTEND_DEBUG"`
		Pprof   bool `yaml:"pprof" envconfig:"FRONTEND_PPROF"`
		Minify  bool `yaml:"minify" envconfig:"FRONTEND_MINIFY"`

		SiteDomain      string `yaml:"siteDomain" envconfig:"FRONTEND_SITE_DOMAIN"`
		SiteName        string `yaml:"siteName" envconfig:"FRONTEND_SITE_NAME"`
		SiteSubtitle    string `yaml:"siteSubtitle" envconfig:"FRONTEND_SITE_SUBTITLE"`
		SiteDescription string `yaml:"siteDescription" envconfig:"FRONTEND_SITE_DESCRIPTION"`

		PageCallTimeout  time.Duration `yaml:"pageCallTimeout" envconfig:"FRONTEND_PAGE_CALL_TIMEOUT"`
		HttpReadTimeout  time.Duration `yaml:"httpReadTimeout" envconfig:"FRONTEND_HTTP_READ_TIMEOUT"`
		HttpWriteTimeout time.Duration `yaml:"httpWriteTimeout" envconfig:"FRONTEND_HTTP_WRITE_TIMEOUT"`
		HttpIdleTimeout  time.Duration `yaml:"httpIdleTimeout" envconfig:"FRONTEND_HTTP_IDLE_TIMEOUT"`
		DisablePageCache bool          `yaml:"disablePageCache" envconfig:"FRONTEND_DISABLE_PAGE_CACHE"`
	} `yaml:"frontend"`

	Tables struct {
		DefaultLimit    uint64        `yaml:"defaultLimit" envconfig:"TABLES_DEFAULT_LIMIT"`
		MaxLimit        uint64        `yaml:"maxLimit" envconfig:"TABLES_MAX_LIMIT"`
		LimitOptions    []uint64      `yaml:"limitOptions" envconfig:"TABLES_LIMIT_OPTIONS"`
		RefetchInterval time.Duration `yaml:"refetchInterval" envconfig:"TABLES_REFETCH_INTERVAL"`
		IndexLimit      uint64        `yaml:"indexLimit" envconfig:"TABLES_INDEX_LIMIT"`
		HistoryCacheTtl time.Duration `yaml:"historyCacheTtl" envconfig:"TABLES_HISTORY_CACHE_TTL"`
	} `yaml:"tables"`

	LedgerApi struct {
		Endpoint  string            `yaml:"endpoint" envconfig:"LEDGERAPI_ENDPOINT"`
		Endpoints []EndpointConfig  `yaml:"endpoints"`
		Headers   map[string]string `yaml:"headers"`

		CallTimeout time.Duration `yaml:"callTimeout" envconfig:"LEDGERAPI_CALL_TIMEOUT"`
		StaleTime   time.Duration `yaml:"staleTime" envconfig:"LEDGERAPI_STALE_TIME"`
		GcTime      time.Duration `yaml:"gcTime" envconfig:"LEDGERAPI_GC_TIME"`
	} `yaml:"ledgerApi"`

	Cache struct {
		LocalCacheSize   int    `yaml:"localCacheSize" envconfig:"CACHE_LOCAL_CACHE_SIZE"`
		RedisCacheAddr   string `yaml:"redisCacheAddr" envconfig:"CACHE_REDIS_CACHE_ADDR"`
		RedisCachePrefix string `yaml:"redisCachePrefix" envconfig:"CACHE_REDIS_CACHE_PREFIX"`
	} `yaml:"cache"`

	Api struct {
		Enabled     bool     `yaml:"enabled" envconfig:"API_ENABLED"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"API_CORS_ORIGINS"`
	} `yaml:"api"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled" envconfig:"RATELIMIT_ENABLED"`
		ProxyCount uint `yaml:"proxyCount" envconfig:"RATELIMIT_PROXY_COUNT"`
		Rate       uint `yaml:"rate" envconfig:"RATELIMIT_RATE"`
		Burst      uint `yaml:"burst" envconfig:"RATELIMIT_BURST"`
	} `yaml:"rateLimit"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Public  bool   `yaml:"public" envconfig:"METRICS_PUBLIC"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

type EndpointConfig struct {
	Url      string            `yaml:"url"`
	Name     string            `yaml:"name"`
	Priority int               `yaml:"priority"`
	Headers  map[string]string `yaml:"headers"`
}
