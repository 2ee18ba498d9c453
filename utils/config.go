package utils

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/suiscope/config"
	"github.com/ethpandaops/suiscope/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return fmt.Errorf("error reading config from environment: %v", err)
	}

	applyConfigDefaults(cfg)

	// endpoints
	if len(cfg.LedgerApi.Endpoints) == 0 && cfg.LedgerApi.Endpoint != "" {
		cfg.LedgerApi.Endpoints = []types.EndpointConfig{
			{
				Url:  cfg.LedgerApi.Endpoint,
				Name: "default",
			},
		}
	}
	if len(cfg.LedgerApi.Endpoints) == 0 {
		return fmt.Errorf("missing ledger api endpoints (need at least 1 endpoint to run the explorer)")
	}
	for idx := range cfg.LedgerApi.Endpoints {
		endpoint := &cfg.LedgerApi.Endpoints[idx]
		if endpoint.Url == "" {
			return fmt.Errorf("ledger api endpoint %v has no url", idx)
		}
		if endpoint.Name == "" {
			endpoint.Name = fmt.Sprintf("endpoint-%v", idx+1)
		}

		// shared headers, endpoint headers take precedence
		if len(cfg.LedgerApi.Headers) > 0 {
			if endpoint.Headers == nil {
				endpoint.Headers = map[string]string{}
			}
			err = mergo.Merge(&endpoint.Headers, cfg.LedgerApi.Headers)
			if err != nil {
				return fmt.Errorf("error merging headers of ledger api endpoint %v: %v", endpoint.Name, err)
			}
		}
	}

	if cfg.Tables.DefaultLimit > cfg.Tables.MaxLimit {
		return fmt.Errorf("tables.defaultLimit (%v) exceeds tables.maxLimit (%v)", cfg.Tables.DefaultLimit, cfg.Tables.MaxLimit)
	}

	log.WithFields(log.Fields{
		"chain":           cfg.Chain.DisplayName,
		"endpoints":       len(cfg.LedgerApi.Endpoints),
		"refetchInterval": cfg.Tables.RefetchInterval,
		"staleTime":       cfg.LedgerApi.StaleTime,
	}).Infof("did init config")

	return nil
}

// readConfigFile loads the embedded default config and applies the optional
// config file on top of it.
func readConfigFile(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error decoding default config: %v", err)
	}
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	// fields missing in the file keep their default values
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

func applyConfigDefaults(cfg *types.Config) {
	if cfg.Tables.DefaultLimit == 0 {
		cfg.Tables.DefaultLimit = 20
	}
	if cfg.Tables.MaxLimit == 0 {
		cfg.Tables.MaxLimit = 100
	}
	if cfg.Tables.IndexLimit == 0 {
		cfg.Tables.IndexLimit = 5
	}
	if len(cfg.Tables.LimitOptions) == 0 {
		cfg.Tables.LimitOptions = []uint64{20, 40, 60}
	}
	if cfg.Tables.HistoryCacheTtl == 0 {
		cfg.Tables.HistoryCacheTtl = 10 * time.Minute
	}
	if cfg.LedgerApi.CallTimeout == 0 {
		cfg.LedgerApi.CallTimeout = 30 * time.Second
	}
	if cfg.Frontend.PageCallTimeout == 0 {
		cfg.Frontend.PageCallTimeout = 55 * time.Second
	}
	if cfg.Chain.TokenSymbol == "" {
		cfg.Chain.TokenSymbol = "SUI"
	}
}
