package config

import (
	_ "embed"
)

// explorer config
//
//go:embed default.config.yml
var DefaultConfigYml string
