package models

import "time"

type ErrorPageData struct {
	CallTime   time.Time
	CallUrl    string
	ErrorMsg   string
	StackTrace string
	Version    string
}

type DebugCachePageData struct {
	QueryStats string
	PageStats  string
	Endpoints  []*DebugCacheEndpoint
}

type DebugCacheEndpoint struct {
	Name      string
	Status    string
	Head      uint64
	LastEvent string
	LastError string
}
