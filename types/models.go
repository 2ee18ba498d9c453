package types

import "html/template"

// PageData is a struct to hold web page data
type PageData struct {
	Active           string
	Meta             *Meta
	Data             interface{}
	Version          string
	BuildTime        string
	Year             int
	ExplorerTitle    string
	ExplorerSubtitle string
	ChainName        string
	ChainId          string
	TokenSymbol      string
	IsReady          bool
	InfoBanner       *template.HTML
	Debug            bool
	DebugTemplates   []string
	MainMenuItems    []MainMenuItem
	ApiEnabled       bool
}

type MainMenuItem struct {
	Label    string
	Path     string
	Icon     string
	IsActive bool
}

// Meta is a struct to hold metadata about the page
type Meta struct {
	Title       string
	Description string
	Domain      string
	Path        string
	Templates   string
	// RefreshSeconds adds a meta refresh tag when positive.
	RefreshSeconds int
}

type Empty struct{}
