package utils

import (
	"encoding/json"
	"html"
	"html/template"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	logger "github.com/sirupsen/logrus"
)

// GetTemplateFuncs will get the template functions
func GetTemplateFuncs() template.FuncMap {
	fm := template.FuncMap{}

	for k, v := range sprig.FuncMap() {
		fm[k] = v
	}

	customFuncs := template.FuncMap{
		"includeHTML": IncludeHTML,
		"includeJSON": IncludeJSON,
		"html":        func(x string) template.HTML { return template.HTML(x) },
		"addUI64":     func(i, j uint64) uint64 { return i + j },
		"round": func(i float64, n int) float64 {
			return math.Round(i*math.Pow10(n)) / math.Pow10(n)
		},
		"inlist":                checkInList,
		"contains":              strings.Contains,
		"tokenSymbol":           tokenSymbol,
		"formatAddCommas":       FormatAddCommas,
		"formatFloat":           FormatFloat,
		"formatSuiAmount":       FormatSuiAmountHTML,
		"formatRecentTimeShort": FormatRecentTimeShort,
		"formatTimestamp":       FormatTimestamp,
		"formatDuration":        FormatDuration,
		"formatCell":            FormatCell,
		"durationSeconds":       func(d time.Duration) int64 { return int64(d.Seconds()) },
		"derefUint64": func(v *uint64) uint64 {
			if v == nil {
				return 0
			}
			return *v
		},
	}

	for k, v := range customFuncs {
		fm[k] = v
	}

	return fm
}

func checkInList(item, list string) bool {
	items := strings.Split(list, ",")
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}

// IncludeHTML adds html to the page
func IncludeHTML(path string) template.HTML {
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("includeHTML - error reading file: %v", err)
		return ""
	}
	return template.HTML(string(b))
}

// IncludeJSON adds json to the page
func IncludeJSON(obj any, escapeHTML bool) template.HTML {
	b, err := json.Marshal(obj)
	if err != nil {
		logger.Printf("includeJSON - error marshalling json: %v", err)
		return ""
	}

	s := string(b)
	if escapeHTML {
		s = html.EscapeString(s)
	}
	return template.HTML(s)
}
