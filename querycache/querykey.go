package querycache

import (
	"fmt"
	"sort"
	"strings"
)

// QueryKey identifies a cached query by resource name and parameter tuple.
type QueryKey string

// Params is a named parameter set. Keys are rendered in sorted order, so two
// Params with the same content always produce the same QueryKey.
type Params map[string]interface{}

func NewQueryKey(resource string, params ...interface{}) QueryKey {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, resource)
	for _, param := range params {
		parts = append(parts, formatParam(param))
	}
	return QueryKey(strings.Join(parts, ":"))
}

func (k QueryKey) Resource() string {
	resource, _, _ := strings.Cut(string(k), ":")
	return resource
}

func (k QueryKey) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(k), prefix)
}

func formatParam(param interface{}) string {
	switch p := param.(type) {
	case string:
		return p
	case Params:
		return formatParamMap(p)
	case map[string]interface{}:
		return formatParamMap(p)
	case fmt.Stringer:
		return p.String()
	default:
		return fmt.Sprintf("%v", p)
	}
}

func formatParamMap(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = fmt.Sprintf("%v=%v", k, formatParam(params[k]))
	}
	return "{" + strings.Join(fields, ",") + "}"
}
