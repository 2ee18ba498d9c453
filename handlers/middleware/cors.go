package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/ethpandaops/suiscope/utils"
)

// CorsMiddleware allows cross origin reads of the api for the configured origins.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && utils.Config.Api.Enabled {
			w.Header().Add("Vary", "Origin")
			for _, allowed := range utils.Config.Api.CorsOrigins {
				if matchOrigin(allowed, origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					break
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// matchOrigin matches an origin against a pattern where * matches any sequence.
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}

	pattern = "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "\\*", ".*") + "$"
	matched, err := regexp.MatchString(pattern, origin)
	if err != nil {
		return false
	}
	return matched
}
