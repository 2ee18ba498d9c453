package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/utils"
)

// APIErrorResponse writes an api error in the {"status": ...} envelope.
func APIErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{"status": message}); err != nil {
		logrus.WithError(err).Error("failed to encode API error response")
	}
}

// GetClientIP extracts the client ip, honoring the configured number of reverse proxies.
func GetClientIP(r *http.Request) string {
	if proxyCount := utils.Config.RateLimit.ProxyCount; proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		if forwardIdx := len(forwardIps) - int(proxyCount); forwardIdx >= 0 && forwardIps[forwardIdx] != "" {
			return forwardIps[forwardIdx]
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
