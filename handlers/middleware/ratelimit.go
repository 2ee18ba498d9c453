package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
)

// RateLimitMiddleware charges the call cost of each api request to the
// global call rate limiter. Requests pass unchecked when rate limiting is disabled.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cost := GetCallCost(r)
		if cost > 0 {
			err := services.GlobalCallRateLimiter.CheckCallLimit(r, uint(cost))
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"client_ip": GetClientIP(r),
					"path":      r.URL.Path,
					"cost":      cost,
				}).Warn("API rate limit exceeded")

				APIErrorResponse(w, http.StatusTooManyRequests, "ERROR: "+err.Error())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
