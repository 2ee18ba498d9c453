package services

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/suiscope/metrics"
)

var (
	ErrCallRateLimited = errors.New("call rate limit exceeded")
	ErrUnknownVisitor  = errors.New("could not get visitor")
)

type CallRateLimiter struct {
	proxyCount uint
	rateLimit  uint
	burstLimit uint

	mutex    sync.Mutex
	visitors map[string]*callRateVisitor
	stopChan chan struct{}

	visitorsCount prometheus.Gauge
	newVisitors   prometheus.Counter
}

type callRateVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var GlobalCallRateLimiter *CallRateLimiter

// StartCallRateLimiter is used to start the global call rate limiter
func StartCallRateLimiter(proxyCount uint, rateLimit uint, burstLimit uint) error {
	if GlobalCallRateLimiter != nil {
		return nil
	}

	GlobalCallRateLimiter = NewCallRateLimiter(proxyCount, rateLimit, burstLimit, prometheus.DefaultRegisterer)
	go GlobalCallRateLimiter.cleanupVisitors()

	metrics.AddPreCollectFn(GlobalCallRateLimiter.updateMetrics)

	return nil
}

func NewCallRateLimiter(proxyCount uint, rateLimit uint, burstLimit uint, registerer prometheus.Registerer) *CallRateLimiter {
	factory := promauto.With(registerer)
	return &CallRateLimiter{
		proxyCount: proxyCount,
		rateLimit:  rateLimit,
		burstLimit: burstLimit,

		visitors: map[string]*callRateVisitor{},
		stopChan: make(chan struct{}),

		visitorsCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "suiscope_call_rate_limiter_visitors_count",
			Help: "Number of visitors in the call rate limiter",
		}),
		newVisitors: factory.NewCounter(prometheus.CounterOpts{
			Name: "suiscope_call_rate_limiter_new_visitors_count",
			Help: "Number of new visitors in the call rate limiter",
		}),
	}
}

// CheckCallLimit consumes callCost tokens of the visitor behind r.
func (crl *CallRateLimiter) CheckCallLimit(r *http.Request, callCost uint) error {
	if crl == nil {
		return nil
	}
	visitor := crl.getVisitor(r)
	if visitor == nil {
		return ErrUnknownVisitor
	}
	if !visitor.limiter.AllowN(time.Now(), int(callCost)) {
		return ErrCallRateLimited
	}
	return nil
}

func (crl *CallRateLimiter) getVisitor(r *http.Request) *callRateVisitor {
	var ip string

	if crl.proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		forwardIdx := len(forwardIps) - int(crl.proxyCount)
		if forwardIdx >= 0 {
			ip = forwardIps[forwardIdx]
		}
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return nil
		}
	}

	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	visitor := crl.visitors[ip]
	if visitor == nil {
		visitor = &callRateVisitor{
			limiter:  rate.NewLimiter(rate.Limit(crl.rateLimit), int(crl.burstLimit)),
			lastSeen: time.Now(),
		}
		crl.visitors[ip] = visitor

		crl.newVisitors.Inc()
	} else {
		visitor.lastSeen = time.Now()
	}
	return visitor
}

func (crl *CallRateLimiter) updateMetrics() {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	crl.visitorsCount.Set(float64(len(crl.visitors)))
}

func (crl *CallRateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-crl.stopChan:
			return
		case <-ticker.C:
		}

		crl.pruneVisitors(time.Now())
	}
}

func (crl *CallRateLimiter) pruneVisitors(now time.Time) int {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	pruned := 0
	for ip, v := range crl.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(crl.visitors, ip)
			pruned++
		}
	}
	return pruned
}

func (crl *CallRateLimiter) Stop() {
	close(crl.stopChan)
}
