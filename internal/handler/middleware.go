package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AccessLog 记录每个请求的方法、路由、状态码与耗时，并更新 HTTP 指标。
func AccessLog() gin.HandlerFunc {
	log := logging.WithComponent("http")
	return func(c *gin.Context) {
		timer := metrics.NewTimer()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, route)

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", timer.Duration()).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterInfo
	every       rate.Limit
	burst       int
	idleTimeout time.Duration
	lastSweep   time.Time
}

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters:    make(map[string]*limiterInfo),
		every:       rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:       burst,
		idleTimeout: 10 * time.Minute,
		lastSweep:   time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.idleTimeout {
		for key, info := range l.limiters {
			if now.Sub(info.lastAccessed) > l.idleTimeout {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	info, ok := l.limiters[ip]
	if !ok {
		info = &limiterInfo{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter.Allow()
}

// RateLimit 按客户端 IP 限制请求频率，超出时返回 429。
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	limiter := newIPRateLimiter(requestsPerMinute, burst)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
