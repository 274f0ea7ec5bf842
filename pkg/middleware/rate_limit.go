package middleware

import (
	"net/http"
	"sync"
	"time"

	"fleetlink/pkg/logger"
)

// CustomerExtractor pulls the rate-limit key out of a request. Requests
// without a key (anonymous browsing, health checks) are not limited.
type CustomerExtractor func(r *http.Request) string

func DefaultCustomerExtractor(r *http.Request) string {
	if id := r.Header.Get("X-Customer-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("customer_id")
}

type CustomerRateLimiter struct {
	mu        sync.RWMutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor CustomerExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

func NewCustomerRateLimiter(limit int, window time.Duration, extractor CustomerExtractor, log *logger.Logger) *CustomerRateLimiter {
	limiter := &CustomerRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *CustomerRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for customer, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, customer)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *CustomerRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *CustomerRateLimiter) Allow(customer string) bool {
	if customer == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	validTimestamps := make([]time.Time, 0)
	for _, ts := range rl.requests[customer] {
		if now.Sub(ts) < rl.window {
			validTimestamps = append(validTimestamps, ts)
		}
	}

	if len(validTimestamps) >= rl.limit {
		rl.requests[customer] = validTimestamps
		return false
	}

	rl.requests[customer] = append(validTimestamps, now)
	return true
}

func CustomerRateLimit(limiter *CustomerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customer := extractCustomer(r, limiter.extractor)

			if customer == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(customer) {
				rejectRateLimited(w, limiter.log, r, customer)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractCustomer(r *http.Request, extractor CustomerExtractor) string {
	if extractor == nil {
		return DefaultCustomerExtractor(r)
	}
	return extractor(r)
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, customer string) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestID(r),
		"customer_id", customer,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests, slow down"}`))
}
