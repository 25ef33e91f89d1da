package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/intlpay/backend/internal/services"
	"github.com/tomasen/realip"
	"golang.org/x/time/rate"
)

const clientIdleTimeout = 3 * time.Minute

// IPRateLimit allows each client IP requests per window, refilled evenly.
// Idle clients are forgotten until ctx is cancelled.
func IPRateLimit(ctx context.Context, requests int, window time.Duration) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastseen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	if requests <= 0 {
		requests = 1
	}
	every := rate.Every(window / time.Duration(requests))
	retryAfter := strconv.Itoa(int(math.Ceil((window / time.Duration(requests)).Seconds())))

	// background routine to remove old entries from the map
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastseen) > clientIdleTimeout {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := realip.FromRequest(r)

			mu.Lock()
			c, found := clients[ip]
			if !found {
				c = &client{limiter: rate.NewLimiter(every, requests)}
				clients[ip] = c
			}
			c.lastseen = time.Now()
			allowed := c.limiter.Allow()
			mu.Unlock()

			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				services.SendErrorResponse(w, "Too many requests from this IP, please try again later.", http.StatusTooManyRequests, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
