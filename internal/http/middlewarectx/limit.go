package middlewarectx

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/nusapalma/nusapalma/internal/http/response"
)

// MsgTooManyRequests is returned when a client exceeds its budget.
const MsgTooManyRequests = "Terlalu banyak permintaan, silakan coba lagi nanti"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client address. A client may
// spend maxRequests at once and regains them evenly over window.
type ClientLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	interval  time.Duration
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewClientLimiter allows maxRequests per window for each client.
func NewClientLimiter(window time.Duration, maxRequests int) *ClientLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	return &ClientLimiter{
		visitors: make(map[string]*visitor),
		interval: window / time.Duration(maxRequests),
		burst:    maxRequests,
		idle:     window,
		now:      time.Now,
	}
}

// Allow reports whether client may make a request now.
func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)

	// Idle clients are swept at most once per idle period.
	if now.Sub(l.lastSweep) >= l.idle {
		for key, other := range l.visitors {
			if now.Sub(other.lastSeen) > l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}
	return allowed
}

// Middleware answers 429 once the client behind the request is out of budget.
// Mount it after chi's RealIP so RemoteAddr is the client address.
func (l *ClientLimiter) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if !l.Allow(client) {
				log.Warn("too many requests", slog.String("client", client), slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(l.interval.Seconds()))))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(MsgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
