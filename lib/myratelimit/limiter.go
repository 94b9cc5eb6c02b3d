package myratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mymetrics"
	"github.com/MarcGrol/dobmilano/lib/mytime"
)

const (
	DefaultMaxEntries = 10000
	rejectMessage     = "Troppe richieste. Riprova tra poco."
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter allows limit requests per key within a rolling window, as a token bucket
// that refills over the window. State is per process: it is lost on restart and not
// shared between instances, so the limit is approximate when the service is scaled out.
type Limiter struct {
	sync.Mutex
	nower      mytime.Nower
	limit      int
	every      rate.Limit
	maxEntries int
	clients    map[string]*client
}

func New(nower mytime.Nower, limit int, windowSize time.Duration, maxEntries int) *Limiter {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		nower:      nower,
		limit:      limit,
		every:      rate.Every(windowSize / time.Duration(limit)),
		maxEntries: maxEntries,
		clients:    map[string]*client{},
	}
}

// idle reports whether the bucket refilled completely; forgetting it then changes nothing.
func (l *Limiter) idle(cl *client, now time.Time) bool {
	return cl.limiter.TokensAt(now) >= float64(l.limit)
}

// Allow counts a request for key and reports whether it is within the limit.
// When rejected, retryAfter tells how long until the next request is allowed.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.Lock()
	defer l.Unlock()

	now := l.nower.Now()

	cl, found := l.clients[key]
	if found && l.idle(cl, now) {
		// evict on read
		delete(l.clients, key)
		found = false
	}

	if !found {
		if len(l.clients) >= l.maxEntries {
			l.evict(now)
		}
		cl = &client{limiter: rate.NewLimiter(l.every, l.limit)}
		l.clients[key] = cl
	}
	cl.lastSeen = now

	reservation := cl.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// evict drops idle clients, and the least recently seen one when all are active.
func (l *Limiter) evict(now time.Time) {
	var oldestKey string
	var oldestSeen time.Time
	for key, cl := range l.clients {
		if l.idle(cl, now) {
			delete(l.clients, key)
			continue
		}
		if oldestKey == "" || cl.lastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = key, cl.lastSeen
		}
	}
	if len(l.clients) >= l.maxEntries && oldestKey != "" {
		delete(l.clients, oldestKey)
	}
}

func (l *Limiter) Size() int {
	l.Lock()
	defer l.Unlock()
	return len(l.clients)
}

// Middleware limits POST requests per (path, client ip).
func (l *Limiter) Middleware(logger mylog.Logger) func(http.Handler) http.Handler {
	errorWriter := myhttp.NewWriter(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := myhttp.ClientIP(r)
			allowed, retryAfter := l.Allow(r.URL.Path + "|" + clientIP)
			if !allowed {
				c := mycontext.ContextFromHTTPRequest(r)
				mymetrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Round(time.Millisecond).Seconds()))))
				errorWriter.WriteError(c, w, 1, myerrors.NewTooManyRequestsError(
					fmt.Errorf("rate limit exceeded for %s on %s", clientIP, r.URL.Path)).WithMessage(rejectMessage))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
