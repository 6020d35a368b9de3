package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// sweepThreshold is the number of tracked accounts above which expired entries are dropped.
const sweepThreshold = 1024

// RateLimiter locks an account out of sign-in after repeated wrong passwords.
// Failures are counted per client IP, account type and email, so a locked
// librarian account does not block the client account with the same email.
type RateLimiter struct {
	mu       sync.Mutex
	accounts map[signinKey]*signinFailures
	limit    int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
}

type signinKey struct {
	ip       string
	userType entities.UserType
	email    string
}

type signinFailures struct {
	count       int
	since       time.Time
	lockedUntil time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // failed sign-ins within the window that trigger a lockout
	WindowDuration  time.Duration // how long failures are remembered
	LockoutDuration time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter. Unset fields take DefaultRateLimitConfig values.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = defaults.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaults.LockoutDuration
	}

	return &RateLimiter{
		accounts: make(map[signinKey]*signinFailures),
		limit:    cfg.MaxAttempts,
		window:   cfg.WindowDuration,
		lockout:  cfg.LockoutDuration,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	rl.now = now
	rl.mu.Unlock()
}

func newSigninKey(ip string, userType entities.UserType, email string) signinKey {
	return signinKey{
		ip:       ip,
		userType: entities.UserType(strings.ToLower(string(userType))),
		email:    strings.ToLower(strings.TrimSpace(email)),
	}
}

// stale reports whether f no longer affects sign-in at t.
func (rl *RateLimiter) stale(f *signinFailures, t time.Time) bool {
	return !t.Before(f.lockedUntil) && t.Sub(f.since) > rl.window
}

// Allow reports whether the account may try to sign in, and if not, how long
// its lockout lasts.
func (rl *RateLimiter) Allow(ip string, userType entities.UserType, email string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	f, ok := rl.accounts[newSigninKey(ip, userType, email)]
	if !ok {
		return true, 0
	}
	if now := rl.now(); now.Before(f.lockedUntil) {
		return false, f.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a wrong password. When the count reaches the limit the
// account is locked out and the lockout duration is returned.
func (rl *RateLimiter) RecordFailure(ip string, userType entities.UserType, email string) (bool, time.Duration) {
	key := newSigninKey(ip, userType, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.accounts) >= sweepThreshold {
		for k, f := range rl.accounts {
			if rl.stale(f, now) {
				delete(rl.accounts, k)
			}
		}
	}

	f, ok := rl.accounts[key]
	if !ok || rl.stale(f, now) {
		f = &signinFailures{since: now}
		rl.accounts[key] = f
	}

	f.count++
	if f.count < rl.limit {
		return false, 0
	}

	// the next window starts when the lockout ends
	f.count = 0
	f.since = now.Add(rl.lockout)
	f.lockedUntil = f.since
	return true, rl.lockout
}

// RecordSuccess forgets the failures of an account after it signs in.
func (rl *RateLimiter) RecordSuccess(ip string, userType entities.UserType, email string) {
	rl.mu.Lock()
	delete(rl.accounts, newSigninKey(ip, userType, email))
	rl.mu.Unlock()
}

// RateLimitMiddleware rejects sign-in posts for a locked out account.
// Apply it to the /signin/:user_type routes.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.PostForm("email")
		if c.Request.Method != http.MethodPost || email == "" {
			c.Next()
			return
		}

		userType := entities.UserType(c.Param("user_type"))
		if allowed, retryAfter := rl.Allow(c.ClientIP(), userType, email); !allowed {
			wait := retryAfter.Round(time.Minute)
			if wait < time.Minute {
				wait = time.Minute
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.String(http.StatusTooManyRequests, "Too many failed sign-in attempts. Try again in %d minutes.", int(wait.Minutes()))
			c.Abort()
			return
		}

		c.Next()
	}
}
