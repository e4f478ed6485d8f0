// Package ratelimit throttles booking submissions so a misbehaving client
// cannot flood the reservation engine.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	BookingCooldown   time.Duration // Minimum time between bookings per actor (default: 1s)
	BookingMaxPerHour int           // Max bookings per actor per hour (default: 120)
	MaxIPPerHour      int           // Max bookings per IP per hour (default: 300)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		BookingCooldown:   time.Second,
		BookingMaxPerHour: 120,
		MaxIPPerHour:      300,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter implements per-actor and per-IP booking rate limiting.
type Limiter struct {
	config  *Config
	clock   Clock
	mu      sync.Mutex
	byActor map[string]*entry
	byIP    map[string]*entry
	lastGC  time.Time
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config:  cfg,
		clock:   clock,
		byActor: make(map[string]*entry),
		byIP:    make(map[string]*entry),
	}
}

// CheckBooking checks and records one booking attempt for the actor and IP.
func (l *Limiter) CheckBooking(tenantID, userID int64, ip string) LimitResult {
	now := l.clock.Now()
	actorKey := l.hashKey("actor:", fmt.Sprintf("%d:%d", tenantID, userID))
	ipKey := l.hashKey("ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeCleanup(now)

	if e := l.byActor[actorKey]; e != nil && now.Sub(e.firstAt) < time.Hour {
		if elapsed := now.Sub(e.lastAt); elapsed < l.config.BookingCooldown {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.BookingCooldown - elapsed,
				Reason:     "cooldown",
			}
		}
		if e.count >= l.config.BookingMaxPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}
	if e := l.byIP[ipKey]; e != nil && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxIPPerHour {
		return LimitResult{
			Allowed:    false,
			RetryAfter: time.Hour - now.Sub(e.firstAt),
			Reason:     "ip_hourly_limit",
		}
	}

	l.record(l.byActor, actorKey, now)
	l.record(l.byIP, ipKey, now)
	return LimitResult{Allowed: true}
}

func (l *Limiter) record(m map[string]*entry, key string, now time.Time) {
	e := m[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		m[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

// maybeCleanup drops stale windows. Called under the lock; throttled so the
// scan does not run on every request.
func (l *Limiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastGC) < 5*time.Minute {
		return
	}
	l.lastGC = now
	for k, e := range l.byActor {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byActor, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost IP from X-Forwarded-For (added by your proxy).
// When trustProxy is false, ignores X-Forwarded-For entirely (prevents spoofing).
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			return strings.TrimSpace(parts[len(parts)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

// privateNetworks holds parsed CIDR ranges for private/reserved IPs.
var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10", // Link-local
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP checks if an IP is in a private/reserved range.
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// LogRateLimitExceeded logs a rate limit event.
func LogRateLimitExceeded(tenantID, userID int64, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Int64("tenant_id", tenantID).
		Int64("user_id", userID).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Booking rate limit exceeded")
}
