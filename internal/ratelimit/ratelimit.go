// Package ratelimit provides an in-process sliding-window rate limiter.
// State is process-local and resets on restart; counters age out of the
// window without any persistence. Limiters are explicit injectable values
// so tests can construct isolated instances.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a sliding-window counter keyed by an arbitrary string.
// Safe for concurrent use; the capacity check and the consumption are
// performed under one lock so concurrent bursts cannot overshoot.
type Limiter struct {
	points int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// New creates a limiter admitting at most points consumptions per key
// within a trailing window.
func New(points int, window time.Duration) *Limiter {
	l := &Limiter{
		points: points,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
		done:   make(chan struct{}),
	}

	go l.janitor()
	return l
}

// Allow consumes one point for key if the sliding count within the
// trailing window is below capacity. A rejected attempt records nothing,
// so it neither extends the caller's wait nor double-penalizes it.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := pruneBefore(l.hits[key], cutoff)

	if len(recent) >= l.points {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

// Remaining reports how many consumptions key has left in the current window
func (l *Limiter) Remaining(key string) int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	used := len(pruneBefore(l.hits[key], cutoff))
	if used >= l.points {
		return 0
	}
	return l.points - used
}

// Close stops the background sweep goroutine
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// janitor periodically drops keys whose entries have all aged out, so an
// idle process does not accumulate dead keys.
func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			l.mu.Lock()
			for key, times := range l.hits {
				recent := pruneBefore(times, cutoff)
				if len(recent) == 0 {
					delete(l.hits, key)
				} else {
					l.hits[key] = recent
				}
			}
			l.mu.Unlock()
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	// times is append-ordered, so find the first entry still inside the window
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append([]time.Time(nil), times[i:]...)
}

// Set bundles the three limiters the service needs, with the budgets the
// product ships with.
type Set struct {
	Vote       *Limiter // vote attempts per (ip, identity)
	Checkout   *Limiter // checkout attempts per (ip, identity)
	CreatePoll *Limiter // poll creation per ip
}

// NewSet creates the production limiter set: 5 votes per 5 minutes,
// 3 checkouts per 15 minutes, 5 poll creations per hour.
func NewSet() *Set {
	return &Set{
		Vote:       New(5, 5*time.Minute),
		Checkout:   New(3, 15*time.Minute),
		CreatePoll: New(5, 60*time.Minute),
	}
}

// Close stops all limiters in the set
func (s *Set) Close() {
	s.Vote.Close()
	s.Checkout.Close()
	s.CreatePoll.Close()
}

// VoteKey builds the vote-limiter key for an (ip, identity hash) pair
func VoteKey(ip, clientHash string) string {
	return fmt.Sprintf("vote:%s:%s", ip, clientHash)
}

// CheckoutKey builds the checkout-limiter key for an (ip, identity hash) pair
func CheckoutKey(ip, clientHash string) string {
	return fmt.Sprintf("checkout:%s:%s", ip, clientHash)
}

// CreatePollKey builds the poll-creation-limiter key for an ip
func CreatePollKey(ip string) string {
	return fmt.Sprintf("create:%s", ip)
}
