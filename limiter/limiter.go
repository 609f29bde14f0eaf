// Package limiter implements per-route publication rate limiting
// (downsampling) driven by "<regex>=<max_hz>" rules.
package limiter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
)

// Rule associates a compiled interface-name regex with a maximum
// publication frequency in Hz.
type Rule struct {
	re    *regexp.Regexp
	MaxHz float64
}

func (r Rule) String() string {
	return fmt.Sprintf("%s=%g", r.re, r.MaxHz)
}

// ParseRules parses "<regex>=<max_hz>" entries. A malformed entry or an
// uncompilable regex is a fatal configuration error.
func ParseRules(entries []string) ([]Rule, error) {
	var rules []Rule
	for _, entry := range entries {
		pattern, hz, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: frequency rule %q: expected \"<regex>=<float>\"", config.ErrInvalid, entry)
		}
		maxHz, err := strconv.ParseFloat(hz, 64)
		if err != nil || maxHz <= 0 {
			return nil, fmt.Errorf("%w: frequency rule %q: bad frequency %q", config.ErrInvalid, entry, hz)
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: frequency rule %q: %v", config.ErrInvalid, entry, err)
		}
		rules = append(rules, Rule{re: re, MaxHz: maxHz})
	}
	return rules, nil
}

// Limiter holds the rule table. It is read-only after construction and
// safe for unsynchronized sharing.
type Limiter struct {
	rules []Rule
}

func NewLimiter(rules []Rule) *Limiter {
	return &Limiter{rules: rules}
}

// GateFor returns the rate gate for the route with the given interface
// name, applying the first matching rule in declaration order, or nil when
// no rule matches (unlimited).
func (l *Limiter) GateFor(name string) *Gate {
	if l == nil {
		return nil
	}
	for _, rule := range l.rules {
		if rule.re.MatchString(name) {
			return NewGate(rule.MaxHz)
		}
	}
	return nil
}

// Gate is a per-route rate gate. A sample is forwarded iff the time
// elapsed since the last forwarded sample is at least 1/max_hz; dropped
// samples leave the timestamp untouched, so the forwarded rate never
// exceeds max_hz regardless of source burstiness.
//
// A nil Gate forwards everything.
type Gate struct {
	interval int64 // minimum inter-sample interval, nanoseconds
	last     atomic.Int64
}

func NewGate(maxHz float64) *Gate {
	return &Gate{
		interval: int64(float64(time.Second) / maxHz),
	}
}

// Allow reports whether a sample observed at now may be forwarded, and if
// so accounts for it. Safe for concurrent use on the forwarding path: the
// timestamp update is a compare-and-swap against the value compared, so a
// burst can not exceed the configured rate.
func (g *Gate) Allow(now time.Time) bool {
	if g == nil {
		return true
	}
	t := now.UnixNano()
	for {
		last := g.last.Load()
		if last != 0 && t-last < g.interval {
			return false
		}
		if g.last.CompareAndSwap(last, t) {
			return true
		}
	}
}
