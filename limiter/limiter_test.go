package limiter

import (
	"errors"
	"testing"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]string{".*/laser_scan=5", "/tf=0.5"})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("have %d rules, want 2", len(rules))
	}
	if rules[0].MaxHz != 5 || rules[1].MaxHz != 0.5 {
		t.Errorf("frequencies = %g, %g", rules[0].MaxHz, rules[1].MaxHz)
	}
}

func TestParseRulesErrors(t *testing.T) {
	for _, entry := range []string{
		"no_equals_sign",
		"/scan=not_a_number",
		"/scan=0",
		"/scan=-1",
		"[=5",
	} {
		_, err := ParseRules([]string{entry})
		if err == nil {
			t.Errorf("ParseRules(%q) accepted", entry)
			continue
		}
		if !errors.Is(err, config.ErrInvalid) {
			t.Errorf("ParseRules(%q) error = %v, want config.ErrInvalid", entry, err)
		}
	}
}

func TestGateForMatchesFirstRule(t *testing.T) {
	rules, err := ParseRules([]string{".*/image_raw=2", ".*=10"})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	l := NewLimiter(rules)

	g := l.GateFor("/camera/image_raw")
	if g == nil || g.interval != int64(500*time.Millisecond) {
		t.Errorf("gate for /camera/image_raw = %+v, want 2 Hz", g)
	}
	g = l.GateFor("/chatter")
	if g == nil || g.interval != int64(100*time.Millisecond) {
		t.Errorf("gate for /chatter = %+v, want 10 Hz", g)
	}
}

func TestGateForNoMatch(t *testing.T) {
	rules, _ := ParseRules([]string{"/scan=5"})
	if g := NewLimiter(rules).GateFor("/chatter"); g != nil {
		t.Errorf("gate for unmatched name = %+v, want nil", g)
	}
	var l *Limiter
	if g := l.GateFor("/chatter"); g != nil {
		t.Errorf("nil limiter gate = %+v, want nil", g)
	}
}

func TestGateCapsRate(t *testing.T) {
	g := NewGate(5)
	base := time.Unix(1000, 0)

	// a 50 Hz source over one second
	forwarded := 0
	for i := 0; i < 50; i++ {
		if g.Allow(base.Add(time.Duration(i) * 20 * time.Millisecond)) {
			forwarded++
		}
	}
	if forwarded != 5 {
		t.Errorf("forwarded %d of 50 samples, want 5", forwarded)
	}
}

func TestGateDropsDoNotAdvanceWindow(t *testing.T) {
	g := NewGate(1)
	base := time.Unix(1000, 0)

	if !g.Allow(base) {
		t.Fatal("first sample dropped")
	}
	// dropped samples must not push the next admission further out
	g.Allow(base.Add(900 * time.Millisecond))
	if !g.Allow(base.Add(1100 * time.Millisecond)) {
		t.Error("sample after a full interval dropped")
	}
}

func TestNilGateForwardsEverything(t *testing.T) {
	var g *Gate
	for i := 0; i < 3; i++ {
		if !g.Allow(time.Now()) {
			t.Fatal("nil gate dropped a sample")
		}
	}
}
