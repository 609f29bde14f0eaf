// Package stats provides per-route forwarding counters.
package stats

import "sync/atomic"

type Kind int

const (
	// KindForwarded counts samples forwarded by a route.
	KindForwarded Kind = iota
	// KindDroppedDownsampled counts samples dropped by the frequency gate.
	KindDroppedDownsampled
	// KindDroppedCongestion counts samples discarded under congestion by
	// a route with drop delivery mode.
	KindDroppedCongestion
	// KindErrors counts forwarding errors.
	KindErrors
)

type Stats struct {
	updated    atomic.Bool
	forwarded  atomic.Uint64
	downsample atomic.Uint64
	congestion atomic.Uint64
	errs       atomic.Uint64
}

func (s *Stats) Add(kind Kind, n int64) {
	if s == nil || n <= 0 {
		return
	}
	switch kind {
	case KindForwarded:
		s.forwarded.Add(uint64(n))
	case KindDroppedDownsampled:
		s.downsample.Add(uint64(n))
	case KindDroppedCongestion:
		s.congestion.Add(uint64(n))
	case KindErrors:
		s.errs.Add(uint64(n))
	}
	s.updated.Store(true)
}

func (s *Stats) Get(kind Kind) uint64 {
	if s == nil {
		return 0
	}
	switch kind {
	case KindForwarded:
		return s.forwarded.Load()
	case KindDroppedDownsampled:
		return s.downsample.Load()
	case KindDroppedCongestion:
		return s.congestion.Load()
	case KindErrors:
		return s.errs.Load()
	}
	return 0
}

func (s *Stats) Reset() {
	s.updated.Store(false)
	s.forwarded.Store(0)
	s.downsample.Store(0)
	s.congestion.Store(0)
	s.errs.Store(0)
}

func (s *Stats) IsUpdated() bool {
	return s.updated.Swap(false)
}
