package dds

import "time"

type ReliabilityKind int32

const (
	BestEffort ReliabilityKind = 0
	Reliable   ReliabilityKind = 1
)

type DurabilityKind int32

const (
	Volatile       DurabilityKind = 0
	TransientLocal DurabilityKind = 1
	Transient      DurabilityKind = 2
	Persistent     DurabilityKind = 3
)

type HistoryKind int32

const (
	KeepLast HistoryKind = 0
	KeepAll  HistoryKind = 1
)

type IgnoreLocalKind int32

const (
	IgnoreLocalNone        IgnoreLocalKind = 0
	IgnoreLocalParticipant IgnoreLocalKind = 1
)

// LengthUnlimited is the DDS "unlimited" resource-limit value.
const LengthUnlimited int32 = -1

type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

type Durability struct {
	Kind DurabilityKind
}

type History struct {
	Kind  HistoryKind
	Depth int32
}

type DurabilityService struct {
	ServiceCleanupDelay   time.Duration
	HistoryKind           HistoryKind
	HistoryDepth          int32
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

type IgnoreLocal struct {
	Kind IgnoreLocalKind
}

// QoS carries the policies the bridge cares about. Nil pointer means the
// policy was left unset by the remote entity.
type QoS struct {
	Reliability       *Reliability
	Durability        *Durability
	History           *History
	DurabilityService *DurabilityService
	IgnoreLocal       *IgnoreLocal
	Partition         []string
}

// defaultMaxBlockingTime is the DDS default reliability max_blocking_time.
const defaultMaxBlockingTime = 100 * time.Millisecond

// IsWriterReliable reports whether a writer QoS is RELIABLE.
// Writers default to RELIABLE when the policy is unset.
func IsWriterReliable(q QoS) bool {
	if q.Reliability == nil {
		return true
	}
	return q.Reliability.Kind == Reliable
}

// IsReaderReliable reports whether a reader QoS is RELIABLE.
// Readers default to BEST_EFFORT when the policy is unset.
func IsReaderReliable(q QoS) bool {
	if q.Reliability == nil {
		return false
	}
	return q.Reliability.Kind == Reliable
}

// IsTransientLocal reports whether the durability QoS is TRANSIENT_LOCAL.
func IsTransientLocal(q QoS) bool {
	return q.Durability != nil && q.Durability.Kind == TransientLocal
}

// HistoryOrDefault returns the history QoS, or the DDS default (KEEP_LAST, 1).
func HistoryOrDefault(q QoS) History {
	if q.History == nil {
		return History{Kind: KeepLast, Depth: 1}
	}
	return *q.History
}

// DurabilityServiceOrDefault returns the durability-service QoS, or its defaults.
func DurabilityServiceOrDefault(q QoS) DurabilityService {
	if q.DurabilityService == nil {
		return DurabilityService{
			HistoryKind:           KeepLast,
			HistoryDepth:          1,
			MaxSamples:            LengthUnlimited,
			MaxInstances:          LengthUnlimited,
			MaxSamplesPerInstance: LengthUnlimited,
		}
	}
	return *q.DurabilityService
}

// AdaptWriterQoSForReader copies a discovered writer's QoS and adapts it for
// the creation of the route's matching local reader.
func AdaptWriterQoSForReader(q QoS) QoS {
	reader := QoS{
		Durability: copyDurability(q.Durability),
		History:    copyHistory(q.History),
		Partition:  append([]string(nil), q.Partition...),
	}
	// Writer-only policies (durability service, lifespan, ownership
	// strength...) don't apply to the reader and are left unset.
	if q.Reliability != nil {
		r := *q.Reliability
		reader.Reliability = &r
	} else {
		reader.Reliability = &Reliability{Kind: BestEffort, MaxBlockingTime: defaultMaxBlockingTime}
	}
	return reader
}

// AdaptReaderQoSForWriter copies a discovered reader's QoS and adapts it for
// the creation of the route's matching local writer.
func AdaptReaderQoSForWriter(q QoS) QoS {
	writer := QoS{
		Durability: copyDurability(q.Durability),
		History:    copyHistory(q.History),
		Partition:  append([]string(nil), q.Partition...),
		// Don't match with readers of our own participant, this would loop
		// samples straight back into the route.
		IgnoreLocal: &IgnoreLocal{Kind: IgnoreLocalParticipant},
	}

	// If the reader is TRANSIENT_LOCAL, configure the durability service
	// with the same history: that is where historical data is retained for
	// late joiners.
	if IsTransientLocal(q) {
		h := HistoryOrDefault(q)
		writer.DurabilityService = &DurabilityService{
			ServiceCleanupDelay:   time.Minute,
			HistoryKind:           h.Kind,
			HistoryDepth:          h.Depth,
			MaxSamples:            LengthUnlimited,
			MaxInstances:          LengthUnlimited,
			MaxSamplesPerInstance: LengthUnlimited,
		}
	}

	// Bump max_blocking_time by one to correctly match FastRTPS readers.
	rel := Reliability{Kind: BestEffort, MaxBlockingTime: defaultMaxBlockingTime}
	if q.Reliability != nil {
		rel = *q.Reliability
	}
	rel.MaxBlockingTime += time.Nanosecond
	writer.Reliability = &rel

	return writer
}

func copyDurability(d *Durability) *Durability {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func copyHistory(h *History) *History {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}
