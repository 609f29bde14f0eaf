package discovery

import (
	"sync"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
)

// Graph holds the currently discovered DDS entities: participants and the
// reader/writer endpoints keyed by GUID. It is the scanner's view of the
// local ROS graph and the source of endpoint descriptors when only a GUID
// is known (undiscovery events).
type Graph struct {
	mu           sync.RWMutex
	participants map[dds.Gid]struct{}
	writers      map[dds.Gid]dds.Endpoint
	readers      map[dds.Gid]dds.Endpoint
}

func NewGraph() *Graph {
	return &Graph{
		participants: make(map[dds.Gid]struct{}),
		writers:      make(map[dds.Gid]dds.Endpoint),
		readers:      make(map[dds.Gid]dds.Endpoint),
	}
}

// AddParticipant records a discovered participant. Returns false if it
// was already known.
func (g *Graph) AddParticipant(key dds.Gid) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.participants[key]; ok {
		return false
	}
	g.participants[key] = struct{}{}
	return true
}

func (g *Graph) RemoveParticipant(key dds.Gid) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.participants[key]; !ok {
		return false
	}
	delete(g.participants, key)
	return true
}

func (g *Graph) AddWriter(ep dds.Endpoint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.writers[ep.Key]; ok {
		return false
	}
	g.writers[ep.Key] = ep
	return true
}

func (g *Graph) RemoveWriter(key dds.Gid) (dds.Endpoint, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ep, ok := g.writers[key]
	delete(g.writers, key)
	return ep, ok
}

func (g *Graph) AddReader(ep dds.Endpoint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.readers[ep.Key]; ok {
		return false
	}
	g.readers[ep.Key] = ep
	return true
}

func (g *Graph) RemoveReader(key dds.Gid) (dds.Endpoint, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ep, ok := g.readers[key]
	delete(g.readers, key)
	return ep, ok
}

// Counts returns the number of known participants, writers and readers.
func (g *Graph) Counts() (participants, writers, readers int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.participants), len(g.writers), len(g.readers)
}
