// Package routing selects, for a given node ID, which lease-server replica
// should serve it: a rendezvous-hash (HRW) router over a fixed set of
// endpoints, so that adding or removing a replica only reshuffles the
// assignments that touch it instead of the whole keyspace, unlike plain
// modulo sharding.
package routing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// Router assigns node IDs to lease-server replicas by rendezvous hashing.
// It is safe for concurrent use; AddReplica/RemoveReplica rebuild the
// underlying table under a lock, while Replica reads are lock-free apart
// from a RWMutex.
type Router struct {
	mu   sync.RWMutex
	rend *rendezvous.Rendezvous
	set  map[string]struct{}
}

// NewRouter builds a Router over the given replica endpoints (host:port
// strings, or any opaque identifier the caller uses consistently).
func NewRouter(replicas ...string) *Router {
	r := &Router{set: make(map[string]struct{}, len(replicas))}
	for _, replica := range replicas {
		r.set[replica] = struct{}{}
	}
	r.rebuild()
	return r
}

func (r *Router) rebuild() {
	nodes := make([]string, 0, len(r.set))
	for replica := range r.set {
		nodes = append(nodes, replica)
	}
	sort.Strings(nodes)
	r.rend = rendezvous.New(nodes, xxhash.Sum64String)
}

// Replica returns the replica endpoint responsible for key (typically a
// node ID's decimal or base62 string, or a client identity used to pin a
// node ID's lease to one replica across requests).
func (r *Router) Replica(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.set) == 0 {
		return "", fmt.Errorf("routing: no replicas configured")
	}
	return r.rend.Lookup(key), nil
}

// AddReplica adds a replica to the rendezvous set, reassigning only the
// keys that rendezvous hashing now routes to it.
func (r *Router) AddReplica(replica string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[replica]; ok {
		return
	}
	r.set[replica] = struct{}{}
	r.rebuild()
}

// RemoveReplica removes a replica, so future lookups fall back to the next
// highest-scoring survivor for keys that had been routed to it.
func (r *Router) RemoveReplica(replica string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[replica]; !ok {
		return
	}
	delete(r.set, replica)
	r.rebuild()
}

// Replicas returns the current replica set, sorted for deterministic
// output.
func (r *Router) Replicas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.set))
	for replica := range r.set {
		out = append(out, replica)
	}
	sort.Strings(out)
	return out
}
