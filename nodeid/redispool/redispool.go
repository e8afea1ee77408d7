// Package redispool implements a nodeid.Listener backed by a shared Redis
// instance: each candidate node ID is a key, leased with SETNX+EXPIRE and
// renewed on a heartbeat, the same dynamic-pool pattern as filepool and
// rpcpool but coordinated across hosts instead of a single disk or a single
// lease server.
package redispool

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sxyafiq/easyflake/nodeid"
)

// DefaultLeaseTTL is how long an unrenewed lease key survives before Redis
// expires it and another process can claim the same node ID.
const DefaultLeaseTTL = 30 * time.Second

// DefaultRenewInterval is how often a held lease is refreshed. It must be
// comfortably shorter than the lease's TTL so a missed tick or two doesn't
// lose the lease.
const DefaultRenewInterval = 10 * time.Second

// Pool implements nodeid.Listener by leasing one key out of a fixed-size
// keyspace ("<Prefix><id>" for id in [0, Nodes)) from a Redis server. It
// scans the keyspace for the first unclaimed key, claims it with SETNX, and
// renews the claim on a ticker for as long as the pool runs; the key is
// deleted on clean shutdown so another process can claim it immediately
// instead of waiting out the TTL.
type Pool struct {
	Client *redis.Client

	// Nodes bounds the keyspace scanned for a free lease, normally 2^N for
	// an N-bit node-ID field.
	Nodes int

	// Prefix namespaces the lease keys, so multiple EasyFlake deployments
	// can share one Redis instance without colliding.
	Prefix string

	LeaseTTL      time.Duration
	RenewInterval time.Duration
}

// New creates a Pool leasing node IDs in [0, nodes) against client.
func New(client *redis.Client, nodes int, prefix string) *Pool {
	return &Pool{
		Client:        client,
		Nodes:         nodes,
		Prefix:        prefix,
		LeaseTTL:      DefaultLeaseTTL,
		RenewInterval: DefaultRenewInterval,
	}
}

func (p *Pool) key(id int) string {
	return fmt.Sprintf("%s%d", p.Prefix, id)
}

// Listen implements nodeid.Listener.
func (p *Pool) Listen(ctx context.Context) (<-chan nodeid.OptionalInt, <-chan error) {
	values := make(chan nodeid.OptionalInt)
	errs := make(chan error, 1)

	go p.run(ctx, values, errs)

	return values, errs
}

func (p *Pool) run(ctx context.Context, values chan<- nodeid.OptionalInt, errs chan<- error) {
	defer close(values)

	ttl := p.LeaseTTL
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	renew := p.RenewInterval
	if renew <= 0 {
		renew = DefaultRenewInterval
	}

	nodeID, key, err := p.claim(ctx, ttl)
	if err != nil {
		select {
		case errs <- err:
		default:
		}
		return
	}

	select {
	case values <- &nodeID:
	case <-ctx.Done():
		p.release(key)
		return
	}

	ticker := time.NewTicker(renew)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.release(key)
			return

		case <-ticker.C:
			if err := p.Client.Expire(context.Background(), key, ttl).Err(); err != nil {
				select {
				case errs <- fmt.Errorf("redispool: renewing lease on %s: %w", key, err):
				default:
				}
				return
			}
		}
	}
}

// claim scans the keyspace once, attempting SETNX on each candidate key
// until one succeeds, and returns the winning node ID and its key.
func (p *Pool) claim(ctx context.Context, ttl time.Duration) (int64, string, error) {
	for id := 0; id < p.Nodes; id++ {
		key := p.key(id)
		acquired, err := p.Client.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			return 0, "", fmt.Errorf("redispool: claiming %s: %w", key, err)
		}
		if acquired {
			return int64(id), key, nil
		}
	}
	return 0, "", fmt.Errorf("redispool: no free node id in [0, %d)", p.Nodes)
}

// release deletes the lease key on a background context so shutdown isn't
// bound by the caller's (possibly already-cancelled) ctx.
func (p *Pool) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Client.Del(ctx, key)
}

// ActiveNodes scans the keyspace and returns the currently leased node IDs,
// mirroring the introspection the dynamic pool backends expose.
func ActiveNodes(ctx context.Context, client *redis.Client, nodes int, prefix string) ([]int64, error) {
	var active []int64
	for id := 0; id < nodes; id++ {
		n, err := client.Exists(ctx, fmt.Sprintf("%s%d", prefix, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redispool: checking node %d: %w", id, err)
		}
		if n > 0 {
			active = append(active, int64(id))
		}
	}
	return active, nil
}
