package easyflake

import (
	"context"
	"testing"
	"time"

	"github.com/sxyafiq/easyflake/clock"
	"github.com/sxyafiq/easyflake/nodeid"
)

// neverPublishesListener implements nodeid.Listener but never sends a value
// on either channel, simulating a backend that is reachable but silent.
type neverPublishesListener struct{}

func (neverPublishesListener) Listen(ctx context.Context) (<-chan nodeid.OptionalInt, <-chan error) {
	values := make(chan nodeid.OptionalInt)
	errs := make(chan error)
	go func() {
		<-ctx.Done()
	}()
	return values, errs
}

func TestConfigValidateRequiresANodeIDSource(t *testing.T) {
	cfg := Config{NodeIDBits: 8, SequenceBits: 8, TimeScale: clock.Milli}
	if err := cfg.Validate(); !IsConfigError(err) {
		t.Fatalf("expected a ConfigError when neither NodeID nor NodeIDPool is set, got %v", err)
	}
}

func TestConfigValidateRejectsNodeIDOutOfRange(t *testing.T) {
	n := int64(300)
	cfg := Config{NodeID: &n, NodeIDBits: 8, SequenceBits: 8, TimeScale: clock.Milli}
	if err := cfg.Validate(); !IsConfigError(err) {
		t.Fatalf("expected a ConfigError for a node id exceeding 2^8-1, got %v", err)
	}
}

func TestConfigValidateRejectsInsufficientTimestampBudget(t *testing.T) {
	n := int64(1)
	cfg := Config{NodeID: &n, NodeIDBits: 30, SequenceBits: 30, TimeScale: clock.Milli}
	if err := cfg.Validate(); !IsConfigError(err) {
		t.Fatalf("expected a ConfigError when N+S leaves no timestamp headroom, got %v", err)
	}
}

func TestConfigValidateAcceptsDefaultLayout(t *testing.T) {
	n := int64(1)
	cfg := Config{NodeID: &n, NodeIDBits: 8, SequenceBits: 8, TimeScale: clock.Milli}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected the default 8+8 layout to validate, got %v", err)
	}
}

func TestGetIDPacksNodeAndIsMonotonic(t *testing.T) {
	n := int64(7)
	cfg := Config{NodeID: &n, NodeIDBits: 8, SequenceBits: 8, TimeScale: clock.Milli}
	flake, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	var prev ID
	for i := 0; i < 100; i++ {
		id, err := flake.GetID(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if id.Node(flake.Layout()) != 7 {
			t.Fatalf("expected node 7, got %d", id.Node(flake.Layout()))
		}
		if i > 0 && id <= prev {
			t.Fatalf("IDs must be strictly increasing: %d followed by %d", prev, id)
		}
		prev = id
	}
}

func TestGetIDTimesOutWhenNodeIDPoolNeverPublishes(t *testing.T) {
	pool := nodeid.New(neverPublishesListener{}, 50*time.Millisecond)
	cfg := Config{NodeIDPool: pool, NodeIDBits: 8, SequenceBits: 8, TimeScale: clock.Milli}

	flake, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := flake.GetID(ctx); err == nil {
		t.Fatal("expected GetID to fail when the node-id pool never publishes a value")
	}
}
