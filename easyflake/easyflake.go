package easyflake

import (
	"context"
	"fmt"
	"time"

	"github.com/sxyafiq/easyflake/clock"
	"github.com/sxyafiq/easyflake/internal/xlog"
	"github.com/sxyafiq/easyflake/nodeid"
	"github.com/sxyafiq/easyflake/sequence"
)

// DefaultEpoch is EasyFlake's default reference instant
// (2023-02-08T12:24:00Z), expressed as seconds since the Unix epoch.
var DefaultEpoch = float64(time.Date(2023, 2, 8, 12, 24, 0, 0, time.UTC).Unix())

// Config configures an EasyFlake generator.
//
// Exactly one of NodeID or NodeIDPool must be set: NodeID for a fixed,
// externally-assigned node, NodeIDPool for a dynamically leased one (backed
// by nodeid/filepool, nodeid/rpcpool, or nodeid/redispool).
type Config struct {
	// NodeID is a fixed node identifier. Mutually exclusive with NodeIDPool.
	NodeID *int64

	// NodeIDPool dynamically leases a node identifier. Mutually exclusive
	// with NodeID. Callers own the Pool's lifetime (Start/Stop).
	NodeIDPool *nodeid.Pool

	// NodeIDBits is N, the number of bits of node-ID space.
	NodeIDBits int

	// SequenceBits is S, the number of per-tick sequence bits.
	SequenceBits int

	// Epoch anchors the timestamp component, in seconds since the Unix
	// epoch. Defaults to DefaultEpoch if zero.
	Epoch float64

	// TimeScale is the clock's ticks-per-second power of ten. Its zero
	// value is clock.Second; it is not defaulted to clock.Milli.
	TimeScale clock.Scale

	// CrossProcessPath, if set, layers a process-scope advisory file lock
	// under the sequence provider's in-process mutex (see
	// sequence.CrossProcess for what that lock does and does not share).
	CrossProcessPath string
}

// Validate checks cfg per spec.md §4.7: N and S must be at least 1, a fixed
// NodeID must fit in N bits, and the timestamp component must have enough
// headroom to run for at least a year without overflowing into the node-ID
// field (T₁+N+S≥64 is fatal; T₃+N+S≥64 only warns, since most deployments
// will be re-keyed long before 3 years pass).
func (c *Config) Validate() error {
	if c.Epoch == 0 {
		c.Epoch = DefaultEpoch
	}

	if c.NodeIDBits < 1 {
		return newConfigError("NodeIDBits", fmt.Sprintf("%d", c.NodeIDBits),
			"must be at least 1", "N >= 1")
	}
	if c.SequenceBits < 1 {
		return newConfigError("SequenceBits", fmt.Sprintf("%d", c.SequenceBits),
			"must be at least 1", "S >= 1")
	}

	if c.NodeID != nil {
		maxNode := (int64(1) << uint(c.NodeIDBits)) - 1
		if *c.NodeID < 0 || *c.NodeID > maxNode {
			return newConfigError("NodeID", fmt.Sprintf("%d", *c.NodeID),
				"out of range for NodeIDBits",
				fmt.Sprintf("must be between 0 and %d", maxNode))
		}
	}
	if c.NodeID == nil && c.NodeIDPool == nil {
		return newConfigError("NodeID", "<nil>",
			"no node-ID source configured", "set exactly one of NodeID or NodeIDPool")
	}
	if c.NodeID != nil && c.NodeIDPool != nil {
		return newConfigError("NodeID", "<both set>",
			"NodeID and NodeIDPool are mutually exclusive", "set exactly one")
	}

	c1, err := clock.New(c.TimeScale, c.Epoch)
	if err != nil {
		return err
	}
	t1 := c1.RequiredBits(365 * 24 * time.Hour)
	t3 := c1.RequiredBits(3 * 365 * 24 * time.Hour)

	if t1+c.NodeIDBits+c.SequenceBits >= 64 {
		return newConfigError("NodeIDBits+SequenceBits",
			fmt.Sprintf("%d", c.NodeIDBits+c.SequenceBits),
			"leaves no timestamp headroom",
			fmt.Sprintf("need T1(%d)+N+S < 64", t1))
	}
	if t3+c.NodeIDBits+c.SequenceBits >= 64 {
		xlog.Warning("easyflake: layout exhausts its 64-bit budget within 3 years (T3=%d, N=%d, S=%d)",
			t3, c.NodeIDBits, c.SequenceBits)
	}

	return nil
}

// EasyFlake generates time-ordered, (timestamp, node, sequence)-packed IDs.
//
// The zero value is not usable; construct with New.
type EasyFlake struct {
	provider *sequence.Provider
	cfg      Config
}

// New validates cfg and constructs an EasyFlake generator around it.
func New(cfg Config) (*EasyFlake, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sequence.Option
	if cfg.CrossProcessPath != "" {
		opts = append(opts, sequence.CrossProcess(cfg.CrossProcessPath))
	}

	provider, err := sequence.NewProvider(cfg.SequenceBits, cfg.Epoch, cfg.TimeScale, opts...)
	if err != nil {
		return nil, err
	}

	return &EasyFlake{provider: provider, cfg: cfg}, nil
}

// nodeID resolves the configured node-ID source.
func (f *EasyFlake) nodeID() (int64, error) {
	if f.cfg.NodeID != nil {
		return *f.cfg.NodeID, nil
	}
	return f.cfg.NodeIDPool.Get()
}

// GetID produces the next ID: a (timestamp, sequence) pair from the
// provider packed with the current node ID, per spec.md §4.7.
func (f *EasyFlake) GetID(ctx context.Context) (ID, error) {
	seq, err := f.provider.Next(ctx)
	if err != nil {
		return 0, err
	}

	node, err := f.nodeID()
	if err != nil {
		return 0, err
	}

	shift := uint(f.cfg.SequenceBits + f.cfg.NodeIDBits)
	nodeShift := uint(f.cfg.SequenceBits)
	id := (seq.Timestamp << shift) | (node << nodeShift) | int64(seq.Value)
	return ID(id), nil
}

// Layout returns the BitLayout describing how this EasyFlake's IDs are
// packed, suitable for ID.Time/Node/Sequence/Components/IsValid.
func (f *EasyFlake) Layout() BitLayout {
	return BitLayout{
		NodeBits:     f.cfg.NodeIDBits,
		SequenceBits: f.cfg.SequenceBits,
		Scale:        f.cfg.TimeScale,
		Epoch:        f.cfg.Epoch,
	}
}
