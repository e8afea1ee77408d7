// Package easyflake is the root façade (C8): it ties clock, sequence, and
// nodeid together into a single ID generator matching EasyFlake's
// (timestamp, node, sequence) layout.
package easyflake

import (
	"fmt"
	"math"
	"time"

	"github.com/sxyafiq/easyflake/clock"
)

// BitLayout describes how the 63 usable bits of an ID are split between
// timestamp, node, and sequence components, plus the clock scale the
// timestamp component is measured in.
//
// Unlike a fixed Snowflake layout, EasyFlake's layout is a per-Config
// choice: BitLayout exists as a convenience for picking (and reasoning
// about the capacity of) that split, not as the thing Config.Validate
// enforces — the authoritative check is the T1+N+S<64 / T3+N+S>=64 budget
// in Config.Validate, which tolerates layouts BitLayout.Validate would
// reject as "unbalanced" for a generic Snowflake clone.
type BitLayout struct {
	TimestampBits int
	NodeBits      int
	SequenceBits  int
	Scale         clock.Scale

	// Epoch anchors the timestamp component, in seconds since the Unix
	// epoch. It is part of the layout because decoding an ID's timestamp
	// back into a time.Time requires knowing what zero means.
	Epoch float64
}

// Pre-defined layouts covering common EasyFlake deployment shapes. These
// are starting points for Config, not requirements.
var (
	// LayoutDefault mirrors the original Twitter Snowflake split: 41 bits
	// of milliseconds, 10 bits of node ID, 12 bits of sequence.
	//
	//   - Lifespan: ~69 years from epoch
	//   - Max nodes: 1,024
	//   - Throughput: 4,096,000 IDs/sec per node
	LayoutDefault = BitLayout{
		TimestampBits: 41,
		NodeBits:      10,
		SequenceBits:  12,
		Scale:         clock.Milli,
	}

	// LayoutManyNodes trades sequence throughput for a much larger node
	// space, for fleets with tens of thousands of generators.
	//
	//   - Lifespan: ~35 years from epoch
	//   - Max nodes: 16,384
	//   - Throughput: 512,000 IDs/sec per node
	LayoutManyNodes = BitLayout{
		TimestampBits: 40,
		NodeBits:      14,
		SequenceBits:  9,
		Scale:         clock.Milli,
	}

	// LayoutLongLife favors timestamp bits for systems expected to run far
	// longer than the ~69-year Twitter default allows.
	//
	//   - Lifespan: ~139 years from epoch
	//   - Max nodes: 4,096
	//   - Throughput: 512,000 IDs/sec per node
	LayoutLongLife = BitLayout{
		TimestampBits: 42,
		NodeBits:      12,
		SequenceBits:  9,
		Scale:         clock.Milli,
	}

	// LayoutSonyflake mirrors Sonyflake's coarser 10ms resolution in
	// exchange for a longer usable lifespan.
	//
	//   - Lifespan: ~174 years from epoch
	//   - Max nodes: 65,536
	//   - Throughput: 25,600 IDs/sec per node
	LayoutSonyflake = BitLayout{
		TimestampBits: 39,
		NodeBits:      16,
		SequenceBits:  8,
		Scale:         clock.Scale(2), // 100 ticks/sec, i.e. 10ms resolution
	}
)

// ErrInvalidBitLayout is returned by BitLayout.Validate.
type ErrInvalidBitLayout struct {
	Reason string
}

func (e *ErrInvalidBitLayout) Error() string {
	return fmt.Sprintf("easyflake: invalid bit layout: %s", e.Reason)
}

// Validate checks that l sums to exactly 63 usable bits with each component
// in a practically useful range. This is a stricter, opinionated check than
// Config.Validate's budget test — callers building a Config directly are
// not required to satisfy it.
func (l BitLayout) Validate() error {
	if l.TimestampBits < 0 || l.NodeBits < 0 || l.SequenceBits < 0 {
		return &ErrInvalidBitLayout{Reason: "bit counts must be non-negative"}
	}
	total := l.TimestampBits + l.NodeBits + l.SequenceBits
	if total != 63 {
		return &ErrInvalidBitLayout{Reason: fmt.Sprintf("total bits must equal 63, got %d", total)}
	}
	if l.NodeBits < 1 {
		return &ErrInvalidBitLayout{Reason: "node bits must be at least 1"}
	}
	if l.SequenceBits < 1 {
		return &ErrInvalidBitLayout{Reason: "sequence bits must be at least 1"}
	}
	return nil
}

// shifts returns the bit positions and masks needed to pack and unpack an
// ID under l: the node field sits just above the sequence field, and the
// timestamp field sits above that.
func (l BitLayout) shifts() (timestampShift, nodeShift uint, maxNode, maxSequence int64) {
	timestampShift = uint(l.NodeBits + l.SequenceBits)
	nodeShift = uint(l.SequenceBits)
	maxNode = (int64(1) << uint(l.NodeBits)) - 1
	maxSequence = (int64(1) << uint(l.SequenceBits)) - 1
	return
}

// Capacity summarizes l's practical limits.
type Capacity struct {
	MaxNodes          int64
	MaxSequence       int64
	Lifespan          time.Duration
	ThroughputPerNode int64
	TotalThroughput   int64
}

// CalculateCapacity derives node/sequence/lifespan limits from l at
// l.Scale's tick rate. It fails for a scale clock.New rejects.
func (l BitLayout) CalculateCapacity() (Capacity, error) {
	if _, err := clock.New(l.Scale, 0); err != nil {
		return Capacity{}, err
	}

	maxNodes := int64(1) << uint(l.NodeBits)
	maxSequence := int64(1) << uint(l.SequenceBits)
	maxTimestamp := int64(1) << uint(l.TimestampBits)

	ticksPerSecond := clock.Factor(l.Scale)
	if ticksPerSecond <= 0 {
		ticksPerSecond = 1
	}

	lifespanSeconds := float64(maxTimestamp) / float64(ticksPerSecond)
	lifespanNanos := lifespanSeconds * float64(time.Second)
	if lifespanNanos > float64(math.MaxInt64) {
		lifespanNanos = float64(math.MaxInt64)
	}

	throughputPerNode := maxSequence * ticksPerSecond

	return Capacity{
		MaxNodes:          maxNodes,
		MaxSequence:       maxSequence,
		Lifespan:          time.Duration(lifespanNanos),
		ThroughputPerNode: throughputPerNode,
		TotalThroughput:   throughputPerNode * maxNodes,
	}, nil
}

// String renders a human-readable capacity summary.
func (c Capacity) String() string {
	years := int(c.Lifespan.Hours() / 24 / 365)
	return fmt.Sprintf("MaxNodes: %d, ThroughputPerNode: %d/sec, Lifespan: ~%d years",
		c.MaxNodes, c.ThroughputPerNode, years)
}
