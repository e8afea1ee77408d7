package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/sxyafiq/easyflake/clock"
)

// TimeSequence is an immutable (timestamp, sequence-value) pair produced by a
// Provider.
type TimeSequence struct {
	Timestamp int64
	Value     int
}

// tickSource is the subset of *clock.Clock the provider depends on, broken
// out as an interface so tests can substitute a frozen clock to exercise the
// overflow-and-wait path deterministically.
type tickSource interface {
	Current() int64
	Sleep(current, future int64)
	RequiredBits(d time.Duration) int
}

// Provider couples a ScaledClock reading with a per-tick sequence counter
// under concurrent access, per spec (C3). It never reuses a value within a
// tick, and resets to zero on every new tick.
//
// The zero value is not usable; construct with NewProvider.
type Provider struct {
	bits     int // sequence bits (S)
	seqBits  int // S+1, includes the overflow bit
	seqSpace int // 1<<S, the number of externally valid sequence values
	seqMask  uint64

	clock tickSource

	mu     sync.Mutex
	shared uint64 // (timestamp << seqBits) | seq

	// procLock is non-nil only for providers constructed with CrossProcess.
	// It serializes tryNext across OS processes using the same path; the
	// shared word itself stays in each process's own memory.
	procLock *flock.Flock
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// CrossProcess layers a process-scope advisory file lock beneath the
// in-process mutex, so that tryNext runs in one OS process at a time among
// processes using the same path. The (timestamp, sequence) word is not
// shared: each process keeps its own, so two processes can hand out the
// same (timestamp, sequence) pair. Providers not constructed with this
// option support only single-process concurrency.
func CrossProcess(path string) Option {
	return func(p *Provider) {
		p.procLock = flock.New(path)
	}
}

// NewProvider creates a Provider generating sequence values of the given bit
// width, anchored to epoch (seconds since Unix epoch) at the given clock
// scale.
func NewProvider(bits int, epoch float64, scale clock.Scale, opts ...Option) (*Provider, error) {
	if bits < 1 {
		return nil, fmt.Errorf("sequence: bits must be >= 1, got %d", bits)
	}

	c, err := clock.New(scale, epoch)
	if err != nil {
		return nil, err
	}

	return newProviderWithClock(bits, c, opts...)
}

func newProviderWithClock(bits int, c tickSource, opts ...Option) (*Provider, error) {
	p := &Provider{
		bits:     bits,
		seqBits:  bits + 1,
		seqSpace: 1 << uint(bits),
		seqMask:  (uint64(1) << uint(bits+1)) - 1,
		clock:    c,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GetRequiredBits returns the number of bits needed to represent a scaled
// timestamp the given duration in the future.
func (p *Provider) GetRequiredBits(d time.Duration) int {
	return p.clock.RequiredBits(d)
}

// Next produces the next (timestamp, sequence) pair, blocking (subject to
// ctx cancellation) while the current tick's sequence space is saturated.
func (p *Provider) Next(ctx context.Context) (TimeSequence, error) {
	for {
		select {
		case <-ctx.Done():
			return TimeSequence{}, ctx.Err()
		default:
		}

		ts, seq, saturated, last := p.tryNext()
		if !saturated {
			return TimeSequence{Timestamp: ts, Value: seq}, nil
		}

		now := p.clock.Current()
		p.clock.Sleep(now, last+1)
	}
}

// tryNext attempts a single non-blocking step of the algorithm in spec §4.3.
// It reports saturated=true (with the last-published tick) when the caller
// must wait for clock progress before retrying.
func (p *Provider) tryNext() (timestamp int64, value int, saturated bool, last int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.procLock != nil {
		_ = p.procLock.Lock()
		defer p.procLock.Unlock()
	}

	now := p.clock.Current()
	last = int64(p.shared >> uint(p.seqBits))

	if now > last {
		p.shared = (uint64(now) << uint(p.seqBits)) | 1
		return now, 0, false, last
	}

	s := int(p.shared & p.seqMask)
	if s <= p.seqSpace-1 {
		p.shared = (uint64(now) << uint(p.seqBits)) | uint64(s+1)
		return now, s, false, last
	}

	return 0, 0, true, last
}
