// Package filepool implements a nodeid.Listener backed by a lease file
// shared (via an advisory lock) among cooperating OS processes on the same
// host, realizing component C5.
package filepool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/sxyafiq/easyflake/nodeid"
	"github.com/sxyafiq/easyflake/sequence"
)

// LIFESPAN is how long a lease line remains valid without being refreshed.
const LIFESPAN = 10 * time.Second

var linePattern = regexp.MustCompile(`^(\d+):(\d+):(\d+(?:\.\d+)?)$`)

// LineStruct is one lease record in the shared file: a (bits, sequence)
// allocation with an absolute Unix-time expiry.
type LineStruct struct {
	Bits     int
	Sequence int
	Expire   float64
}

// Parse decodes a LineStruct from its serialized "bits:sequence:expire"
// form, returning ok=false for malformed or non-matching lines.
func Parse(line string) (LineStruct, bool) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return LineStruct{}, false
	}
	bits, err := strconv.Atoi(m[1])
	if err != nil {
		return LineStruct{}, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return LineStruct{}, false
	}
	expire, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return LineStruct{}, false
	}
	return LineStruct{Bits: bits, Sequence: seq, Expire: expire}, true
}

// Serialize renders a LineStruct back to its "bits:sequence:expire" form.
func (l LineStruct) Serialize() string {
	return fmt.Sprintf("%d:%d:%s", l.Bits, l.Sequence, strconv.FormatFloat(l.Expire, 'f', 6, 64))
}

// Refreshed returns a copy of l with Expire pushed LIFESPAN into the future.
func (l LineStruct) Refreshed(now time.Time) LineStruct {
	l.Expire = float64(now.Add(LIFESPAN).UnixNano()) / 1e9
	return l
}

func newLine(bits int, seq int, now time.Time) LineStruct {
	return LineStruct{Bits: bits, Sequence: seq}.Refreshed(now)
}

// Pool implements nodeid.Listener against a shared lease file at Path. Every
// poll cycle, it acquires an advisory file lock, rewrites the file dropping
// expired or malformed lines (lines for other bit widths are kept), renews
// its own line's expiry, and (if it
// does not yet hold a sequence value for Bits) attempts to claim a free one.
type Pool struct {
	Path string
	Bits int

	// PollInterval bounds how often the file is re-read and rewritten while
	// waiting for a free sequence value. Defaults to LIFESPAN/4 if zero.
	PollInterval time.Duration
}

// New creates a Pool for the given lease file and bit width.
func New(path string, bits int) *Pool {
	return &Pool{Path: path, Bits: bits}
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

	interval := p.PollInterval
	if interval <= 0 {
		interval = LIFESPAN / 4
	}

	var sequence *int

	for {
		v, err := p.cycle(sequence)
		if err != nil {
			select {
			case errs <- err:
			default:
			}
			return
		}
		if v != nil {
			sequence = v
			value := int64(*v)
			select {
			case values <- &value:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// cycle runs one lock-read-rewrite iteration, returning the sequence value
// this process holds (newly claimed or already held) after it completes, or
// nil if none is currently available.
func (p *Pool) cycle(held *int) (*int, error) {
	lock := flock.New(p.Path)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("filepool: acquiring lock on %s: %w", p.Path, err)
	}
	defer lock.Unlock()

	pool := sequence.NewPool()
	now := time.Now()

	lines, err := p.readLines(pool, held, now)
	if err != nil {
		return nil, err
	}

	result := held
	if held == nil {
		if v, err := pool.Pop(p.Bits); err == nil {
			result = &v
			lines = append(lines, newLine(p.Bits, v, now).Serialize())
		}
		// Overflow is not fatal here: retry on the next cycle, per the
		// canonical "retry and yield nothing" exhaustion behavior.
	}

	if err := p.writeLines(lines); err != nil {
		return nil, err
	}

	return result, nil
}

// readLines reads every line in the lease file, dropping expired or
// malformed entries, marking same-width sequence values as used in pool so
// Pop only returns values nobody else currently leases, and renewing the
// line matching held (if any).
func (p *Pool) readLines(pool *sequence.Pool, held *int, now time.Time) ([]string, error) {
	f, err := os.OpenFile(p.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filepool: opening %s: %w", p.Path, err)
	}
	defer f.Close()

	var kept []string
	nowSeconds := float64(now.UnixNano()) / 1e9

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line, ok := Parse(scanner.Text())
		if !ok || nowSeconds > line.Expire {
			continue
		}

		if line.Bits == p.Bits {
			pool.Remove(line.Bits, line.Sequence)
			if held != nil && line.Sequence == *held {
				line = line.Refreshed(now)
			}
		}
		kept = append(kept, line.Serialize())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filepool: reading %s: %w", p.Path, err)
	}

	return kept, nil
}

func (p *Pool) writeLines(lines []string) error {
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(p.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("filepool: writing %s: %w", p.Path, err)
	}
	return nil
}
