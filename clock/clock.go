// Package clock provides a monotonic, scaled integer clock used as the time
// source for Snowflake-style sequence generation.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Scale enumerates the supported clock resolutions, expressed as a power of
// ten ticks per second.
type Scale int

const (
	// Second counts whole seconds.
	Second Scale = 0
	// Milli counts milliseconds.
	Milli Scale = 3
	// Micro counts microseconds.
	Micro Scale = 6
)

// Clock is a scale-ticks-per-second integer clock relative to a fixed epoch.
//
// Current is monotonic-non-decreasing for the lifetime of the process: it is
// anchored to a time.Time captured at construction and advanced with
// time.Since, so NTP step adjustments and wall-clock corrections cannot move
// it backward the way re-reading time.Now().Unix() directly could. Current
// is safe to call from multiple goroutines concurrently.
type Clock struct {
	factor      int64
	epochScaled int64

	anchor    time.Time
	anchorUTC int64 // anchor's scaled value, precomputed

	last atomic.Int64 // highest value ever returned by Current, for the regression clamp
}

// Factor returns the number of ticks per second at scale, i.e. 10^scale.
func Factor(scale Scale) int64 {
	factor := int64(1)
	for i := Scale(0); i < scale; i++ {
		factor *= 10
	}
	return factor
}

// New creates a Clock at the given scale, relative to epoch (seconds since
// the Unix epoch).
func New(scale Scale, epoch float64) (*Clock, error) {
	if scale < Second || scale > Micro {
		return nil, fmt.Errorf("clock: scale must be between %d and %d, got %d", Second, Micro, scale)
	}

	factor := Factor(scale)

	now := time.Now()
	anchorScaled := scaledUnix(now, factor)

	c := &Clock{
		factor:      factor,
		epochScaled: int64(epoch * float64(factor)),
		anchor:      now,
		anchorUTC:   anchorScaled,
	}
	c.last.Store(anchorScaled - int64(epoch*float64(factor)))
	return c, nil
}

func scaledUnix(t time.Time, factor int64) int64 {
	// int64 seconds*factor + nanoseconds converted to the same unit, avoiding
	// float rounding for the common millisecond/microsecond scales.
	sec := t.Unix() * factor
	frac := (t.UnixNano() % int64(time.Second)) * factor / int64(time.Second)
	return sec + frac
}

// Current returns scaled ticks elapsed since the clock's epoch. It never
// returns a value lower than any value it has previously returned, clamping
// silently if the underlying wall clock appears to move backward.
func (c *Clock) Current() int64 {
	elapsed := time.Since(c.anchor)
	elapsedTicks := elapsed.Nanoseconds() * c.factor / int64(time.Second)
	now := (c.anchorUTC + elapsedTicks) - c.epochScaled

	for {
		prev := c.last.Load()
		if now <= prev {
			return prev
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// Future returns the scaled-tick value d in the future, relative to Current.
func (c *Clock) Future(d time.Duration) int64 {
	return c.Current() + int64(d.Seconds()*float64(c.factor))
}

// Sleep blocks for approximately (future-current)/factor seconds. It is a
// no-op if future is not after current.
func (c *Clock) Sleep(current, future int64) {
	if future <= current {
		return
	}
	d := time.Duration(future-current) * time.Second / time.Duration(c.factor)
	time.Sleep(d)
}

// RequiredBits returns floor(log2(future(d))) + 1: the number of bits needed
// to represent a scaled timestamp d in the future.
func (c *Clock) RequiredBits(d time.Duration) int {
	v := c.Future(d)
	if v <= 0 {
		return 1
	}
	bits := 0
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}
