package iosim

import (
	"fmt"
	"math"
	"math/rand"
)

func maxForWidth(width int) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(width)) - 1
}

// staticState always emits the configured value.
type staticState struct {
	value uint64
}

func (s *staticState) next() []uint64 { return []uint64{s.value} }

// binaryState toggles between 0 and 1 on every tick.
type binaryState struct {
	on bool
}

func (s *binaryState) next() []uint64 {
	s.on = !s.on
	if s.on {
		return []uint64{1}
	}
	return []uint64{0}
}

// counterState implements the four counter range variants: no range,
// [stop], [start,stop], [start,stop,step].
type counterState struct {
	value      int64
	start, end int64
	step       int64
	bounded    bool
}

func newCounterState(r []int64) (*counterState, error) {
	switch len(r) {
	case 0:
		return &counterState{value: 0, step: 1, bounded: false}, nil
	case 1:
		if r[0] <= 0 {
			return nil, fmt.Errorf("counter range [stop] requires stop > 0")
		}
		return &counterState{value: 0, start: 0, end: r[0], step: 1, bounded: true}, nil
	case 2:
		start, end := r[0], r[1]
		step := int64(1)
		if start > end {
			step = -1
		} else if start == end {
			return nil, fmt.Errorf("counter range [start, stop] requires start != stop")
		}
		return &counterState{value: start, start: start, end: end, step: step, bounded: true}, nil
	case 3:
		start, end, step := r[0], r[1], r[2]
		if step == 0 {
			return nil, fmt.Errorf("counter step must be non-zero")
		}
		return &counterState{value: start, start: start, end: end, step: step, bounded: true}, nil
	default:
		return nil, fmt.Errorf("counter range takes 0-3 elements, got %d", len(r))
	}
}

func (c *counterState) next() []uint64 {
	out := uint64(c.value)

	c.value += c.step
	if c.bounded {
		if c.step > 0 && c.value >= c.end {
			c.value = c.start
		} else if c.step < 0 && c.value < c.end {
			c.value = c.start
		}
	}
	return []uint64{out}
}

// waveState advances a phase accumulator each tick and emits the
// sampled waveform scaled to the target cell's width.
type waveState struct {
	kind  FuncType
	phase float64
	width int
}

const phaseIncrement = 2 * math.Pi / 20

func (w *waveState) next() []uint64 {
	max := float64(maxForWidth(w.width))
	var sample float64 // in [0,1]

	switch w.kind {
	case FuncSine:
		sample = (math.Sin(w.phase) + 1) / 2
	case FuncCosine:
		sample = (math.Cos(w.phase) + 1) / 2
	case FuncSawtooth:
		frac := math.Mod(w.phase, 2*math.Pi) / (2 * math.Pi)
		sample = frac
	case FuncSquare:
		frac := math.Mod(w.phase, 2*math.Pi) / (2 * math.Pi)
		if frac < 0.5 {
			sample = 1
		} else {
			sample = 0
		}
	}

	w.phase += phaseIncrement
	return []uint64{uint64(sample * max)}
}

// randrangeState draws a uniform integer in [lo, hi).
type randrangeState struct {
	lo, hi int64
	rng    *rand.Rand
}

func (s *randrangeState) next() []uint64 {
	if s.hi <= s.lo {
		return []uint64{uint64(s.lo)}
	}
	span := s.hi - s.lo
	return []uint64{uint64(s.lo + s.rng.Int63n(span))}
}

// lognormalState samples from log-normal(0,1) and clamps to the target
// cell's width.
type lognormalState struct {
	width int
	rng   *rand.Rand
}

func (s *lognormalState) next() []uint64 {
	sample := math.Exp(s.rng.NormFloat64())
	max := maxForWidth(s.width)
	if sample < 0 {
		return []uint64{0}
	}
	v := uint64(sample)
	if v > max {
		v = max
	}
	return []uint64{v}
}

// uniformState draws a uniform integer across the cell's full width.
type uniformState struct {
	width int
	rng   *rand.Rand
}

func (s *uniformState) next() []uint64 {
	max := maxForWidth(s.width)
	if max >= uint64(math.MaxInt64) {
		return []uint64{s.rng.Uint64() & max}
	}
	return []uint64{uint64(s.rng.Int63n(int64(max) + 1))}
}

// operationState holds the resolved binary operator for an "operation"
// simulation; the reduction itself happens in (*task).tickOperation
// since it needs Memory Space reads for memspace operands.
type operationState struct {
	fn func(a, b uint64) uint64
}

func (s *operationState) next() []uint64 { return nil }
