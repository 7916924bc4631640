// Package iosim drives the simulator's Memory Space with a set of
// independent periodic simulation tasks: waveforms, counters, random
// distributions, copies, transforms and operator expressions.
package iosim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"plcsim/internal/eventbus"
	"plcsim/internal/memspace"
)

// View references a slice of a Memory Space: a section, a starting
// address, and an element count.
type View struct {
	Section memspace.Section
	Addr    uint32
	N       uint32
}

// FuncType is the closed set of simulation function variants.
type FuncType string

const (
	FuncStatic     FuncType = "static"
	FuncBinary     FuncType = "binary"
	FuncCounter    FuncType = "counter"
	FuncSine       FuncType = "sine"
	FuncCosine     FuncType = "cosine"
	FuncSawtooth   FuncType = "sawtooth"
	FuncSquare     FuncType = "square"
	FuncRandrange  FuncType = "randrange"
	FuncLognormal  FuncType = "lognormal"
	FuncUniform    FuncType = "uniform"
	FuncCopy       FuncType = "copy"
	FuncTransform  FuncType = "transform"
	FuncOperation  FuncType = "operation"
)

// Operand resolves to a value each tick: either a literal, or the first
// cell of a referenced Memory Space view.
type Operand struct {
	IsValue bool
	Value   uint64
	Ref     View
}

// FuncSpec is the immutable function descriptor for a task.
type FuncSpec struct {
	Type FuncType

	// static
	Value uint64

	// counter / randrange
	Range []int64

	// transform
	TransformLow, TransformHigh, TransformOut uint64

	// operation
	Operator string
	Operands []Operand
}

// TaskConfig is the immutable configuration of one simulation task.
type TaskConfig struct {
	ID     string
	Target View
	Source *View
	Func   FuncSpec
	Pause  time.Duration
}

// Simulator owns the set of running simulation tasks.
type Simulator struct {
	logger *zap.Logger
	memory *memspace.MemorySpace
	bus    *eventbus.Bus

	// OnTick and OnError, when set, are called after every successful
	// and failed tick respectively, for metrics.
	OnTick  func(taskID string)
	OnError func(taskID string)

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running []*task
}

// New creates a Simulator bound to a Memory Space and event bus.
func New(logger *zap.Logger, memory *memspace.MemorySpace, bus *eventbus.Bus) *Simulator {
	return &Simulator{logger: logger, memory: memory, bus: bus}
}

// Start parses the simulation list and launches one goroutine per entry.
// An unknown function type is rejected as a configuration error before
// any task is started.
func (s *Simulator) Start(configs []TaskConfig) error {
	tasks := make([]*task, 0, len(configs))
	for i, cfg := range configs {
		if cfg.ID == "" {
			cfg.ID = fmt.Sprintf("sim-%d", i)
		}
		t, err := newTask(cfg, i)
		if err != nil {
			return fmt.Errorf("iosim: task %q: %w", cfg.ID, err)
		}
		tasks = append(tasks, t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = tasks

	for _, t := range tasks {
		s.wg.Add(1)
		go s.run(ctx, t)
	}
	return nil
}

// Stop signals every task and waits for it to observe the signal at its
// next pause boundary.
func (s *Simulator) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Simulator) run(ctx context.Context, t *task) {
	defer s.wg.Done()

	s.publish(t.cfg.ID, "started", "")
	defer s.publish(t.cfg.ID, "stopped", "")

	timer := time.NewTimer(t.cfg.Pause)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := t.tick(s.memory); err != nil {
			s.logger.Error("simulation task failed",
				zap.String("task", t.cfg.ID), zap.Error(err))
			s.publish(t.cfg.ID, "error", err.Error())
			if s.OnError != nil {
				s.OnError(t.cfg.ID)
			}
			return
		}
		if s.OnTick != nil {
			s.OnTick(t.cfg.ID)
		}

		timer.Reset(t.cfg.Pause)
	}
}

func (s *Simulator) publish(taskID, kind, detail string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Task: taskID, Kind: kind, Detail: detail})
}

// task pairs an immutable TaskConfig with its mutable runtime state.
type task struct {
	cfg   TaskConfig
	state tickState
	rng   *rand.Rand
}

// tickState is implemented by each function variant's private state and
// produces the values to write on a tick. Memory Space interaction
// (reads for copy/operation sources, the actual write) is performed by
// tick, not by next, keeping next trivially testable.
type tickState interface {
	next() []uint64
}

func newTask(cfg TaskConfig, index int) (*task, error) {
	t := &task{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano() + int64(index)))}

	switch cfg.Func.Type {
	case FuncStatic:
		t.state = &staticState{value: cfg.Func.Value}
	case FuncBinary:
		t.state = &binaryState{}
	case FuncCounter:
		cs, err := newCounterState(cfg.Func.Range)
		if err != nil {
			return nil, err
		}
		t.state = cs
	case FuncSine, FuncCosine, FuncSawtooth, FuncSquare:
		t.state = &waveState{kind: cfg.Func.Type, width: cfg.Target.Section.Width()}
	case FuncRandrange:
		if len(cfg.Func.Range) != 2 {
			return nil, fmt.Errorf("randrange requires a [lo, hi) range")
		}
		t.state = &randrangeState{lo: cfg.Func.Range[0], hi: cfg.Func.Range[1], rng: t.rng}
	case FuncLognormal:
		t.state = &lognormalState{width: cfg.Target.Section.Width(), rng: t.rng}
	case FuncUniform:
		t.state = &uniformState{width: cfg.Target.Section.Width(), rng: t.rng}
	case FuncCopy:
		if cfg.Source == nil {
			return nil, fmt.Errorf("copy requires a source view")
		}
		if cfg.Source.N != cfg.Target.N {
			return nil, fmt.Errorf("copy source/target element counts differ: %d != %d", cfg.Source.N, cfg.Target.N)
		}
	case FuncTransform:
		// No per-tick state; handled specially in tick.
	case FuncOperation:
		fn, err := lookupOperator(cfg.Func.Operator)
		if err != nil {
			return nil, err
		}
		t.state = &operationState{fn: fn}
	default:
		return nil, fmt.Errorf("unknown simulation function type %q", cfg.Func.Type)
	}

	return t, nil
}

func (t *task) tick(memory *memspace.MemorySpace) error {
	switch t.cfg.Func.Type {
	case FuncCopy:
		return t.tickCopy(memory)
	case FuncTransform:
		return t.tickTransform(memory)
	case FuncOperation:
		return t.tickOperation(memory)
	default:
		values := t.state.next()
		return writeBroadcast(memory, t.cfg.Target, values)
	}
}

// writeBroadcast writes values to the target view. If fewer values than
// target cells are produced, the last value is repeated across the
// remaining cells — the common case is a single value broadcast to
// every target cell.
func writeBroadcast(memory *memspace.MemorySpace, target View, values []uint64) error {
	if len(values) == 0 {
		return fmt.Errorf("simulation produced no values")
	}
	out := make([]uint64, target.N)
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = values[len(values)-1]
		}
	}
	return setView(memory, target, out)
}

func setView(memory *memspace.MemorySpace, v View, values []uint64) error {
	if v.Section == memspace.Bits {
		bits := make([]uint8, len(values))
		for i, val := range values {
			if val != 0 {
				bits[i] = 1
			}
		}
		return memory.SetBits(v.Addr, bits)
	}
	return memory.SetWords(v.Section, v.Addr, values)
}

func getView(memory *memspace.MemorySpace, v View) ([]uint64, error) {
	if v.Section == memspace.Bits {
		bits, err := memory.GetBits(v.Addr, v.N)
		if err != nil {
			return nil, err
		}
		out := make([]uint64, len(bits))
		for i, b := range bits {
			out[i] = uint64(b)
		}
		return out, nil
	}
	return memory.GetWords(v.Section, v.Addr, v.N)
}

func (t *task) tickCopy(memory *memspace.MemorySpace) error {
	values, err := getView(memory, *t.cfg.Source)
	if err != nil {
		return err
	}
	return setView(memory, t.cfg.Target, values)
}

func (t *task) tickTransform(memory *memspace.MemorySpace) error {
	tr := memspace.Transform{
		Low:    t.cfg.Func.TransformLow,
		High:   t.cfg.Func.TransformHigh,
		Output: t.cfg.Func.TransformOut,
	}
	return memory.InstallTransform(t.cfg.Target.Section, t.cfg.Target.Addr, tr)
}

func (t *task) tickOperation(memory *memspace.MemorySpace) error {
	ops := t.state.(*operationState)
	if len(t.cfg.Func.Operands) == 0 {
		return fmt.Errorf("operation requires at least one operand")
	}

	resolved := make([]uint64, 0, len(t.cfg.Func.Operands))
	for _, op := range t.cfg.Func.Operands {
		if op.IsValue {
			resolved = append(resolved, op.Value)
			continue
		}
		values, err := getView(memory, op.Ref)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return fmt.Errorf("operand view is empty")
		}
		resolved = append(resolved, values[0])
	}

	result := resolved[0]
	for _, v := range resolved[1:] {
		result = ops.fn(result, v)
	}

	return writeBroadcast(memory, t.cfg.Target, []uint64{result})
}
