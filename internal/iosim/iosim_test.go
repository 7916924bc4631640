package iosim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcsim/internal/eventbus"
	"plcsim/internal/memspace"
)

func TestCounterNoRangeIncrements(t *testing.T) {
	cs, err := newCounterState(nil)
	require.NoError(t, err)

	var got []uint64
	for i := 0; i < 5; i++ {
		got = append(got, cs.next()...)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, got)
}

func TestCounterStopOnlyWraps(t *testing.T) {
	cs, err := newCounterState([]int64{10})
	require.NoError(t, err)

	var got []uint64
	for i := 0; i < 12; i++ {
		got = append(got, cs.next()...)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 1}, got)
}

func TestCounterStartStopDescending(t *testing.T) {
	cs, err := newCounterState([]int64{5, 2})
	require.NoError(t, err)

	var got []uint64
	for i := 0; i < 5; i++ {
		got = append(got, cs.next()...)
	}
	assert.Equal(t, []uint64{5, 4, 3, 2, 5}, got)
}

func TestCounterExplicitStep(t *testing.T) {
	cs, err := newCounterState([]int64{0, 10, 2})
	require.NoError(t, err)

	var got []uint64
	for i := 0; i < 6; i++ {
		got = append(got, cs.next()...)
	}
	assert.Equal(t, []uint64{0, 2, 4, 6, 8, 0}, got)
}

func TestBinaryToggles(t *testing.T) {
	bs := &binaryState{}
	assert.Equal(t, []uint64{1}, bs.next())
	assert.Equal(t, []uint64{0}, bs.next())
	assert.Equal(t, []uint64{1}, bs.next())
}

func TestStaticAlwaysSame(t *testing.T) {
	ss := &staticState{value: 321}
	assert.Equal(t, []uint64{321}, ss.next())
	assert.Equal(t, []uint64{321}, ss.next())
}

func TestOperatorTable(t *testing.T) {
	fn, err := lookupOperator("add")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), fn(3, 4))

	_, err = lookupOperator("frobnicate")
	assert.Error(t, err)
}

func TestSimulatorStaticWriteVisibleAfterOneTick(t *testing.T) {
	logger := zap.NewNop()
	memory := memspace.New(memspace.Config{W16Len: 16})
	bus := eventbus.New()
	sim := New(logger, memory, bus)

	err := sim.Start([]TaskConfig{
		{
			ID:     "static-1",
			Target: View{Section: memspace.Words16, Addr: 2, N: 1},
			Func:   FuncSpec{Type: FuncStatic, Value: 321},
			Pause:  20 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	defer sim.Stop()

	before, err := memory.GetWords(memspace.Words16, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, before)

	time.Sleep(80 * time.Millisecond)

	after, err := memory.GetWords(memspace.Words16, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{321}, after)
}

func TestSimulatorOperationAddsTwoCounters(t *testing.T) {
	logger := zap.NewNop()
	memory := memspace.New(memspace.Config{W16Len: 64})
	bus := eventbus.New()
	sim := New(logger, memory, bus)

	err := sim.Start([]TaskConfig{
		{
			ID:     "c1",
			Target: View{Section: memspace.Words16, Addr: 30, N: 1},
			Func:   FuncSpec{Type: FuncCounter, Range: []int64{1, 11}},
			Pause:  15 * time.Millisecond,
		},
		{
			ID:     "c2",
			Target: View{Section: memspace.Words16, Addr: 31, N: 1},
			Func:   FuncSpec{Type: FuncCounter, Range: []int64{1, 11}},
			Pause:  15 * time.Millisecond,
		},
		{
			ID:     "add",
			Target: View{Section: memspace.Words16, Addr: 32, N: 1},
			Func: FuncSpec{
				Type:     FuncOperation,
				Operator: "add",
				Operands: []Operand{
					{Ref: View{Section: memspace.Words16, Addr: 30, N: 1}},
					{Ref: View{Section: memspace.Words16, Addr: 31, N: 1}},
				},
			},
			Pause: 15 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	defer sim.Stop()

	time.Sleep(120 * time.Millisecond)

	v30, _ := memory.GetWords(memspace.Words16, 30, 1)
	v31, _ := memory.GetWords(memspace.Words16, 31, 1)
	v32, _ := memory.GetWords(memspace.Words16, 32, 1)
	assert.Equal(t, (v30[0]+v31[0])&0xFFFF, v32[0])
}

func TestSimulatorCopyMirrorsSource(t *testing.T) {
	logger := zap.NewNop()
	memory := memspace.New(memspace.Config{W16Len: 16})
	bus := eventbus.New()
	sim := New(logger, memory, bus)

	require.NoError(t, memory.SetWords(memspace.Words16, 0, []uint64{7, 8, 9}))
	src := View{Section: memspace.Words16, Addr: 0, N: 3}

	err := sim.Start([]TaskConfig{
		{
			ID:     "mirror",
			Target: View{Section: memspace.Words16, Addr: 5, N: 3},
			Source: &src,
			Func:   FuncSpec{Type: FuncCopy},
			Pause:  15 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	defer sim.Stop()

	time.Sleep(60 * time.Millisecond)

	got, err := memory.GetWords(memspace.Words16, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 8, 9}, got)
}

func TestStartRejectsUnknownFunctionType(t *testing.T) {
	logger := zap.NewNop()
	memory := memspace.New(memspace.Config{W16Len: 16})
	sim := New(logger, memory, nil)

	err := sim.Start([]TaskConfig{
		{Target: View{Section: memspace.Words16, N: 1}, Func: FuncSpec{Type: "bogus"}},
	})
	assert.Error(t, err)
}

func TestShutdownTerminatesWithinPauseBound(t *testing.T) {
	logger := zap.NewNop()
	memory := memspace.New(memspace.Config{W16Len: 16})
	sim := New(logger, memory, eventbus.New())

	require.NoError(t, sim.Start([]TaskConfig{
		{Target: View{Section: memspace.Words16, N: 1}, Func: FuncSpec{Type: FuncBinary}, Pause: 30 * time.Millisecond},
	}))

	done := make(chan struct{})
	go func() {
		sim.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("stop did not return within bound")
	}
}
