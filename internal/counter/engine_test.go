package counter

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/mantra/internal/model"
)

func TestIsAllowedReadsBoundary(t *testing.T) {
	state := model.CounterState{Reads: 999_000}
	assert.True(t, IsAllowed(state, Reads(1_000)))
	assert.False(t, IsAllowed(state, Reads(1_001)))
	assert.True(t, IsAllowed(model.CounterState{}, Reads(0)))
	assert.False(t, IsAllowed(state, Reads(math.MaxUint32)))
}

func TestIsAllowedRoundsOverflow(t *testing.T) {
	limit := uint32(math.MaxUint32 / RoundSize)
	for _, n := range []uint32{limit + 1, limit + 2, math.MaxUint32 - 1, math.MaxUint32} {
		err := Validate(model.CounterState{}, Rounds(n))
		require.Error(t, err, "n=%d", n)
		assert.True(t, errors.Is(err, ErrArithmeticOverflow), "n=%d", n)
		assert.False(t, IsAllowed(model.CounterState{}, Rounds(n)))
	}
	// No overflow at the limit, but still far beyond MaxValue.
	err := Validate(model.CounterState{}, Rounds(limit))
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}

func TestIsAllowedRoundsRange(t *testing.T) {
	maxRounds := uint32(MaxValue / RoundSize)
	assert.True(t, IsAllowed(model.CounterState{}, Rounds(maxRounds)))
	assert.False(t, IsAllowed(model.CounterState{}, Rounds(maxRounds+1)))
	assert.False(t, IsAllowed(model.CounterState{Reads: MaxValue - RoundSize + 1}, Rounds(1)))
	assert.True(t, IsAllowed(model.CounterState{Reads: MaxValue - RoundSize}, Rounds(1)))
}

func TestIsAllowedSetters(t *testing.T) {
	state := model.CounterState{Reads: 500, Goal: 1000}
	for _, kind := range []Kind{KindValue, KindGoal} {
		assert.True(t, IsAllowed(state, Request{Kind: kind, N: 0}))
		assert.True(t, IsAllowed(state, Request{Kind: kind, N: MaxValue}))
		assert.False(t, IsAllowed(state, Request{Kind: kind, N: MaxValue + 1}))
	}
	assert.False(t, IsAllowed(state, Request{Kind: Kind(42), N: 1}))
}

func TestIsAllowedText(t *testing.T) {
	state := model.CounterState{Reads: 10}
	tests := []struct {
		text string
		want bool
	}{
		{"5", true},
		{" 7 ", true},
		{"", false},
		{"abc", false},
		{"-3", false},
		{"+3", false},
		{"1.5", false},
		{"99999999999", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedText(state, KindReads, tt.text))
		})
	}
}

func TestApply(t *testing.T) {
	state := model.CounterState{Reads: 10, Goal: 100, IsFavorite: true}
	tests := []struct {
		name      string
		req       Request
		wantState model.CounterState
		wantEntry UndoEntry
	}{
		{"reads", Reads(5), model.CounterState{Reads: 15, Goal: 100, IsFavorite: true}, UndoEntry{PriorValue: 10, Kind: ValueReads}},
		{"rounds", Rounds(2), model.CounterState{Reads: 226, Goal: 100, IsFavorite: true}, UndoEntry{PriorValue: 10, Kind: ValueReads}},
		{"value", SetValue(3), model.CounterState{Reads: 3, Goal: 100, IsFavorite: true}, UndoEntry{PriorValue: 10, Kind: ValueReads}},
		{"goal", SetGoal(500), model.CounterState{Reads: 10, Goal: 500, IsFavorite: true}, UndoEntry{PriorValue: 100, Kind: ValueGoal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, entry, err := Apply(state, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, next)
			assert.Equal(t, tt.wantEntry, entry)
		})
	}
}

func TestApplyRejected(t *testing.T) {
	state := model.CounterState{Reads: MaxValue}
	next, entry, err := Apply(state, Reads(1))
	require.ErrorIs(t, err, ErrInvalidAdjustment)
	assert.Equal(t, state, next)
	assert.Equal(t, UndoEntry{}, entry)
}

func TestApplyUndoRoundTrip(t *testing.T) {
	states := []model.CounterState{
		{},
		{Reads: 1, Goal: 0},
		{Reads: 999_999, Goal: 1_000_000},
		{Reads: 42, Goal: 108, IsFavorite: true},
	}
	reqs := []Request{Reads(0), Reads(1), Rounds(1), Rounds(3), SetValue(0), SetValue(777), SetGoal(0), SetGoal(MaxValue)}
	for _, state := range states {
		for _, req := range reqs {
			if !IsAllowed(state, req) {
				continue
			}
			next, entry, err := Apply(state, req)
			require.NoError(t, err)
			var h History
			h.Push(entry)
			restored, err := Undo(next, &h)
			require.NoError(t, err)
			assert.Equal(t, state, restored, "state=%+v req=%s", state, req)
			assert.Equal(t, 0, h.Len())
		}
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	var h History
	state := model.CounterState{Reads: 5}
	got, err := Undo(state, &h)
	require.ErrorIs(t, err, ErrEmptyHistory)
	assert.Equal(t, state, got)
}

func TestCounterScenarioRounds(t *testing.T) {
	c := New(model.CounterState{Reads: 0, Goal: 100})
	_, err := c.Apply(Rounds(1))
	require.NoError(t, err)
	assert.Equal(t, model.CounterState{Reads: 108, Goal: 100}, c.State())
	assert.True(t, c.CanUndo())

	_, err = c.Undo()
	require.NoError(t, err)
	assert.Equal(t, model.CounterState{Reads: 0, Goal: 100}, c.State())
	assert.False(t, c.CanUndo())
}

func TestCounterUndoWalksBack(t *testing.T) {
	c := New(model.CounterState{Reads: 1, Goal: 10})
	_, err := c.Apply(Reads(2))
	require.NoError(t, err)
	_, err = c.Apply(SetGoal(50))
	require.NoError(t, err)
	_, err = c.Apply(SetValue(40))
	require.NoError(t, err)
	assert.Equal(t, 3, c.HistoryLen())

	_, err = c.Undo()
	require.NoError(t, err)
	assert.Equal(t, model.CounterState{Reads: 3, Goal: 50}, c.State())
	_, err = c.Undo()
	require.NoError(t, err)
	assert.Equal(t, model.CounterState{Reads: 3, Goal: 10}, c.State())
	_, err = c.Undo()
	require.NoError(t, err)
	assert.Equal(t, model.CounterState{Reads: 1, Goal: 10}, c.State())
	_, err = c.Undo()
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestCounterRejectedKeepsHistory(t *testing.T) {
	c := New(model.CounterState{Reads: MaxValue})
	_, err := c.Apply(Reads(1))
	require.Error(t, err)
	assert.False(t, c.CanUndo())
	assert.Equal(t, int32(MaxValue), c.State().Reads)
}

func TestCounterRevert(t *testing.T) {
	prior := model.CounterState{Reads: 5, Goal: 9}
	c := New(prior)
	_, err := c.Apply(Reads(3))
	require.NoError(t, err)
	c.RevertApply(prior)
	assert.Equal(t, prior, c.State())
	assert.False(t, c.CanUndo())

	_, err = c.Apply(Reads(3))
	require.NoError(t, err)
	applied := c.State()
	entry, err := c.Undo()
	require.NoError(t, err)
	c.RevertUndo(applied, entry)
	assert.Equal(t, applied, c.State())
	assert.Equal(t, 1, c.HistoryLen())
}

func TestCounterReset(t *testing.T) {
	c := New(model.CounterState{Reads: 1})
	_, err := c.Apply(Reads(1))
	require.NoError(t, err)
	c.Reset(model.CounterState{Reads: 9})
	assert.False(t, c.CanUndo())
	assert.Equal(t, int32(9), c.State().Reads)
}

func TestProgressAndGoal(t *testing.T) {
	assert.Equal(t, 0.0, Progress(model.CounterState{Reads: 10}))
	assert.InDelta(t, 0.5, Progress(model.CounterState{Reads: 50, Goal: 100}), 1e-9)
	assert.Equal(t, int32(50), Remaining(model.CounterState{Reads: 50, Goal: 100}))
	assert.Equal(t, int32(0), Remaining(model.CounterState{Reads: 150, Goal: 100}))

	assert.True(t, GoalReached(model.CounterState{Reads: 99, Goal: 100}, model.CounterState{Reads: 100, Goal: 100}))
	assert.False(t, GoalReached(model.CounterState{Reads: 100, Goal: 100}, model.CounterState{Reads: 101, Goal: 100}))
	assert.False(t, GoalReached(model.CounterState{Reads: 0}, model.CounterState{Reads: 10}))
	assert.False(t, GoalReached(model.CounterState{Reads: 50, Goal: 100}, model.CounterState{Reads: 50, Goal: 40}))
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(KindRounds, "12")
	require.NoError(t, err)
	assert.Equal(t, Rounds(12), req)

	_, err = ParseRequest(KindGoal, "twelve")
	assert.ErrorIs(t, err, ErrInvalidAdjustment)

	_, err = ParseRequest(Kind(0), "1")
	assert.ErrorIs(t, err, ErrInvalidAdjustment)

	kind, err := ParseKind("Rounds")
	require.NoError(t, err)
	assert.Equal(t, KindRounds, kind)
	_, err = ParseKind("laps")
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}
