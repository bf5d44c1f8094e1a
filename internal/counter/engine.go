package counter

import (
	"fmt"
	"math/bits"

	"github.com/verte-zerg/mantra/internal/model"
)

// ValueKind tells which field an undo entry restores.
type ValueKind int

const (
	// ValueReads restores the counter value.
	ValueReads ValueKind = iota + 1
	// ValueGoal restores the goal.
	ValueGoal
)

// UndoEntry records the value a successful adjustment replaced.
type UndoEntry struct {
	PriorValue int32
	Kind       ValueKind
}

// Validate reports why req cannot be applied to state, or nil when it can.
func Validate(state model.CounterState, req Request) error {
	switch req.Kind {
	case KindReads:
		if !fitsAfterAdd(state.Reads, uint64(req.N)) {
			return fmt.Errorf("%w: %d + %d reads exceeds %d", ErrInvalidAdjustment, state.Reads, req.N, MaxValue)
		}
		return nil
	case KindRounds:
		hi, lo := bits.Mul32(req.N, RoundSize)
		if hi != 0 {
			return fmt.Errorf("%w: %d rounds", ErrArithmeticOverflow, req.N)
		}
		if !fitsAfterAdd(state.Reads, uint64(lo)) {
			return fmt.Errorf("%w: %d + %d rounds exceeds %d", ErrInvalidAdjustment, state.Reads, req.N, MaxValue)
		}
		return nil
	case KindValue, KindGoal:
		if req.N > MaxValue {
			return fmt.Errorf("%w: %d exceeds %d", ErrInvalidAdjustment, req.N, MaxValue)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAdjustment, req.Kind)
	}
}

// IsAllowed reports whether req can be applied to state.
func IsAllowed(state model.CounterState, req Request) bool {
	return Validate(state, req) == nil
}

// IsAllowedText parses text for kind and reports whether it can be applied.
// Malformed input yields false.
func IsAllowedText(state model.CounterState, kind Kind, text string) bool {
	req, err := ParseRequest(kind, text)
	if err != nil {
		return false
	}
	return IsAllowed(state, req)
}

// Apply computes the state after req and the entry that undoes it.
// A rejected request returns the validation error and leaves nothing to undo.
func Apply(state model.CounterState, req Request) (model.CounterState, UndoEntry, error) {
	if err := Validate(state, req); err != nil {
		return state, UndoEntry{}, err
	}
	next := state
	switch req.Kind {
	case KindReads:
		next.Reads = state.Reads + int32(req.N)
		return next, UndoEntry{PriorValue: state.Reads, Kind: ValueReads}, nil
	case KindRounds:
		next.Reads = state.Reads + int32(req.N*RoundSize)
		return next, UndoEntry{PriorValue: state.Reads, Kind: ValueReads}, nil
	case KindValue:
		next.Reads = int32(req.N)
		return next, UndoEntry{PriorValue: state.Reads, Kind: ValueReads}, nil
	default:
		next.Goal = int32(req.N)
		return next, UndoEntry{PriorValue: state.Goal, Kind: ValueGoal}, nil
	}
}

// Undo pops the last entry from history and restores the value it recorded.
func Undo(state model.CounterState, history *History) (model.CounterState, error) {
	entry, ok := history.Pop()
	if !ok {
		return state, ErrEmptyHistory
	}
	return restore(state, entry), nil
}

func restore(state model.CounterState, entry UndoEntry) model.CounterState {
	switch entry.Kind {
	case ValueGoal:
		state.Goal = entry.PriorValue
	default:
		state.Reads = entry.PriorValue
	}
	return state
}

func fitsAfterAdd(reads int32, n uint64) bool {
	if reads < 0 {
		return false
	}
	return uint64(reads)+n <= MaxValue
}

// Progress returns reads/goal, or 0 when there is no goal.
func Progress(state model.CounterState) float64 {
	if state.Goal <= 0 {
		return 0
	}
	return float64(state.Reads) / float64(state.Goal)
}

// Remaining returns the reads left to reach the goal, never negative.
func Remaining(state model.CounterState) int32 {
	if state.Goal <= state.Reads {
		return 0
	}
	return state.Goal - state.Reads
}

// GoalReached reports whether moving from prior to next crossed the goal upward.
func GoalReached(prior, next model.CounterState) bool {
	if next.Goal <= 0 {
		return false
	}
	return prior.Reads < next.Goal && next.Reads >= next.Goal
}
