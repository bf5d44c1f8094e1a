// Package counter validates and applies counter adjustments and keeps the undo log.
package counter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxValue bounds both reads and goal.
	MaxValue = 1_000_000
	// RoundSize is the number of reads in one round.
	RoundSize = 108
)

var (
	// ErrInvalidAdjustment is returned for requests that fail validation.
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	// ErrArithmeticOverflow is returned when a rounds request overflows.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrEmptyHistory is returned by Undo when there is nothing to undo.
	ErrEmptyHistory = errors.New("nothing to undo")
)

// Kind enumerates adjustment requests.
type Kind int

const (
	// KindReads adds reads to the counter.
	KindReads Kind = iota + 1
	// KindRounds adds rounds of RoundSize reads.
	KindRounds
	// KindValue replaces the counter value.
	KindValue
	// KindGoal replaces the goal.
	KindGoal
)

// String returns the command name of the kind.
func (k Kind) String() string {
	switch k {
	case KindReads:
		return "reads"
	case KindRounds:
		return "rounds"
	case KindValue:
		return "value"
	case KindGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// ParseKind maps a command name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reads", "read":
		return KindReads, nil
	case "rounds", "round":
		return KindRounds, nil
	case "value", "set":
		return KindValue, nil
	case "goal":
		return KindGoal, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidAdjustment, s)
	}
}

// Request is an adjustment of one kind with its operand.
type Request struct {
	Kind Kind
	N    uint32
}

// Reads builds a request adding n reads.
func Reads(n uint32) Request { return Request{Kind: KindReads, N: n} }

// Rounds builds a request adding n rounds.
func Rounds(n uint32) Request { return Request{Kind: KindRounds, N: n} }

// SetValue builds a request replacing the counter value.
func SetValue(n uint32) Request { return Request{Kind: KindValue, N: n} }

// SetGoal builds a request replacing the goal.
func SetGoal(n uint32) Request { return Request{Kind: KindGoal, N: n} }

// String renders the request for logs.
func (r Request) String() string {
	return fmt.Sprintf("%s(%d)", r.Kind, r.N)
}

// ParseRequest parses user input for the given kind. Input must be an unsigned
// decimal integer; anything else is rejected before arithmetic.
func ParseRequest(kind Kind, text string) (Request, error) {
	switch kind {
	case KindReads, KindRounds, KindValue, KindGoal:
	default:
		return Request{}, fmt.Errorf("%w: unknown kind", ErrInvalidAdjustment)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, fmt.Errorf("%w: empty input", ErrInvalidAdjustment)
	}
	n, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %q is not a valid number", ErrInvalidAdjustment, text)
	}
	return Request{Kind: kind, N: uint32(n)}, nil
}
