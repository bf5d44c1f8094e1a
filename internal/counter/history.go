package counter

import "github.com/verte-zerg/mantra/internal/model"

// History is a LIFO undo log. The zero value is empty and ready to use.
type History struct {
	entries []UndoEntry
}

// Push appends an entry.
func (h *History) Push(entry UndoEntry) {
	h.entries = append(h.entries, entry)
}

// Pop removes and returns the last entry.
func (h *History) Pop() (UndoEntry, bool) {
	if len(h.entries) == 0 {
		return UndoEntry{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Peek returns the last entry without removing it.
func (h *History) Peek() (UndoEntry, bool) {
	if len(h.entries) == 0 {
		return UndoEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.entries = nil
}

// Counter pairs a counter state with its undo history.
type Counter struct {
	state   model.CounterState
	history History
}

// New returns a Counter starting at state with empty history.
func New(state model.CounterState) *Counter {
	return &Counter{state: state}
}

// State returns the current state.
func (c *Counter) State() model.CounterState {
	return c.state
}

// Apply applies req and records the undo entry. Rejected requests change nothing.
func (c *Counter) Apply(req Request) (UndoEntry, error) {
	next, entry, err := Apply(c.state, req)
	if err != nil {
		return UndoEntry{}, err
	}
	c.state = next
	c.history.Push(entry)
	return entry, nil
}

// Undo reverts the last applied adjustment.
func (c *Counter) Undo() (UndoEntry, error) {
	entry, ok := c.history.Peek()
	if !ok {
		return UndoEntry{}, ErrEmptyHistory
	}
	next, err := Undo(c.state, &c.history)
	if err != nil {
		return UndoEntry{}, err
	}
	c.state = next
	return entry, nil
}

// CanUndo reports whether there is history to undo.
func (c *Counter) CanUndo() bool {
	return c.history.Len() > 0
}

// HistoryLen returns the number of undoable adjustments.
func (c *Counter) HistoryLen() int {
	return c.history.Len()
}

// Reset replaces the state and drops the history.
func (c *Counter) Reset(state model.CounterState) {
	c.state = state
	c.history.Clear()
}

// Sync replaces the state and keeps the history.
func (c *Counter) Sync(state model.CounterState) {
	c.state = state
}

// RevertApply rolls back the last Apply, restoring prior and dropping its entry.
func (c *Counter) RevertApply(prior model.CounterState) {
	c.state = prior
	c.history.Pop()
}

// RevertUndo rolls back the last Undo, restoring prior and pushing entry back.
func (c *Counter) RevertUndo(prior model.CounterState, entry UndoEntry) {
	c.state = prior
	c.history.Push(entry)
}
