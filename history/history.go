// Package history provides a bounded, linear undo/redo stack of triage
// actions. It is a local safety net for the reviewer's last decisions, not a
// transaction log: inverting an entry never issues backend calls by itself.
package history

import (
	"sync"

	"github.com/fwojciec/planreview"
)

// DefaultLimit is the maximum number of entries kept when no explicit limit
// is given.
const DefaultLimit = 50

// Manager holds an ordered list of history entries plus a cursor. Entries at
// or before the cursor are undoable; entries after it are redoable. The mutex
// covers recording from triage operations concurrently with clears from plan
// refreshes.
type Manager struct {
	mu      sync.Mutex
	limit   int
	entries []planreview.HistoryEntry
	cursor  int // index of the last applied entry, -1 when none
}

// NewManager creates a Manager keeping at most limit entries. A non-positive
// limit selects DefaultLimit.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit, cursor: -1}
}

// Record appends an entry. Any redoable tail beyond the cursor is discarded,
// and the oldest entries are evicted once the limit is exceeded.
func (m *Manager) Record(e planreview.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries[:m.cursor+1], e)
	m.cursor++
	if len(m.entries) > m.limit {
		overflow := len(m.entries) - m.limit
		m.entries = append([]planreview.HistoryEntry(nil), m.entries[overflow:]...)
		m.cursor -= overflow
	}
}

// Undo returns the entry to invert and moves the cursor back. The second
// return is false when there is nothing to undo.
func (m *Manager) Undo() (planreview.HistoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		return planreview.HistoryEntry{}, false
	}
	e := m.entries[m.cursor]
	m.cursor--
	return e, true
}

// Redo returns the entry to replay and moves the cursor forward. The second
// return is false when there is nothing to redo.
func (m *Manager) Redo() (planreview.HistoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor >= len(m.entries)-1 {
		return planreview.HistoryEntry{}, false
	}
	m.cursor++
	return m.entries[m.cursor], true
}

// CanUndo reports whether an entry is available to undo.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= 0
}

// CanRedo reports whether an entry is available to redo.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.entries)-1
}

// Len returns the number of retained entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear discards all entries.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.cursor = -1
}
