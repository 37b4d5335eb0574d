// Package mem provides the in-memory change store used during a review
// session. The backend remains the persistence authority; this store holds
// the session's working copy.
package mem

import (
	"sync"

	"github.com/fwojciec/planreview"
)

// Compile-time interface verification.
var _ planreview.Store = (*Store)(nil)

// Store holds the loaded plan and an id index over its changes. Read methods
// return deep copies so callers such as the TUI and exporters can inspect
// change state without holding the lock while mutations land on another
// goroutine.
type Store struct {
	mu    sync.RWMutex
	plan  *planreview.Plan
	index map[string]*planreview.Change
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{index: map[string]*planreview.Change{}}
}

// Load replaces the entire in-memory state with the given plan.
func (s *Store) Load(plan *planreview.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plan = plan
	s.index = map[string]*planreview.Change{}
	if plan == nil {
		return
	}
	for _, scene := range plan.Scenes {
		for _, c := range scene.Changes {
			s.index[c.ID] = c
		}
	}
}

// Plan returns a copy of the currently loaded plan, nil if none.
func (s *Store) Plan() *planreview.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.Clone()
}

// Scenes returns copies of the scene groups in plan order.
func (s *Store) Scenes() []*planreview.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil {
		return nil
	}
	out := make([]*planreview.Scene, len(s.plan.Scenes))
	for i, scene := range s.plan.Scenes {
		out[i] = scene.Clone()
	}
	return out
}

// Change returns a copy of the change with the given id.
func (s *Store) Change(id string) (*planreview.Change, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// SceneOf returns a copy of the scene containing the given change.
func (s *Store) SceneOf(changeID string) (*planreview.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.index[changeID]
	if !ok || s.plan == nil {
		return nil, false
	}
	for _, scene := range s.plan.Scenes {
		if scene.ID == c.SceneID {
			return scene.Clone(), true
		}
	}
	return nil, false
}

// Accepted returns copies of all accepted changes in plan order.
func (s *Store) Accepted() []*planreview.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*planreview.Change
	for _, c := range s.plan.Changes() {
		if c.Accepted {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Statistics summarizes the triage state of the loaded plan.
func (s *Store) Statistics() planreview.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return planreview.ComputeStatistics(s.plan.Changes())
}

// FieldCounts maps field names to the count of pending changes per field.
// Already-decided changes are excluded so the counts can drive bulk-by-field
// actions.
func (s *Store) FieldCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{}
	for _, c := range s.plan.Changes() {
		if c.Pending() {
			counts[c.Field]++
		}
	}
	return counts
}

// SetStatus sets the accepted/rejected flags on a change. Accepted and
// rejected are mutually exclusive; both false means pending. Applied changes
// are frozen and cannot change status.
func (s *Store) SetStatus(id string, accepted, rejected bool) (*planreview.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.index[id]
	if !ok {
		return nil, &planreview.ValidationError{Op: "set status", Reason: planreview.ErrUnknownChange, ChangeID: id}
	}
	if c.Applied {
		return nil, &planreview.ValidationError{Op: "set status", Reason: planreview.ErrChangeApplied, ChangeID: id}
	}
	if accepted && rejected {
		return nil, &planreview.ValidationError{Op: "set status", Reason: planreview.ErrStatusConflict, ChangeID: id}
	}
	c.Accepted = accepted
	c.Rejected = rejected
	return c.Clone(), nil
}

// SetEdited sets (or clears, with nil) the reviewer override on a change. The
// value's type must match the change's declared type. Applied changes are
// frozen and cannot be edited.
func (s *Store) SetEdited(id string, value *planreview.Value) (*planreview.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.index[id]
	if !ok {
		return nil, &planreview.ValidationError{Op: "set edited", Reason: planreview.ErrUnknownChange, ChangeID: id}
	}
	if c.Applied {
		return nil, &planreview.ValidationError{Op: "set edited", Reason: planreview.ErrChangeApplied, ChangeID: id}
	}
	if value != nil && value.Type != c.Type {
		return nil, &planreview.ValidationError{
			Op:       "set edited",
			Reason:   planreview.ErrValueShape,
			ChangeID: id,
			Detail:   "value type " + string(value.Type) + " does not match field type " + string(c.Type),
		}
	}
	c.Edited = value
	return c.Clone(), nil
}

// MarkApplied flags changes as applied by the backend, freezing their triage
// state. Unknown ids are ignored.
func (s *Store) MarkApplied(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if c, ok := s.index[id]; ok {
			c.Applied = true
		}
	}
}
