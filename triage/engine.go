// Package triage implements the accept/reject/edit operations over a change
// store, including bulk variants and undo/redo. Single-change operations are
// optimistic: the local state flips first and the backend call follows. Bulk
// operations go to the backend first and then refetch the authoritative plan,
// because the backend is the source of truth for how many changes were
// actually updated.
package triage

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/history"
)

// Engine coordinates triage operations between the local store and the
// backend. Mutating methods are expected to be called from a single
// event-dispatching goroutine; the store protects concurrent readers.
type Engine struct {
	store      planreview.Store
	svc        planreview.PlanService
	history    *history.Manager
	logger     *slog.Logger
	group      singleflight.Group
	syncOnUndo bool
	planID     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHistoryLimit bounds the undo/redo stack.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) { e.history = history.NewManager(limit) }
}

// WithSyncOnUndo makes undo and redo re-issue the corresponding backend call
// after a successful local inversion. By default undo/redo are local-only.
func WithSyncOnUndo() Option {
	return func(e *Engine) { e.syncOnUndo = true }
}

// NewEngine creates an Engine over the given store and backend service.
func NewEngine(store planreview.Store, svc planreview.PlanService, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		svc:     svc,
		history: history.NewManager(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Store returns the underlying change store for read access.
func (e *Engine) Store() planreview.Store { return e.store }

// PlanID returns the id of the loaded plan, empty when none.
func (e *Engine) PlanID() string { return e.planID }

// LoadPlan fetches a plan from the backend and replaces all local state.
// History is reset: entries would reference change state the new plan may
// have invalidated.
func (e *Engine) LoadPlan(ctx context.Context, planID string) error {
	plan, err := e.svc.FetchPlan(ctx, planID)
	if err != nil {
		return err
	}
	e.planID = planID
	e.store.Load(plan)
	e.history.Clear()
	e.logger.Debug("plan loaded", "plan", planID, "changes", e.store.Statistics().Total)
	return nil
}

// Refresh refetches the authoritative plan state and replaces local state.
// Concurrent refreshes are collapsed into one fetch.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.planID == "" {
		return &planreview.ValidationError{Op: "refresh", Reason: planreview.ErrNoPlan}
	}
	_, err, _ := e.group.Do("refresh", func() (any, error) {
		plan, err := e.svc.FetchPlan(ctx, e.planID)
		if err != nil {
			return nil, err
		}
		e.store.Load(plan)
		e.history.Clear()
		return nil, nil
	})
	return err
}

// Accept marks a change accepted locally and persists the status. On a
// transport failure the optimistic local state stays; the caller may retry or
// undo.
func (e *Engine) Accept(ctx context.Context, changeID string) error {
	return e.setStatus(ctx, changeID, planreview.ActionAccept, true, false)
}

// Reject marks a change rejected locally and persists the status.
func (e *Engine) Reject(ctx context.Context, changeID string) error {
	return e.setStatus(ctx, changeID, planreview.ActionReject, false, true)
}

func (e *Engine) setStatus(ctx context.Context, changeID string, action planreview.Action, accepted, rejected bool) error {
	op := string(action)
	c, ok := e.store.Change(changeID)
	if !ok {
		return &planreview.ValidationError{Op: op, Reason: planreview.ErrUnknownChange, ChangeID: changeID}
	}
	if c.Applied {
		return &planreview.ValidationError{Op: op, Reason: planreview.ErrChangeApplied, ChangeID: changeID}
	}

	prev := snapshot(c)
	if _, err := e.store.SetStatus(changeID, accepted, rejected); err != nil {
		return err
	}
	e.history.Record(planreview.HistoryEntry{
		ChangeID: changeID,
		Action:   action,
		At:       time.Now(),
		Previous: prev,
		Next:     planreview.ChangeState{Accepted: accepted, Rejected: rejected, Edited: prev.Edited},
	})

	if err := e.svc.SetChangeStatus(ctx, changeID, accepted, rejected); err != nil {
		e.logger.Warn("triage status not persisted", "change", changeID, "action", op, "error", err)
		return err
	}
	e.logger.Debug("change triaged", "change", changeID, "action", op)
	return nil
}

// Edit sets a reviewer override for a change's value and persists it. The
// triage status is untouched: editing and accepting/rejecting are independent
// decisions. On a transport failure the edit stays visible locally.
func (e *Engine) Edit(ctx context.Context, changeID string, value *planreview.Value) error {
	const op = "edit"
	c, ok := e.store.Change(changeID)
	if !ok {
		return &planreview.ValidationError{Op: op, Reason: planreview.ErrUnknownChange, ChangeID: changeID}
	}
	if c.Applied {
		return &planreview.ValidationError{Op: op, Reason: planreview.ErrChangeApplied, ChangeID: changeID}
	}

	prev := snapshot(c)
	if _, err := e.store.SetEdited(changeID, value.Clone()); err != nil {
		return err
	}
	next := prev
	next.Edited = value.Clone()
	e.history.Record(planreview.HistoryEntry{
		ChangeID: changeID,
		Action:   planreview.ActionEdit,
		At:       time.Now(),
		Previous: prev,
		Next:     next,
	})

	if err := e.svc.SetChangeValue(ctx, changeID, value); err != nil {
		e.logger.Warn("edited value not persisted", "change", changeID, "error", err)
		return err
	}
	e.logger.Debug("change edited", "change", changeID)
	return nil
}

// AcceptAll accepts every pending change, or only those in the given scene
// when sceneID is non-empty. Returns the number of changes the backend
// updated. Calling it when nothing is pending is a no-op returning 0.
func (e *Engine) AcceptAll(ctx context.Context, sceneID string) (int, error) {
	return e.bulk(ctx, "accept all",
		planreview.BulkRequest{Action: planreview.BulkAccept, SceneID: sceneID},
		func(c *planreview.Change) bool { return sceneID == "" || c.SceneID == sceneID })
}

// RejectAll rejects every pending change, or only those in the given scene
// when sceneID is non-empty.
func (e *Engine) RejectAll(ctx context.Context, sceneID string) (int, error) {
	return e.bulk(ctx, "reject all",
		planreview.BulkRequest{Action: planreview.BulkReject, SceneID: sceneID},
		func(c *planreview.Change) bool { return sceneID == "" || c.SceneID == sceneID })
}

// AcceptByConfidence accepts every pending change whose confidence is at or
// above the threshold. Equality counts as accept.
func (e *Engine) AcceptByConfidence(ctx context.Context, threshold float64) (int, error) {
	if threshold < 0 || threshold > 1 {
		return 0, &planreview.ValidationError{
			Op:     "accept by confidence",
			Reason: planreview.ErrBadThreshold,
			Detail: strconv.FormatFloat(threshold, 'f', -1, 64),
		}
	}
	t := threshold
	return e.bulk(ctx, "accept by confidence",
		planreview.BulkRequest{Action: planreview.BulkAccept, ConfidenceThreshold: &t},
		func(c *planreview.Change) bool { return c.Confidence >= threshold })
}

// AcceptByField accepts every pending change across all scenes whose field
// matches exactly.
func (e *Engine) AcceptByField(ctx context.Context, field string) (int, error) {
	return e.bulk(ctx, "accept by field",
		planreview.BulkRequest{Action: planreview.BulkAccept, Field: field},
		func(c *planreview.Change) bool { return c.Field == field })
}

// RejectByField rejects every pending change across all scenes whose field
// matches exactly.
func (e *Engine) RejectByField(ctx context.Context, field string) (int, error) {
	return e.bulk(ctx, "reject by field",
		planreview.BulkRequest{Action: planreview.BulkReject, Field: field},
		func(c *planreview.Change) bool { return c.Field == field })
}

// bulk performs a bulk triage action as a single backend round-trip followed
// by a full refetch. No optimistic mutation happens before the round-trip, so
// a transport failure leaves the store unchanged. A refetch failure leaves
// the store at its pre-bulk state and reports the outcome as indeterminate.
func (e *Engine) bulk(ctx context.Context, op string, req planreview.BulkRequest, selects func(*planreview.Change) bool) (int, error) {
	plan := e.store.Plan()
	if plan == nil {
		return 0, &planreview.ValidationError{Op: op, Reason: planreview.ErrNoPlan}
	}

	pending := 0
	for _, c := range plan.Changes() {
		if c.Pending() && !c.Applied && selects(c) {
			pending++
		}
	}
	if pending == 0 {
		e.logger.Debug("bulk action skipped, nothing pending", "op", op)
		return 0, nil
	}

	updated, err := e.svc.BulkUpdate(ctx, e.planID, req)
	if err != nil {
		return 0, err
	}
	if err := e.Refresh(ctx); err != nil {
		e.logger.Warn("bulk action applied but refetch failed", "op", op, "updated", updated, "error", err)
		return updated, &planreview.ReconciliationError{Op: op, Err: err}
	}
	e.logger.Debug("bulk action applied", "op", op, "updated", updated)
	return updated, nil
}

// CanUndo reports whether a triage action is available to undo.
func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a triage action is available to redo.
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// Undo restores the local state recorded before the most recent triage
// action. It is a no-op when there is nothing to undo. Backend state is only
// re-synced when the engine was built with WithSyncOnUndo.
func (e *Engine) Undo(ctx context.Context) error {
	entry, ok := e.history.Undo()
	if !ok {
		return nil
	}
	return e.applyState(ctx, "undo", entry.ChangeID, entry.Action, entry.Previous)
}

// Redo re-applies the local state of the most recently undone action.
func (e *Engine) Redo(ctx context.Context) error {
	entry, ok := e.history.Redo()
	if !ok {
		return nil
	}
	return e.applyState(ctx, "redo", entry.ChangeID, entry.Action, entry.Next)
}

func (e *Engine) applyState(ctx context.Context, op, changeID string, action planreview.Action, state planreview.ChangeState) error {
	// The change can only be missing if the plan was swapped out from under
	// the history, which also clears it; guard anyway.
	c, ok := e.store.Change(changeID)
	if !ok {
		return nil
	}
	// Applied changes are frozen; an entry recorded before the backend applied
	// the change must not thaw it.
	if c.Applied {
		return &planreview.ValidationError{Op: op, Reason: planreview.ErrChangeApplied, ChangeID: changeID}
	}
	if _, err := e.store.SetStatus(changeID, state.Accepted, state.Rejected); err != nil {
		return err
	}
	if _, err := e.store.SetEdited(changeID, state.Edited.Clone()); err != nil {
		return err
	}
	if !e.syncOnUndo {
		return nil
	}

	var err error
	if action == planreview.ActionEdit {
		c, _ := e.store.Change(changeID)
		err = e.svc.SetChangeValue(ctx, changeID, c.EffectiveValue())
	} else {
		err = e.svc.SetChangeStatus(ctx, changeID, state.Accepted, state.Rejected)
	}
	if err != nil {
		e.logger.Warn("history inversion not persisted", "change", changeID, "error", err)
		return err
	}
	return nil
}

func snapshot(c *planreview.Change) planreview.ChangeState {
	return planreview.ChangeState{Accepted: c.Accepted, Rejected: c.Rejected, Edited: c.Edited.Clone()}
}
