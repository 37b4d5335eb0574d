// Package mock provides test doubles for planreview interfaces.
package mock

import (
	"context"

	"github.com/fwojciec/planreview"
)

// Compile-time interface verification.
var _ planreview.PlanService = (*PlanService)(nil)

// PlanService is a mock implementation of planreview.PlanService.
type PlanService struct {
	FetchPlanFn       func(ctx context.Context, planID string) (*planreview.Plan, error)
	SetChangeStatusFn func(ctx context.Context, changeID string, accepted, rejected bool) error
	SetChangeValueFn  func(ctx context.Context, changeID string, value *planreview.Value) error
	BulkUpdateFn      func(ctx context.Context, planID string, req planreview.BulkRequest) (int, error)
}

func (s *PlanService) FetchPlan(ctx context.Context, planID string) (*planreview.Plan, error) {
	return s.FetchPlanFn(ctx, planID)
}

func (s *PlanService) SetChangeStatus(ctx context.Context, changeID string, accepted, rejected bool) error {
	return s.SetChangeStatusFn(ctx, changeID, accepted, rejected)
}

func (s *PlanService) SetChangeValue(ctx context.Context, changeID string, value *planreview.Value) error {
	return s.SetChangeValueFn(ctx, changeID, value)
}

func (s *PlanService) BulkUpdate(ctx context.Context, planID string, req planreview.BulkRequest) (int, error) {
	return s.BulkUpdateFn(ctx, planID, req)
}

// Compile-time interface verification.
var _ planreview.Differ = (*Differ)(nil)

// Differ is a mock implementation of planreview.Differ.
type Differ struct {
	DiffFn func(current, proposed *planreview.Value, t planreview.ValueType) (*planreview.DiffResult, error)
}

func (d *Differ) Diff(current, proposed *planreview.Value, t planreview.ValueType) (*planreview.DiffResult, error) {
	return d.DiffFn(current, proposed, t)
}

// Compile-time interface verification.
var _ planreview.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of planreview.Notifier.
type Notifier struct {
	ListenFn func(ctx context.Context, topic string, fn func(message []byte)) error
}

func (n *Notifier) Listen(ctx context.Context, topic string, fn func(message []byte)) error {
	return n.ListenFn(ctx, topic, fn)
}

// Compile-time interface verification.
var _ planreview.Store = (*Store)(nil)

// Store is a mock implementation of planreview.Store.
type Store struct {
	LoadFn        func(plan *planreview.Plan)
	PlanFn        func() *planreview.Plan
	ScenesFn      func() []*planreview.Scene
	ChangeFn      func(id string) (*planreview.Change, bool)
	SceneOfFn     func(changeID string) (*planreview.Scene, bool)
	AcceptedFn    func() []*planreview.Change
	StatisticsFn  func() planreview.Statistics
	FieldCountsFn func() map[string]int
	SetStatusFn   func(id string, accepted, rejected bool) (*planreview.Change, error)
	SetEditedFn   func(id string, value *planreview.Value) (*planreview.Change, error)
	MarkAppliedFn func(ids ...string)
}

func (s *Store) Load(plan *planreview.Plan) { s.LoadFn(plan) }

func (s *Store) Plan() *planreview.Plan { return s.PlanFn() }

func (s *Store) Scenes() []*planreview.Scene { return s.ScenesFn() }

func (s *Store) Change(id string) (*planreview.Change, bool) { return s.ChangeFn(id) }

func (s *Store) SceneOf(changeID string) (*planreview.Scene, bool) { return s.SceneOfFn(changeID) }

func (s *Store) Accepted() []*planreview.Change { return s.AcceptedFn() }

func (s *Store) Statistics() planreview.Statistics { return s.StatisticsFn() }

func (s *Store) FieldCounts() map[string]int { return s.FieldCountsFn() }

func (s *Store) SetStatus(id string, accepted, rejected bool) (*planreview.Change, error) {
	return s.SetStatusFn(id, accepted, rejected)
}

func (s *Store) SetEdited(id string, value *planreview.Value) (*planreview.Change, error) {
	return s.SetEditedFn(id, value)
}

func (s *Store) MarkApplied(ids ...string) { s.MarkAppliedFn(ids...) }
