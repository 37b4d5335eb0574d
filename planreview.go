// Package planreview provides domain types for triaging machine-proposed
// edits to media scene metadata before they are committed to the backend.
package planreview

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueType identifies the semantic type of a field value. It is fixed when a
// change is created and drives both the diff strategy and the edit-input shape.
type ValueType string

// Supported value types.
const (
	TypeText   ValueType = "text"
	TypeArray  ValueType = "array"
	TypeObject ValueType = "object"
	TypeDate   ValueType = "date"
	TypeNumber ValueType = "number"
)

// Valid reports whether t is one of the supported value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeText, TypeArray, TypeObject, TypeDate, TypeNumber:
		return true
	}
	return false
}

// DateLayout is the canonical wire and display format for date values.
const DateLayout = "2006-01-02"

// Value is a tagged union over the field value shapes the engine understands.
// Exactly one payload field is meaningful, selected by Type. A nil *Value
// means the field has no value on that side.
type Value struct {
	Type   ValueType
	Text   string            // TypeText
	Array  []string          // TypeArray
	Object map[string]string // TypeObject
	Date   time.Time         // TypeDate
	Number float64           // TypeNumber
}

// TextValue returns a text Value.
func TextValue(s string) *Value { return &Value{Type: TypeText, Text: s} }

// ArrayValue returns an array Value.
func ArrayValue(items ...string) *Value { return &Value{Type: TypeArray, Array: items} }

// ObjectValue returns an object Value.
func ObjectValue(fields map[string]string) *Value { return &Value{Type: TypeObject, Object: fields} }

// DateValue returns a date Value.
func DateValue(t time.Time) *Value { return &Value{Type: TypeDate, Date: t} }

// NumberValue returns a number Value.
func NumberValue(n float64) *Value { return &Value{Type: TypeNumber, Number: n} }

// Canonical returns the canonical string form of the value, used for diffing
// and display. A nil value canonicalizes to the empty string.
func (v *Value) Canonical() string {
	if v == nil {
		return ""
	}
	switch v.Type {
	case TypeText:
		return v.Text
	case TypeArray:
		return strings.Join(v.Array, ", ")
	case TypeObject:
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+": "+v.Object[k])
		}
		return strings.Join(pairs, "; ")
	case TypeDate:
		if v.Date.IsZero() {
			return ""
		}
		return v.Date.Format(DateLayout)
	case TypeNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return ""
}

// Items returns the array payload, empty for nil or non-array values.
func (v *Value) Items() []string {
	if v == nil || v.Type != TypeArray {
		return nil
	}
	return v.Array
}

// Fields returns the object payload, empty for nil or non-object values.
func (v *Value) Fields() map[string]string {
	if v == nil || v.Type != TypeObject {
		return nil
	}
	return v.Object
}

// Equal reports whether two values are identical in type and payload.
// Two nil values are equal; nil never equals a non-nil value.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeText:
		return v.Text == other.Text
	case TypeArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if v.Array[i] != other.Array[i] {
				return false
			}
		}
		return true
	case TypeObject:
		if len(v.Object) != len(other.Object) {
			return false
		}
		for k, val := range v.Object {
			if other.Object[k] != val {
				return false
			}
		}
		return true
	case TypeDate:
		return v.Date.Equal(other.Date)
	case TypeNumber:
		return v.Number == other.Number
	}
	return false
}

// Clone returns a deep copy of the value. Clone of nil is nil.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{Type: v.Type, Text: v.Text, Date: v.Date, Number: v.Number}
	if v.Array != nil {
		out.Array = append([]string(nil), v.Array...)
	}
	if v.Object != nil {
		out.Object = make(map[string]string, len(v.Object))
		for k, val := range v.Object {
			out.Object[k] = val
		}
	}
	return out
}

// MarshalJSON emits the natural JSON shape for the value: a string for text
// and dates, an array for arrays, an object for objects, a number for numbers.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeText:
		return json.Marshal(v.Text)
	case TypeArray:
		if v.Array == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Array)
	case TypeObject:
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Object)
	case TypeDate:
		return json.Marshal(v.Canonical())
	case TypeNumber:
		return json.Marshal(v.Number)
	}
	return nil, fmt.Errorf("marshal value: unsupported type %q", v.Type)
}

// DecodeValue parses a raw JSON value of the given type into a Value.
// JSON null decodes to nil (no value on that side).
func DecodeValue(raw json.RawMessage, t ValueType) (*Value, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	switch t {
	case TypeText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode text value: %w", err)
		}
		return TextValue(s), nil
	case TypeArray:
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode array value: %w", err)
		}
		return ArrayValue(items...), nil
	case TypeObject:
		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode object value: %w", err)
		}
		return ObjectValue(fields), nil
	case TypeDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode date value: %w", err)
		}
		if s == "" {
			return nil, nil
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("decode date value: %w", err)
		}
		return DateValue(d), nil
	case TypeNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode number value: %w", err)
		}
		return NumberValue(n), nil
	}
	return nil, fmt.Errorf("decode value: unsupported type %q", t)
}

// Change is the unit of review: one machine-proposed edit to a single field of
// one scene, plus the reviewer's disposition. Changes are created only when a
// plan is loaded from the backend and mutated only through triage operations.
type Change struct {
	ID         string
	SceneID    string
	Field      string
	Type       ValueType
	Current    *Value // nil means the field has no current value
	Proposed   *Value // nil means the proposal clears the field
	Edited     *Value // reviewer override; nil means none
	Confidence float64
	Accepted   bool
	Rejected   bool
	Applied    bool // set once the backend commit has taken effect
}

// Pending reports whether the change has not yet been accepted or rejected.
func (c *Change) Pending() bool { return !c.Accepted && !c.Rejected }

// EffectiveValue returns the value that would be applied: the reviewer's edit
// when present, otherwise the proposed value.
func (c *Change) EffectiveValue() *Value {
	if c.Edited != nil {
		return c.Edited
	}
	return c.Proposed
}

// Clone returns a deep copy of the change.
func (c *Change) Clone() *Change {
	out := *c
	out.Current = c.Current.Clone()
	out.Proposed = c.Proposed.Clone()
	out.Edited = c.Edited.Clone()
	return &out
}

// changeWire is the JSON shape shared by the backend API and exports.
type changeWire struct {
	ID         string          `json:"id"`
	SceneID    string          `json:"scene_id"`
	Field      string          `json:"field"`
	Type       ValueType       `json:"type"`
	Current    json.RawMessage `json:"current"`
	Proposed   json.RawMessage `json:"proposed"`
	Edited     json.RawMessage `json:"edited,omitempty"`
	Confidence float64         `json:"confidence"`
	Accepted   bool            `json:"accepted"`
	Rejected   bool            `json:"rejected"`
	Applied    bool            `json:"applied"`
}

// MarshalJSON implements json.Marshaler.
func (c *Change) MarshalJSON() ([]byte, error) {
	w := changeWire{
		ID:         c.ID,
		SceneID:    c.SceneID,
		Field:      c.Field,
		Type:       c.Type,
		Confidence: c.Confidence,
		Accepted:   c.Accepted,
		Rejected:   c.Rejected,
		Applied:    c.Applied,
	}
	var err error
	if w.Current, err = marshalRaw(c.Current); err != nil {
		return nil, err
	}
	if w.Proposed, err = marshalRaw(c.Proposed); err != nil {
		return nil, err
	}
	if c.Edited != nil {
		if w.Edited, err = marshalRaw(c.Edited); err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Value payloads are decoded
// according to the change's declared type.
func (c *Change) UnmarshalJSON(data []byte) error {
	var w changeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("change %q: unsupported value type %q", w.ID, w.Type)
	}
	current, err := DecodeValue(w.Current, w.Type)
	if err != nil {
		return fmt.Errorf("change %q: %w", w.ID, err)
	}
	proposed, err := DecodeValue(w.Proposed, w.Type)
	if err != nil {
		return fmt.Errorf("change %q: %w", w.ID, err)
	}
	edited, err := DecodeValue(w.Edited, w.Type)
	if err != nil {
		return fmt.Errorf("change %q: %w", w.ID, err)
	}
	*c = Change{
		ID:         w.ID,
		SceneID:    w.SceneID,
		Field:      w.Field,
		Type:       w.Type,
		Current:    current,
		Proposed:   proposed,
		Edited:     edited,
		Confidence: w.Confidence,
		Accepted:   w.Accepted,
		Rejected:   w.Rejected,
		Applied:    w.Applied,
	}
	return nil
}

func marshalRaw(v *Value) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	return v.MarshalJSON()
}

// Scene groups the changes proposed for a single owning scene. Change order is
// the insertion order from the upstream generator.
type Scene struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Changes []*Change `json:"changes"`
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := &Scene{ID: s.ID, Label: s.Label}
	if s.Changes != nil {
		out.Changes = make([]*Change, len(s.Changes))
		for i, c := range s.Changes {
			out.Changes[i] = c.Clone()
		}
	}
	return out
}

// Plan is the full set of changes under review in one session, grouped by
// scene in a stable order.
type Plan struct {
	ID     string   `json:"id"`
	Scenes []*Scene `json:"scenes"`
}

// Change returns the change with the given id, if present.
func (p *Plan) Change(id string) (*Change, bool) {
	if p == nil {
		return nil, false
	}
	for _, s := range p.Scenes {
		for _, c := range s.Changes {
			if c.ID == id {
				return c, true
			}
		}
	}
	return nil, false
}

// Changes returns all changes in plan order.
func (p *Plan) Changes() []*Change {
	if p == nil {
		return nil
	}
	var out []*Change
	for _, s := range p.Scenes {
		out = append(out, s.Changes...)
	}
	return out
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{ID: p.ID}
	if p.Scenes != nil {
		out.Scenes = make([]*Scene, len(p.Scenes))
		for i, s := range p.Scenes {
			out.Scenes[i] = s.Clone()
		}
	}
	return out
}

// Statistics summarizes the triage state of a plan.
type Statistics struct {
	Total             int
	Accepted          int
	Rejected          int
	Pending           int
	AcceptanceRate    float64 // percentage, rounded to 2 decimal places
	AverageConfidence float64
}

// ComputeStatistics derives statistics from a set of changes.
func ComputeStatistics(changes []*Change) Statistics {
	stats := Statistics{Total: len(changes)}
	if stats.Total == 0 {
		return stats
	}
	var confidence float64
	for _, c := range changes {
		confidence += c.Confidence
		switch {
		case c.Accepted:
			stats.Accepted++
		case c.Rejected:
			stats.Rejected++
		default:
			stats.Pending++
		}
	}
	stats.AcceptanceRate = math.Round(float64(stats.Accepted)/float64(stats.Total)*100*100) / 100
	stats.AverageConfidence = confidence / float64(stats.Total)
	return stats
}

// Action identifies the kind of triage operation recorded in history.
type Action string

// Triage actions.
const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionEdit   Action = "edit"
)

// ChangeState is the invertible portion of a change's triage state.
type ChangeState struct {
	Accepted bool
	Rejected bool
	Edited   *Value
}

// HistoryEntry records one triage operation with enough state to invert it
// (Previous) and to replay it (Next).
type HistoryEntry struct {
	ChangeID string
	Action   Action
	At       time.Time
	Previous ChangeState
	Next     ChangeState
}

// Store is the in-memory collection of changes under review. Reads are pure
// projections of the latest committed mutation.
type Store interface {
	// Load replaces the entire in-memory state with the given plan.
	Load(plan *Plan)
	// Plan returns the currently loaded plan, nil if none.
	Plan() *Plan
	// Scenes returns the scene groups in plan order.
	Scenes() []*Scene
	// Change returns the change with the given id.
	Change(id string) (*Change, bool)
	// SceneOf returns the scene containing the given change.
	SceneOf(changeID string) (*Scene, bool)
	// Accepted returns all accepted changes in plan order.
	Accepted() []*Change
	// Statistics summarizes the triage state of the loaded plan.
	Statistics() Statistics
	// FieldCounts maps field names to the count of pending changes per field.
	FieldCounts() map[string]int
	// SetStatus sets the accepted/rejected flags on a change.
	SetStatus(id string, accepted, rejected bool) (*Change, error)
	// SetEdited sets (or clears, with nil) the reviewer override on a change.
	SetEdited(id string, value *Value) (*Change, error)
	// MarkApplied flags changes as applied by the backend, freezing their
	// triage state. Unknown ids are ignored.
	MarkApplied(ids ...string)
}

// BulkAction identifies the direction of a bulk triage request.
type BulkAction string

// Bulk actions.
const (
	BulkAccept BulkAction = "accept"
	BulkReject BulkAction = "reject"
)

// BulkRequest describes a bulk triage action for the backend. Zero-valued
// selectors are unset; ConfidenceThreshold is nil when not selecting by
// confidence.
type BulkRequest struct {
	Action              BulkAction `json:"action"`
	SceneID             string     `json:"scene_id,omitempty"`
	Field               string     `json:"field,omitempty"`
	ConfidenceThreshold *float64   `json:"confidence_threshold,omitempty"`
}

// PlanService is the backend that owns the authoritative plan state and
// durably records triage decisions.
type PlanService interface {
	// FetchPlan returns the full authoritative state of a plan.
	FetchPlan(ctx context.Context, planID string) (*Plan, error)
	// SetChangeStatus persists the accepted/rejected flags for one change.
	SetChangeStatus(ctx context.Context, changeID string, accepted, rejected bool) error
	// SetChangeValue persists a reviewer-edited value for one change.
	SetChangeValue(ctx context.Context, changeID string, value *Value) error
	// BulkUpdate applies a bulk triage action in a single round-trip and
	// returns the number of changes the backend actually updated.
	BulkUpdate(ctx context.Context, planID string, req BulkRequest) (int, error)
}

// Notifier delivers opaque plan-update messages from a push transport. It is
// used only to refresh the engine's view, never to mutate it directly.
type Notifier interface {
	// Listen subscribes to a topic and invokes fn for each message until the
	// context is cancelled.
	Listen(ctx context.Context, topic string, fn func(message []byte)) error
}

// Differ computes a classified diff between the current and proposed value of
// a change.
type Differ interface {
	// Diff compares two values of the given type. A nil value on either side
	// is treated as the empty value of that type.
	Diff(current, proposed *Value, t ValueType) (*DiffResult, error)
}
