package planreview

// DiffKind classifies a diff part.
type DiffKind int

// Diff part kinds.
const (
	DiffEqual DiffKind = iota
	DiffAdd
	DiffRemove
)

// DiffPart is a contiguous run of text with a single classification.
type DiffPart struct {
	Kind DiffKind
	Text string
}

// Move records an array item present on both sides but at different positions.
type Move struct {
	Item string
	From int
	To   int
}

// ArrayDiff is the membership-and-order diff of two array values. Membership
// changes and reorders are reported separately so that a reordered list is not
// misreported as a full replacement.
type ArrayDiff struct {
	Added     []string
	Removed   []string
	Unchanged []string
	Moved     []Move
}

// FieldChange holds the old and new serialized value of an object key.
type FieldChange struct {
	Old string
	New string
}

// ObjectDiff is the shallow key-wise diff of two object values.
type ObjectDiff struct {
	Added     map[string]string
	Removed   map[string]string
	Changed   map[string]FieldChange
	Unchanged map[string]string
}

// DiffResult is a classified diff between a current and a proposed value.
// Parts always describe the diff for display; Array and Object carry the
// structured detail for their respective value types.
type DiffResult struct {
	Parts     []DiffPart
	Array     *ArrayDiff  // set for array values
	Object    *ObjectDiff // set for object values
	Additions int
	Deletions int
}

// HasChanges reports whether the two sides differ at all. A pure reorder of
// an array counts as a change even though nothing was added or removed.
func (r *DiffResult) HasChanges() bool {
	if r == nil {
		return false
	}
	if r.Additions > 0 || r.Deletions > 0 {
		return true
	}
	return r.Array != nil && len(r.Array.Moved) > 0
}
