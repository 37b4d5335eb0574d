// Package valuediff computes classified diffs between field values,
// dispatching on the value type.
package valuediff

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/planreview"
)

// Compile-time interface verification.
var _ planreview.Differ = (*Differ)(nil)

// KeyFunc derives the identity key of an array token. Tokens with equal keys
// are the same item for membership purposes.
type KeyFunc func(item string) string

// Differ implements type-aware value diffing.
type Differ struct {
	keyFn KeyFunc
}

// Option configures a Differ.
type Option func(*Differ)

// WithKeyFunc overrides the identity key used for array membership. The
// default is the token's own string form.
func WithKeyFunc(fn KeyFunc) Option {
	return func(d *Differ) { d.keyFn = fn }
}

// NewDiffer creates a new Differ.
func NewDiffer(opts ...Option) *Differ {
	d := &Differ{keyFn: func(item string) string { return item }}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff compares two values of the given type. A nil value on either side is
// treated as the empty value of that type, never as an error.
func (d *Differ) Diff(current, proposed *planreview.Value, t planreview.ValueType) (*planreview.DiffResult, error) {
	switch t {
	case planreview.TypeText, planreview.TypeDate, planreview.TypeNumber:
		return textDiff(current.Canonical(), proposed.Canonical()), nil
	case planreview.TypeArray:
		return d.arrayDiff(current.Items(), proposed.Items()), nil
	case planreview.TypeObject:
		return objectDiff(current.Fields(), proposed.Fields()), nil
	default:
		return nil, &planreview.ValidationError{Op: "diff", Reason: planreview.ErrUnsupportedType, Detail: string(t)}
	}
}

// textDiff diffs at line granularity when either side is multi-line,
// otherwise at word granularity. Short labels get word-level output without
// single-character noise; prose fields get readable per-line output.
func textDiff(current, proposed string) *planreview.DiffResult {
	if strings.ContainsRune(current, '\n') || strings.ContainsRune(proposed, '\n') {
		return tokenDiff(splitLines(current), splitLines(proposed), countAll)
	}
	return tokenDiff(tokenizeWords(current), tokenizeWords(proposed), countWords)
}

// splitLines splits keeping the trailing separators so that concatenating the
// parts reconstructs the input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

// tokenizeWords splits a string into word, whitespace, and punctuation runs.
func tokenizeWords(s string) []string {
	if len(s) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(s)/3+1)
	i := 0
	for i < len(s) {
		start := i
		c := s[i]
		switch {
		case isWordChar(c):
			i++
			for i < len(s) && isWordChar(s[i]) {
				i++
			}
		case isWhitespace(c):
			i++
			for i < len(s) && isWhitespace(s[i]) {
				i++
			}
		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
		}
		tokens = append(tokens, s[start:i])
	}
	return tokens
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c >= utf8.RuneSelf
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// countWords counts a changed token unless it is pure whitespace.
func countWords(token string) bool { return strings.TrimSpace(token) != "" }

// countAll counts every changed token.
func countAll(string) bool { return true }

// tokenDiff computes an LCS over two token sequences and emits merged parts:
// removed runs, added runs, and equal runs in sequence order. The countable
// predicate decides which changed tokens contribute to the unit counts.
func tokenDiff(oldTokens, newTokens []string, countable func(string) bool) *planreview.DiffResult {
	result := &planreview.DiffResult{}

	matches := lcsMatches(oldTokens, newTokens)

	var parts []planreview.DiffPart
	var text strings.Builder
	kind := planreview.DiffEqual
	have := false

	flush := func() {
		if have {
			parts = append(parts, planreview.DiffPart{Kind: kind, Text: text.String()})
			text.Reset()
			have = false
		}
	}
	add := func(k planreview.DiffKind, token string) {
		if have && kind != k {
			flush()
		}
		text.WriteString(token)
		kind = k
		have = true
	}

	oldIdx, newIdx := 0, 0
	emitGap := func(oldEnd, newEnd int) {
		for oldIdx < oldEnd {
			add(planreview.DiffRemove, oldTokens[oldIdx])
			if countable(oldTokens[oldIdx]) {
				result.Deletions++
			}
			oldIdx++
		}
		for newIdx < newEnd {
			add(planreview.DiffAdd, newTokens[newIdx])
			if countable(newTokens[newIdx]) {
				result.Additions++
			}
			newIdx++
		}
	}

	for _, m := range matches {
		emitGap(m.oldIdx, m.newIdx)
		add(planreview.DiffEqual, oldTokens[m.oldIdx])
		oldIdx = m.oldIdx + 1
		newIdx = m.newIdx + 1
	}
	emitGap(len(oldTokens), len(newTokens))
	flush()

	result.Parts = parts
	return result
}

type match struct{ oldIdx, newIdx int }

// lcsMatches returns the matching token positions of the longest common
// subsequence, in order. O(n*m) dynamic programming over a flat table.
func lcsMatches(oldTokens, newTokens []string) []match {
	m, n := len(oldTokens), len(newTokens)
	if m == 0 || n == 0 {
		return nil
	}

	table := make([]int, (m+1)*(n+1))
	stride := n + 1
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldTokens[i-1] == newTokens[j-1] {
				table[i*stride+j] = table[(i-1)*stride+j-1] + 1
			} else if table[(i-1)*stride+j] > table[i*stride+j-1] {
				table[i*stride+j] = table[(i-1)*stride+j]
			} else {
				table[i*stride+j] = table[i*stride+j-1]
			}
		}
	}

	matches := make([]match, 0, table[m*stride+n])
	i, j := m, n
	for i > 0 && j > 0 {
		if oldTokens[i-1] == newTokens[j-1] {
			matches = append(matches, match{i - 1, j - 1})
			i--
			j--
		} else if table[(i-1)*stride+j] > table[i*stride+j-1] {
			i--
		} else {
			j--
		}
	}
	for left, right := 0, len(matches)-1; left < right; left, right = left+1, right-1 {
		matches[left], matches[right] = matches[right], matches[left]
	}
	return matches
}

// arrayDiff computes a key-based membership diff plus move detection. List
// fields are reordered as often as their membership changes, so a reorder
// must not be misreported as a replacement.
func (d *Differ) arrayDiff(current, proposed []string) *planreview.DiffResult {
	ad := &planreview.ArrayDiff{}

	// Positions of each key in the current list, matched to proposed
	// occurrences in order so duplicates pair up deterministically.
	positions := make(map[string][]int, len(current))
	for i, item := range current {
		k := d.keyFn(item)
		positions[k] = append(positions[k], i)
	}

	matched := make([]bool, len(current))
	kinds := make([]planreview.DiffKind, len(proposed))
	for j, item := range proposed {
		k := d.keyFn(item)
		if idxs := positions[k]; len(idxs) > 0 {
			i := idxs[0]
			positions[k] = idxs[1:]
			matched[i] = true
			ad.Unchanged = append(ad.Unchanged, item)
			if i != j {
				ad.Moved = append(ad.Moved, planreview.Move{Item: item, From: i, To: j})
			}
			kinds[j] = planreview.DiffEqual
		} else {
			ad.Added = append(ad.Added, item)
			kinds[j] = planreview.DiffAdd
		}
	}
	for i, item := range current {
		if !matched[i] {
			ad.Removed = append(ad.Removed, item)
		}
	}

	result := &planreview.DiffResult{
		Array:     ad,
		Additions: len(ad.Added),
		Deletions: len(ad.Removed),
	}

	// Parts follow the proposed order, with removals appended at the end.
	for j, item := range proposed {
		result.Parts = appendListPart(result.Parts, kinds[j], item, j > 0)
	}
	for i, item := range ad.Removed {
		result.Parts = appendListPart(result.Parts, planreview.DiffRemove, item, len(proposed) > 0 || i > 0)
	}
	return result
}

func appendListPart(parts []planreview.DiffPart, kind planreview.DiffKind, item string, sep bool) []planreview.DiffPart {
	text := item
	if sep {
		text = ", " + item
	}
	return append(parts, planreview.DiffPart{Kind: kind, Text: text})
}

// objectDiff computes a shallow key-wise diff. Additions count added and
// changed keys; deletions count removed and changed keys.
func objectDiff(current, proposed map[string]string) *planreview.DiffResult {
	od := &planreview.ObjectDiff{
		Added:     map[string]string{},
		Removed:   map[string]string{},
		Changed:   map[string]planreview.FieldChange{},
		Unchanged: map[string]string{},
	}
	for k, v := range current {
		if pv, ok := proposed[k]; !ok {
			od.Removed[k] = v
		} else if pv != v {
			od.Changed[k] = planreview.FieldChange{Old: v, New: pv}
		} else {
			od.Unchanged[k] = v
		}
	}
	for k, v := range proposed {
		if _, ok := current[k]; !ok {
			od.Added[k] = v
		}
	}

	result := &planreview.DiffResult{
		Object:    od,
		Additions: len(od.Added) + len(od.Changed),
		Deletions: len(od.Removed) + len(od.Changed),
	}

	for _, k := range sortedKeys(od.Unchanged) {
		result.Parts = append(result.Parts, planreview.DiffPart{Kind: planreview.DiffEqual, Text: k + ": " + od.Unchanged[k] + "\n"})
	}
	for _, k := range sortedChangedKeys(od.Changed) {
		fc := od.Changed[k]
		result.Parts = append(result.Parts,
			planreview.DiffPart{Kind: planreview.DiffRemove, Text: k + ": " + fc.Old + "\n"},
			planreview.DiffPart{Kind: planreview.DiffAdd, Text: k + ": " + fc.New + "\n"},
		)
	}
	for _, k := range sortedKeys(od.Removed) {
		result.Parts = append(result.Parts, planreview.DiffPart{Kind: planreview.DiffRemove, Text: k + ": " + od.Removed[k] + "\n"})
	}
	for _, k := range sortedKeys(od.Added) {
		result.Parts = append(result.Parts, planreview.DiffPart{Kind: planreview.DiffAdd, Text: k + ": " + od.Added[k] + "\n"})
	}
	return result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedChangedKeys(m map[string]planreview.FieldChange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Similarity scores how alike two strings are as a percentage at character
// granularity. It is a quick-glance score, not an input to triage decisions.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 100
	}
	common := runeLCSLength(ra, rb)
	changed := maxLen - common
	return int(math.Round(100 * (1 - float64(changed)/float64(maxLen))))
}

// runeLCSLength returns the length of the longest common subsequence of two
// rune slices using two rolling rows.
func runeLCSLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] > curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
