package model

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ConflictSet is a deduplicated, sorted set of variant identifiers that
// failed to merge. Empty is valid and means no conflicts.
type ConflictSet struct {
	ids []string
}

// NewConflictSet builds a set from raw variant IDs, dropping blanks and
// duplicates and sorting the rest so every downstream rendering is stable.
func NewConflictSet(ids []string) ConflictSet {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return ConflictSet{ids: out}
}

// Len returns the number of conflicting variants.
func (c ConflictSet) Len() int { return len(c.ids) }

// Empty reports whether the set holds no variants.
func (c ConflictSet) Empty() bool { return len(c.ids) == 0 }

// IDs returns a copy of the sorted variant identifiers.
func (c ConflictSet) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Contains reports whether the given variant is in the set.
func (c ConflictSet) Contains(id string) bool {
	i := sort.SearchStrings(c.ids, id)
	return i < len(c.ids) && c.ids[i] == id
}

// Render returns the on-disk form of the set: one variant per line, sorted,
// with a trailing newline. The same set always renders byte-identical.
func (c ConflictSet) Render() string {
	if len(c.ids) == 0 {
		return ""
	}
	return strings.Join(c.ids, "\n") + "\n"
}

// MergeOutcome classifies a merge attempt.
type MergeOutcome string

const (
	MergeClean       MergeOutcome = "clean"
	MergeConflicting MergeOutcome = "conflicting"
)

// MergeResult is the classified outcome of one merge attempt. A conflicting
// result always names at least one variant.
type MergeResult struct {
	Outcome   MergeOutcome `json:"outcome"`
	Conflicts ConflictSet  `json:"-"`
}

// CleanMerge returns the result for a merge that exited successfully.
func CleanMerge() MergeResult {
	return MergeResult{Outcome: MergeClean}
}

// ConflictingMerge returns the result for a merge rejected over the given
// variants. An empty set is refused: the tool reported conflicts without
// naming any, which callers must treat as an internal inconsistency.
func ConflictingMerge(set ConflictSet) (MergeResult, error) {
	if set.Empty() {
		return MergeResult{}, eris.New("model: conflicting merge result with empty conflict set")
	}
	return MergeResult{Outcome: MergeConflicting, Conflicts: set}, nil
}

// Clean reports whether the attempt succeeded without conflicts.
func (r MergeResult) Clean() bool { return r.Outcome == MergeClean }

// FinalCohort describes the merged dataset. It is created once, after a
// clean merge, and never modified afterwards.
type FinalCohort struct {
	Prefix       string `json:"prefix"`
	SampleCount  int    `json:"sample_count"`
	VariantCount int    `json:"variant_count"`
	VCFPath      string `json:"vcf_path,omitempty"`
}
