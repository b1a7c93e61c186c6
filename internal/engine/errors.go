package engine

import (
	"fmt"
	"strings"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// InsufficientBatchesError means the batch directory holds fewer than the
// two filesets a merge needs.
type InsufficientBatchesError struct {
	Found int
}

func (e *InsufficientBatchesError) Error() string {
	return fmt.Sprintf("engine: need at least 2 batches to merge, found %d", e.Found)
}

// ExtractionError means subsetting one source batch failed. The run stops;
// outputs already written stay on disk for inspection.
type ExtractionError struct {
	BatchID  string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *ExtractionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("engine: extraction of batch %s timed out", e.BatchID)
	}
	return fmt.Sprintf("engine: extraction of batch %s failed (exit %d): %s",
		e.BatchID, e.ExitCode, trimOutput(e.Stderr))
}

// MergeToolError means the merge tool failed without producing a conflict
// report: a tooling problem, not a genotype data problem.
type MergeToolError struct {
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *MergeToolError) Error() string {
	if e.TimedOut {
		return "engine: merge tool timed out"
	}
	return fmt.Sprintf("engine: merge tool failed (exit %d): %s", e.ExitCode, trimOutput(e.Stderr))
}

// UnresolvedConflictError means variant conflicts survived the correction
// round. The source data disagrees about these variants; excluding the
// first round's conflicts was not enough.
type UnresolvedConflictError struct {
	Remaining model.ConflictSet
}

func (e *UnresolvedConflictError) Error() string {
	return fmt.Sprintf("engine: %d variant conflicts remain after correction", e.Remaining.Len())
}

// ConversionError means VCF conversion failed or produced an artifact that
// does not verify.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string {
	return "engine: vcf conversion failed: " + e.Reason
}

// trimOutput reduces captured tool output to something that fits in an
// error message: the last non-blank line, which is where the tool states
// its reason.
func trimOutput(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "(no output)"
}
