// Package plink adapts the external PLINK genotype tool: building argument
// lists, executing the binary, and reading the file formats it defines
// (merge lists, conflict reports, .bim/.fam indexes).
package plink

import "context"

// Result captures one finished tool invocation. A non-zero exit code is an
// outcome to classify, not an execution failure: merges signal genotype
// conflicts through it.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Ok reports whether the tool exited zero.
func (r Result) Ok() bool { return r.ExitCode == 0 }

// Runner executes the genotype tool. The error return is reserved for
// failing to obtain a verdict at all: the binary could not be launched, or
// the surrounding run was cancelled. Everything the tool itself decides,
// including timeouts enforced on it, arrives in the Result.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}
