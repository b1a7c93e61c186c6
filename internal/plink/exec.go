package plink

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/resilience"
)

// ExecRunner runs the real binary. Each call gets its own timeout; a
// circuit breaker fails fast once the binary stops being launchable, so a
// fleet of parallel extractions does not pile retries onto a dead tool.
type ExecRunner struct {
	binPath string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

// NewExecRunner creates an ExecRunner. If binPath is empty, "plink" is
// used. A timeout of zero disables the per-call deadline.
func NewExecRunner(binPath string, timeout time.Duration) *ExecRunner {
	if binPath == "" {
		binPath = "plink"
	}
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.ShouldTrip = func(err error) bool {
		// Only launch failures count. Non-zero exits arrive as Results and
		// never reach the breaker; cancellation is the caller's doing.
		return err != nil && !errors.Is(err, context.Canceled)
	}
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("plink breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &ExecRunner{
		binPath: binPath,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

// Run executes the binary with the given arguments.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (Result, error) {
	return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (Result, error) {
		return r.run(ctx, args)
	})
}

func (r *ExecRunner) run(ctx context.Context, args []string) (Result, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(callCtx, r.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	zap.L().Debug("running plink", zap.Strings("args", args))

	err := cmd.Run()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		// The caller aborted the run: no verdict, propagate.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, eris.Wrapf(err, "plink: launch %s", r.binPath)
		}

		res.ExitCode = exitErr.ExitCode()
		res.TimedOut = callCtx.Err() == context.DeadlineExceeded
	}

	zap.L().Debug("plink finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
