// Package runner executes yaml test cases against the instruction
// dispatcher: a fresh Context per case, setup, steps with inline
// assertions, final assertions and a teardown that always runs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/harness/check"
	"github.com/kasuganosora/battlerunner/harness/dispatch"
	"github.com/kasuganosora/battlerunner/harness/hook"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

// Recorder receives every finished test case. report.Service implements it.
type Recorder interface {
	Record(runID, suite string, r Result)
}

// Options configures a Runner.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	// Seed seeds the random source of each fresh Context.
	Seed     uint64
	Recorder Recorder
	// FailFast stops a suite after the first case that does not pass.
	FailFast bool
	// Hooks sees every instruction before it runs and every finished case.
	Hooks  *hook.Center
	Logger *zap.Logger
}

// Runner runs test cases one at a time.
type Runner struct {
	dispatcher *dispatch.Dispatcher
	seed       uint64
	recorder   Recorder
	failFast   bool
	hooks      *hook.Center
	logger     *zap.Logger
}

// New creates a Runner. A nil dispatcher gets a default one without a
// character repository.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = dispatch.New(dispatch.Options{Logger: opts.Logger})
	}
	return &Runner{
		dispatcher: opts.Dispatcher,
		seed:       opts.Seed,
		recorder:   opts.Recorder,
		failFast:   opts.FailFast,
		hooks:      opts.Hooks,
		logger:     opts.Logger,
	}
}

// phaseError tags an instruction failure with where it happened.
type phaseError struct {
	phase       string
	instruction string
	err         error
}

func (e *phaseError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.phase, e.instruction, e.err)
}

func (e *phaseError) Unwrap() error { return e.err }

// InstructionEvent is the hook.BeforeInstruction payload. Handlers may
// rewrite Instruction.
type InstructionEvent struct {
	Phase       string
	Instruction string
	Context     *testctx.Context
}

// exec passes in through the BeforeInstruction hooks and dispatches it. An
// instruction interrupted by a hook is skipped.
func (r *Runner) exec(ctx context.Context, sc *testctx.Context, phase, in string) error {
	if r.hooks.Has(hook.BeforeInstruction) {
		ev := &InstructionEvent{Phase: phase, Instruction: in, Context: sc}
		if _, err := r.hooks.Trigger(ctx, hook.BeforeInstruction, ev); err != nil {
			if errors.Is(err, hook.ErrInterrupt) {
				r.logger.Debug("instruction skipped by hook",
					zap.String("phase", phase),
					zap.String("instruction", in))
				return nil
			}
			return fmt.Errorf("hook: %w", err)
		}
		in = ev.Instruction
	}
	return r.dispatcher.Execute(ctx, sc, in)
}

// RunTestCase runs one case on a fresh Context.
func (r *Runner) RunTestCase(ctx context.Context, tc TestCase) (res Result) {
	start := time.Now()
	res = Result{Name: tc.Name, Category: tc.Category, Status: StatusPassed}
	sc := testctx.New(r.seed)
	log := r.logger.With(zap.String("case", tc.Name))

	defer func() {
		r.teardown(ctx, sc, tc.Teardown, log)
		res.Duration = time.Since(start)
		if _, err := r.hooks.Trigger(ctx, hook.AfterCase, &res); err != nil && !errors.Is(err, hook.ErrInterrupt) {
			log.Warn("after_case hook failed", zap.Error(err))
		}
	}()

	if tc.MaxRounds > 0 {
		sc.SetVariable("step_max_rounds", tc.MaxRounds)
	}
	for _, in := range tc.Setup {
		if err := r.exec(ctx, sc, "setup", in); err != nil {
			r.fail(&res, &phaseError{phase: "setup", instruction: in, err: err})
			return res
		}
	}
	sc.UpdateAssertionContext()

	for i, step := range tc.Steps {
		if err := r.step(ctx, sc, step, &res); err != nil {
			r.fail(&res, fmt.Errorf("step %d: %w", i+1, err))
			return res
		}
	}

	sc.UpdateAssertionContext()
	for _, a := range tc.Assertions {
		out, err := check.Evaluate(sc.Variables, a)
		res.Assertions = append(res.Assertions, out)
		if err != nil {
			r.fail(&res, err)
		}
	}
	log.Debug("test case finished",
		zap.String("status", res.Status),
		zap.Int("assertions", len(res.Assertions)))
	return res
}

// step executes one action, refreshes derived variables and evaluates the
// step's inline assertions. A step expected to fail passes only when the
// action returns an error.
func (r *Runner) step(ctx context.Context, sc *testctx.Context, step Step, res *Result) error {
	if step.MaxRounds > 0 {
		prev, had := sc.Variables["step_max_rounds"]
		sc.SetVariable("step_max_rounds", step.MaxRounds)
		defer func() {
			if had {
				sc.SetVariable("step_max_rounds", prev)
			} else {
				sc.DeleteVariable("step_max_rounds")
			}
		}()
	}

	err := r.exec(ctx, sc, "step", step.Action)
	switch {
	case step.expectsError() && err == nil:
		return &phaseError{phase: "step", instruction: step.Action, err: errors.New("expected an error")}
	case step.expectsError():
		sc.SetVariable("step_error", err.Error())
	case err != nil:
		return &phaseError{phase: "step", instruction: step.Action, err: err}
	}
	sc.UpdateAssertionContext()

	for _, expr := range step.Assertions {
		a, err := check.Parse(expr)
		if err != nil {
			return err
		}
		out, err := check.Evaluate(sc.Variables, a)
		res.Assertions = append(res.Assertions, out)
		if err != nil {
			return err
		}
	}
	return nil
}

// fail records err on res. Assertion mismatches and exhausted round limits
// fail the case; anything else is an error.
func (r *Runner) fail(res *Result, err error) {
	status := StatusError
	if errors.Is(err, errs.ErrAssertionMismatch) || errors.Is(err, errs.ErrRoundLimitExceeded) {
		status = StatusFailed
	}
	if res.Status != StatusError {
		res.Status = status
	}
	if res.Error == "" {
		res.Error = err.Error()
	}
}

func (r *Runner) teardown(ctx context.Context, sc *testctx.Context, instructions []string, log *zap.Logger) {
	for _, in := range instructions {
		if err := r.exec(ctx, sc, "teardown", in); err != nil {
			log.Warn("teardown instruction failed",
				zap.String("instruction", in),
				zap.Error(err))
		}
	}
	sc.Reset()
}

// RunSuite runs every case of suite in order under a new run id.
func (r *Runner) RunSuite(ctx context.Context, suite *TestSuite) *SuiteResult {
	return r.runSuite(ctx, uuid.New().String(), suite)
}

func (r *Runner) runSuite(ctx context.Context, runID string, suite *TestSuite) *SuiteResult {
	start := time.Now()
	out := &SuiteResult{RunID: runID, Suite: suite.Name}
	for _, tc := range suite.Tests {
		if ctx.Err() != nil {
			break
		}
		res := r.RunTestCase(ctx, tc)
		out.add(res)
		if r.recorder != nil {
			r.recorder.Record(runID, suite.Name, res)
		}
		r.logResult(suite.Name, res)
		if r.failFast && !res.Passed() {
			break
		}
	}
	out.Duration = time.Since(start)
	r.logger.Info("suite finished",
		zap.String("suite", suite.Name),
		zap.Int("total", out.Total),
		zap.Int("passed", out.Passed),
		zap.Int("failed", out.Failed),
		zap.Int("errored", out.Errored),
		zap.Duration("duration", out.Duration))
	return out
}

// RunSuites runs suites in order under one shared run id.
func (r *Runner) RunSuites(ctx context.Context, suites []*TestSuite) []*SuiteResult {
	runID := uuid.New().String()
	results := make([]*SuiteResult, 0, len(suites))
	for _, s := range suites {
		if ctx.Err() != nil {
			break
		}
		sr := r.runSuite(ctx, runID, s)
		results = append(results, sr)
		if r.failFast && !sr.OK() {
			break
		}
	}
	return results
}

func (r *Runner) logResult(suite string, res Result) {
	fields := []zap.Field{
		zap.String("suite", suite),
		zap.String("case", res.Name),
		zap.String("status", res.Status),
		zap.Duration("duration", res.Duration),
	}
	if res.Passed() {
		r.logger.Info("test case passed", fields...)
		return
	}
	r.logger.Warn("test case did not pass", append(fields, zap.String("error", res.Error))...)
}
