package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/statefuzz/internal/state"
)

// Search bounds used when no option overrides them.
const (
	DefaultMaxDepth    = 4
	DefaultMaxBranches = 6
	DefaultSeed        = uint64(1)
)

// pcgStream is the fixed second PCG word; only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// Progress is handed to the hook before every pop.
type Progress struct {
	Popped     int // frames popped so far
	Pending    int // frames still on the stack
	Explored   int // frames pushed so far
	Unique     int // distinct signatures seen so far
	Violations int
	Steps      int // steps charged against the budget, this one included
	Budget     int // step budget, 0 when unlimited
}

// Hook is an external check run between pops. A non-nil error stops the
// search; Explore returns it together with the partial result.
type Hook func(Progress) error

// Explorer runs a bounded depth-first search over a Model, checking
// invariants on every reached state.
//
// An Explorer owns its random generator, stack and coverage tracker. Each
// Explore call starts over from the configured seed, so repeated calls
// produce identical results. Explore must not be called concurrently on the
// same Explorer; concurrent searches need separate Explorers.
//
// INVARIANTS:
//   - A frame's state is never mutated after it is pushed; actions receive
//     a clone
//   - Actions are considered in declaration order before the shuffle, so
//     the seed alone decides expansion order
//   - Frames at maxDepth are checked, never expanded
type Explorer struct {
	model       *state.Model
	invariants  []state.Invariant
	maxDepth    int
	maxBranches int
	seed        uint64
	stepBudget  int
	hook        Hook
	prune       bool
	logger      *slog.Logger
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithMaxDepth bounds trace length. Negative values are treated as 0, which
// checks the initial state only.
func WithMaxDepth(depth int) Option {
	return func(e *Explorer) {
		e.maxDepth = max(depth, 0)
	}
}

// WithMaxBranches bounds how many applicable actions are expanded per state.
func WithMaxBranches(branches int) Option {
	return func(e *Explorer) {
		e.maxBranches = max(branches, 0)
	}
}

// WithSeed sets the seed for branch shuffling and parameter draws.
func WithSeed(seed uint64) Option {
	return func(e *Explorer) {
		e.seed = seed
	}
}

// WithStepBudget limits the number of popped frames. Zero means unlimited.
// Running out returns a *StepsExceededError with the partial result.
func WithStepBudget(steps int) Option {
	return func(e *Explorer) {
		e.stepBudget = max(steps, 0)
	}
}

// WithHook installs a check run before every pop, e.g. a wall-clock
// deadline or an iteration cap.
func WithHook(h Hook) Option {
	return func(e *Explorer) {
		e.hook = h
	}
}

// WithPruneRevisited skips states whose signature was already popped.
//
// Off by default: a state reached again along a different trace is checked
// and expanded again. Turning it on trades completeness of traces for less
// redundant work; every distinct state is still checked once.
func WithPruneRevisited(prune bool) Option {
	return func(e *Explorer) {
		e.prune = prune
	}
}

// WithLogger sets the logger. Per-frame detail is logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Explorer) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Explorer for model and invariants.
//
// The invariants slice is copied; its order is the order in which
// invariants are checked.
func New(model *state.Model, invariants []state.Invariant, opts ...Option) *Explorer {
	e := &Explorer{
		model:       model,
		invariants:  append([]state.Invariant(nil), invariants...),
		maxDepth:    DefaultMaxDepth,
		maxBranches: DefaultMaxBranches,
		seed:        DefaultSeed,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchResult is the outcome of one exploration.
type SearchResult struct {
	Violations  []state.Violation `json:"violations"`
	Explored    int               `json:"explored_traces"`
	Coverage    []string          `json:"coverage"`
	Popped      int               `json:"popped"`
	Seed        uint64            `json:"seed"`
	MaxDepth    int               `json:"max_depth"`
	MaxBranches int               `json:"max_branches"`
}

// UniqueStates is the number of distinct signatures reached.
func (r *SearchResult) UniqueStates() int {
	return len(r.Coverage)
}

type frame struct {
	depth int
	state state.State
	trace []state.ActionResult
}

// Explore runs the search to completion.
//
// On cancellation, hook failure or budget exhaustion the partial result is
// returned together with the error. Expression and action failures are
// returned as *RuntimeError and end the search.
func (e *Explorer) Explore(ctx context.Context) (*SearchResult, error) {
	rng := rand.New(rand.NewPCG(e.seed, pcgStream))
	quota := NewQuotaEnforcer(e.stepBudget)
	coverage := NewCoverageTracker()

	result := &SearchResult{
		Seed:        e.seed,
		MaxDepth:    e.maxDepth,
		MaxBranches: e.maxBranches,
	}
	finish := func(err error) (*SearchResult, error) {
		result.Coverage = coverage.Signatures()
		return result, err
	}

	e.logger.Info("exploration starting",
		"seed", e.seed,
		"max_depth", e.maxDepth,
		"max_branches", e.maxBranches,
		"actions", len(e.model.Actions),
		"invariants", len(e.invariants))

	stack := []frame{{depth: 0, state: e.model.Initial.Clone()}}

	for len(stack) > 0 {
		if err := e.checkpoint(ctx, quota, Progress{
			Popped:     result.Popped,
			Pending:    len(stack),
			Explored:   result.Explored,
			Unique:     coverage.Len(),
			Violations: len(result.Violations),
		}); err != nil {
			e.logger.Warn("exploration stopped early",
				"popped", result.Popped,
				"pending", len(stack),
				"error", err)
			return finish(err)
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result.Popped++

		sig, err := f.state.Signature()
		if err != nil {
			return finish(&RuntimeError{
				Code:    ErrCodeSignatureFailed,
				Message: "cannot hash state",
				Depth:   f.depth,
				Err:     err,
			})
		}
		first := coverage.Record(sig)
		e.logger.Debug("frame popped", "depth", f.depth, "signature", sig[:12], "first", first)
		if !first && e.prune {
			continue
		}

		violation, err := e.check(f)
		if err != nil {
			return finish(err)
		}
		if violation != nil {
			e.logger.Info("invariant violated",
				"invariant", violation.Invariant,
				"depth", violation.Depth(),
				"trace", violation.ActionNames())
			result.Violations = append(result.Violations, *violation)
			continue
		}

		if f.depth >= e.maxDepth {
			continue
		}

		children, err := e.expand(f, rng)
		if err != nil {
			return finish(err)
		}
		stack = append(stack, children...)
		result.Explored += len(children)
	}

	e.logger.Info("exploration finished",
		"explored", result.Explored,
		"popped", result.Popped,
		"unique_states", coverage.Len(),
		"violations", len(result.Violations))

	return finish(nil)
}

func (e *Explorer) checkpoint(ctx context.Context, quota *QuotaEnforcer, p Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := quota.Check(); err != nil {
		return err
	}
	if e.hook != nil {
		p.Steps, p.Budget = quota.Current(), quota.Limit()
		return e.hook(p)
	}
	return nil
}

// check returns a Violation for the first invariant, in declaration order,
// that does not hold.
func (e *Explorer) check(f frame) (*state.Violation, error) {
	for _, inv := range e.invariants {
		ok, err := inv.Holds(f.state)
		if err != nil {
			return nil, newRuntimeError(ErrCodeInvariantFailed, "", inv.Name(), f.depth, err)
		}
		if ok {
			continue
		}
		return &state.Violation{
			Invariant:   inv.Name(),
			Description: inv.Description(),
			Severity:    inv.Severity(),
			Trace:       f.trace,
			Snapshot:    f.state.Clone(),
		}, nil
	}
	return nil, nil
}

// expand applies a seeded selection of applicable actions to clones of the
// frame's state. Children are returned in push order.
func (e *Explorer) expand(f frame, rng *rand.Rand) ([]frame, error) {
	var applicable []state.Action
	for _, a := range e.model.Actions {
		ok, err := a.Applicable(f.state)
		if err != nil {
			return nil, newRuntimeError(ErrCodeActionFailed, a.Name(), "", f.depth, err)
		}
		if ok {
			applicable = append(applicable, a)
		}
	}

	rng.Shuffle(len(applicable), func(i, j int) {
		applicable[i], applicable[j] = applicable[j], applicable[i]
	})
	if len(applicable) > e.maxBranches {
		applicable = applicable[:e.maxBranches]
	}

	children := make([]frame, 0, len(applicable))
	for _, a := range applicable {
		params, err := a.GenerateParameters(f.state, rng)
		if err != nil {
			return nil, newRuntimeError(ErrCodeActionFailed, a.Name(), "", f.depth, err)
		}

		next, note, err := a.Apply(f.state.Clone(), params)
		if errors.Is(err, state.ErrDeclined) {
			e.logger.Debug("action declined", "action", a.Name(), "depth", f.depth)
			continue
		}
		if err != nil {
			return nil, newRuntimeError(ErrCodeActionFailed, a.Name(), "", f.depth, err)
		}

		trace := make([]state.ActionResult, len(f.trace), len(f.trace)+1)
		copy(trace, f.trace)
		trace = append(trace, state.ActionResult{
			Action:     a.Name(),
			Parameters: params,
			State:      next,
			Note:       note,
		})
		children = append(children, frame{depth: f.depth + 1, state: next, trace: trace})
	}
	return children, nil
}
