// Package scan is the entry point other tooling calls: it loads or accepts
// a model, runs one exploration and reports a ToolResult plus normalized
// findings.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/statefuzz/internal/compiler"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/finding"
	"github.com/roach88/statefuzz/internal/state"
)

const instrumentationName = "github.com/roach88/statefuzz/internal/scan"

// Options configures a run. Zero values select the engine defaults.
type Options struct {
	// Model and Invariants, when both set, are explored directly and the
	// target is only a label. Otherwise the model is loaded from the target
	// path.
	Model      *state.Model
	Invariants []state.Invariant

	MaxDepth    int
	MaxBranches int
	Seed        uint64 // 0 selects engine.DefaultSeed
	StepBudget  int    // 0 is unlimited

	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Summary is the machine-readable outcome of a successful run.
type Summary struct {
	ExploredTraces int      `json:"explored_traces"`
	UniqueStates   int      `json:"unique_states"`
	Coverage       []string `json:"coverage"`
	Findings       int      `json:"findings"`
}

// ToolResult mirrors what external analysis tools report, so orchestration
// can schedule this engine like any other tool.
type ToolResult struct {
	Success         bool     `json:"success"`
	Output          string   `json:"output"`
	Error           string   `json:"error,omitempty"`
	Attempts        int      `json:"attempts"`
	DurationSeconds float64  `json:"duration_seconds"`
	RunID           string   `json:"run_id"`
	Summary         *Summary `json:"summary,omitempty"`

	// ModelHash is set when the model was loaded from the target.
	ModelHash string `json:"model_hash,omitempty"`

	// Search is the raw engine result, kept for persistence and replay.
	Search *engine.SearchResult `json:"-"`
}

// Run explores the model and translates violations into findings.
//
// A missing or invalid model source is an unsuccessful ToolResult with no
// findings and a nil error. Running out of step budget is also reported
// in the ToolResult, with the partial summary and findings. Expressions
// the engine cannot evaluate, failing actions and context cancellation are
// returned as errors.
func Run(ctx context.Context, target string, opts Options) (ToolResult, []finding.Finding, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "scan.Run",
		trace.WithAttributes(attribute.String("statefuzz.target", target)))
	defer span.End()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := opts.RunIDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	start := time.Now()
	result := ToolResult{RunID: ids.Generate(), Attempts: 1}
	span.SetAttributes(attribute.String("statefuzz.run_id", result.RunID))

	finish := func() {
		result.DurationSeconds = time.Since(start).Seconds()
	}

	model, invariants := opts.Model, opts.Invariants
	if model == nil || invariants == nil {
		compiled, err := compiler.LoadAndCompile(target)
		if err != nil {
			finish()
			if expr.IsUnsupportedExpression(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "unsupported expression")
				return result, nil, fmt.Errorf("load model %s: %w", target, err)
			}
			result.Error = loadFailure(target, err)
			logger.Warn("model unavailable", "target", target, "error", err)
			span.SetStatus(codes.Error, result.Error)
			return result, nil, nil
		}
		model, invariants = compiled.Model, compiled.Invariants
		result.ModelHash = compiled.Hash
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithStepBudget(opts.StepBudget),
	}
	if opts.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(opts.MaxDepth))
	}
	if opts.MaxBranches > 0 {
		engineOpts = append(engineOpts, engine.WithMaxBranches(opts.MaxBranches))
	}
	if opts.Seed != 0 {
		engineOpts = append(engineOpts, engine.WithSeed(opts.Seed))
	}

	search, err := engine.New(model, invariants, engineOpts...).Explore(ctx)
	result.Search = search
	if err != nil && !engine.IsQuotaError(err) {
		finish()
		span.RecordError(err)
		span.SetStatus(codes.Error, "exploration failed")
		return result, nil, fmt.Errorf("explore %s: %w", target, err)
	}

	findings := finding.FromViolations(search.Violations,
		finding.WithSeed(search.Seed),
		finding.WithCoverage(search.UniqueStates(), search.Explored))

	summary := &Summary{
		ExploredTraces: search.Explored,
		UniqueStates:   search.UniqueStates(),
		Coverage:       search.Coverage,
		Findings:       len(findings),
	}
	output, merr := json.Marshal(summary)
	if merr != nil {
		finish()
		return result, nil, fmt.Errorf("encode summary: %w", merr)
	}
	result.Summary = summary
	result.Output = string(output)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		span.SetStatus(codes.Error, "step budget exhausted")
	}
	finish()

	span.SetAttributes(
		attribute.Int("statefuzz.explored_traces", summary.ExploredTraces),
		attribute.Int("statefuzz.unique_states", summary.UniqueStates),
		attribute.Int("statefuzz.findings", summary.Findings),
	)
	logger.Info("scan finished",
		"target", target,
		"run_id", result.RunID,
		"success", result.Success,
		"findings", len(findings),
		"duration_seconds", result.DurationSeconds)

	return result, findings, nil
}

func loadFailure(target string, err error) string {
	if errors.Is(err, compiler.ErrModelNotFound) {
		return fmt.Sprintf("state model not found at %s", target)
	}
	return fmt.Sprintf("state model at %s is invalid: %v", target, err)
}
