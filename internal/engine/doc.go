// Package engine implements the bounded depth-first explorer.
//
// ARCHITECTURE:
//
// Explicit Stack:
// The search keeps its frames (depth, state, trace) on an explicit LIFO
// stack rather than recursing. Memory use is proportional to the number of
// pending frames and the depth bound is visible in one place.
//
// Frame Processing:
// 1. Run the checkpoint: context, step budget, optional hook
// 2. Pop a frame and record its state signature for coverage
// 3. Check invariants in declaration order; the first failure is a
// Violation and the frame is not expanded
// 4. Below the depth bound: shuffle the applicable actions, keep at most
// maxBranches, apply each to a clone and push the children
//
// The search is single-threaded and does no I/O. Everything it needs is in
// memory before Explore starts.
//
// CRITICAL PATTERNS:
//
// Seeded Randomness:
// Every Explorer owns a math/rand/v2 PCG generator seeded from WithSeed.
// Branch shuffles and parameter draws both come from it, so the same seed,
// model and bounds produce identical traces, findings and coverage.
//
// Explicit Deep Copy:
// Actions receive state.State.Clone() of the frame they expand. A pushed
// state is never mutated, so sibling branches and recorded traces share
// nothing mutable.
//
// Replay:
// Replay re-applies a recorded trace with its recorded parameters and no
// randomness, which makes every reported violation checkable.
package engine
