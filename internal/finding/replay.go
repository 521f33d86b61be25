package finding

import (
	"fmt"

	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ir"
)

// ReplaySteps recovers the recorded actions and parameters from the raw
// trace, ready for engine.Replay.
func (f Finding) ReplaySteps() ([]engine.ReplayStep, error) {
	trace, ok := f.Raw["trace"].(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("finding %q has no recorded trace", f.Title)
	}

	steps := make([]engine.ReplayStep, len(trace))
	for i, v := range trace {
		step, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("trace[%d]: expected object, got %s", i, ir.TypeName(v))
		}
		action, ok := step["action"].(ir.IRString)
		if !ok {
			return nil, fmt.Errorf("trace[%d]: missing action name", i)
		}
		params, _ := step["parameters"].(ir.IRObject)
		if params == nil {
			params = ir.IRObject{}
		}
		steps[i] = engine.ReplayStep{Action: string(action), Parameters: params.Clone()}
	}
	return steps, nil
}

// Snapshot returns the storage recorded for the violating state.
func (f Finding) Snapshot() ir.IRObject {
	snap, _ := f.Raw["snapshot"].(ir.IRObject)
	return snap
}
