// Package harness runs exploration scenarios as executable contract tests.
//
// A scenario names a model file, the search bounds and a list of
// assertions over the outcome. The harness explores the model through
// scan.Run with a fixed run ID and checks every assertion against the
// findings and the run summary.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../models/bank.json   # relative to the scenario file
//	seed: 1
//	max_depth: 3
//	max_branches: 3
//	assertions:
//	  - type: finding_count
//	    count: 1
//	  - type: trace_equals
//	    finding: 0
//	    actions: [deposit, withdraw]
//	  - type: final_storage
//	    finding: 0
//	    expect: { balance: -12 }
//	  - type: coverage_count
//	    count: 6
//	  - type: success
//	    success: true
//
// # Assertion Types
//
//   - finding_count: exact number of findings
//   - trace_equals: action names along a finding's trace
//   - final_storage: subset match on the storage of a finding's violating state
//   - coverage_count: exact number of distinct states reached
//   - success: whether the run completed without exhausting its budget
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the findings with
// testdata/golden/{name}.golden. Coverage signatures are left out of the
// snapshot; coverage_count asserts on their number instead.
package harness
