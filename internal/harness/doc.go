// Package harness provides conformance testing for the qube kernel and the
// safety envelope.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed: G
//	steps:
//	  - execute:
//	      sequence_id: 1
//	      previous_hash: $anchor
//	      current_hash: A
//	      expect: accepted
//	  - dock:
//	      pattern_id: PATTERN_CLUST_SOAK_01
//	      data: [1, 2, 3]
//	  - synthesize:
//	      count: 2
//	  - shutdown:
//	      operations: 1
//	clips:
//	  - name: over_hard
//	    bounds: [[-10, 10, -5, 5]]
//	    action: [15]
//	    expect:
//	      clamped: [10]
//	      violations: [hard_limit]
//	      safe: true
//	assertions:
//	  - type: trace_count
//	    op: execute
//	    outcome: accepted
//	    count: 1
//
// The previous_hash value "$anchor" is replaced by the live anchor when the
// step runs, so chains can be written without precomputing hashes.
//
// # Assertion Types
//
//   - trace_count: Verifies an op (optionally with an outcome) appears exactly N times
//   - trace_order: Verifies ops appear in the specified order
//   - final_anchor: Verifies the kernel anchor after the last step
//   - audit_length: Verifies the number of audit entries
//   - deterministic: Runs the scenario again and requires an identical trace
//
// # Journal Replay
//
// Every kernel call is journaled into an in-memory SQLite store and, once
// the steps are done, replayed with driver.VerifySession. A replay mismatch
// fails the scenario.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/chain.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
