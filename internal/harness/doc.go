// Package harness runs YAML scenarios against an EventStore.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	field: pipeline            # optional, default "pipeline"
//	initial: '{"status":"x"}'  # optional raw document already stored
//	bind_error: invalid_shape  # optional, Bind must fail this way
//	steps:
//	  - commit:
//	      event_id: e1
//	      success: true
//	      destination: active
//	      changes: { count: 1 }
//	  - fire:
//	      transition: Ship
//	      event_id: e2
//	      fail: Timeout
//	      message: upstream timed out
//	  - fail_saves: disk full
//	    expect_error: persist
//	  - reload: true
//	  - reset: true
//	assertions:
//	  - type: status
//	    value: active
//	  - type: state
//	    expect: { count: 1 }
//	  - type: events
//	    ids: [e1, e2]
//	  - type: error_kind
//	    event: e2
//	    kind: Timeout
//
// # Assertion Types
//
//   - status: the status equals value, or is null when value is omitted
//   - state: the state contains expect (subset match)
//   - events: the events log holds exactly ids, in order
//   - error_kind: the error record of event has the given kind ("" = clean)
//   - event_absent: event was never committed
//   - tainted: the store's tainted flag equals the tainted field
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory subject with a step clock
// starting at 2018-01-01T13:22:00Z, so the stored document is byte-for-byte
// reproducible and can be compared against a golden file.
package harness
