// Package harness runs store scenarios and snapshots their results.
//
// A scenario loads a CUE schema of stores, dispatches a sequence of actions
// through a dispatcher with a fixed identity, and checks the resolved views
// that the Orchestra produced.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schema/blog.cue
//	externals: [settings]
//	steps:
//	  - action: insert
//	    store: users
//	    entity: {id: u1, name: Ada}
//	  - action: insert_batch
//	    store: posts
//	    group: front
//	    entities:
//	      - {id: p1, userId: u1}
//	  - action: update
//	    store: posts
//	    where: entity.userId == "u1"
//	    set: {title: '"hello"'}
//	  - action: put
//	    store: settings
//	    entity: {id: theme, value: dark}
//	assertions:
//	  - type: view
//	    store: posts
//	    keys: [p1]
//	    entities:
//	      p1: {user: {id: u1, name: Ada}}
//	  - type: missing
//	    store: users
//	    ids: []
//	  - type: changed
//	    step: 0
//	    views: [users, posts]
//
// where and set hold expr-lang expressions with the entity bound to
// `entity`.
//
// # Assertion Types
//
//   - view: exact key order, count, entity field subsets and complete ids
//   - missing: the sorted ids reported missing to a store
//   - changed: the views that emitted for one step
//
// # Deterministic Testing
//
// Dispatcher sequence numbers start at 1 for every run and the dispatcher
// identity comes from dispatcher_id, so snapshots are byte-stable and can be
// compared against golden files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/blog.yaml")
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
