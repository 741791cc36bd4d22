// Package harness runs profile scenarios end to end.
//
// A scenario pairs a profile with the RowSpecs it must compile to, and
// optionally with assertions about the rows generated from it.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: country_currency
//	description: "US and GB rows carry their own currency"
//	profile:
//	  fields:
//	    - name: country
//	    - name: currency
//	  rules:
//	    - rule: "US currency"
//	      constraints:
//	        - if: {field: country, is: equalTo, value: US}
//	          then: {field: currency, is: equalTo, value: USD}
//	config:
//	  walker: cartesian
//	  max_string_length: 0
//	expect:
//	  contradiction: false
//	  row_specs:
//	    - "{country=notNull in[US], currency=notNull in[USD]}"
//	    - "{country=notIn[US], currency=any}"
//	assertions:
//	  - type: rows_satisfy_profile
//	    rows: 50
//
// The profile may instead live in its own file, named by profile_file
// relative to the scenario.
//
// # Assertion Types
//
//   - row_spec_count: exactly count RowSpecs are produced
//   - row_spec_contains: the listing contains row_spec
//   - rows_satisfy_profile: every generated row satisfies every rule
//   - field_values: every generated value of field is one of values
//
// # Deterministic Testing
//
// Every scenario runs with a fixed seed, run ID and clock, and persists its
// run to an in-memory store so row assertions read what was stored. The
// RowSpec listing is sorted, so golden files do not depend on walk order.
package harness
