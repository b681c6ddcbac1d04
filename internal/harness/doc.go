// Package harness executes conformance scenarios against a live application
// through a driver.Driver.
//
// A scenario is one YAML file naming a contract route, the values to type
// into its fields and what should happen. The runner follows one fixed
// algorithm:
//
//  1. run setup steps (e.g. log in)
//  2. clear the route's error surfaces and apply geolocation, if any
//  3. navigate to the route
//  4. fill the scenario's inputs in the order the contract declares the
//     fields, then click the submit control (action "submit" only)
//  5. poll the page until the outcome classifier resolves or the bounded
//     timeout expires, which yields Timeout
//  6. run teardown steps (e.g. log out)
//
// The expected outcome comes from the scenario's expect block, or is derived
// from the contract when the block is omitted.
//
// # Faults
//
// A failure of the driver itself (an element that never existed, a failed
// navigation) is returned as a *driver.Fault error. It is never turned into
// Timeout: a missing field means the page does not have the shape the
// contract assumes, which is a different defect from a slow page.
//
// # Retries
//
// The runner never retries. A scenario marked with repeat: N is executed N
// times in a row on the same session and all outcomes must be identical;
// this checks that failed attempts leave no state behind.
//
// # Timing
//
// Scenarios with a timing block are run N times sequentially on one
// session. Wall-clock time is measured from navigation start to the
// terminal outcome; setup and teardown are not timed. The check passes when
// the arithmetic mean is below the ceiling and every run produced the
// expected outcome.
//
// Example scenario:
//
//	name: login_wrong_password
//	description: well-formed credentials that do not match an account
//	route: login
//	inputs:
//	  - field: email
//	    value: name@mail.com
//	  - field: password
//	    value: wrong
//	expect:
//	  outcome: validation_error
//	  message: Invalid email address or password.
package harness
