// Package engine turns a profile into rows.
//
// A run has three stages:
//
//  1. Compile: the profile's rules become a decision tree, every string field
//     is capped at the maximum string length, the tree is simplified and,
//     unless disabled, split into partitions of fields that share no rule.
//  2. Walk: each partition is walked into RowSpecs. The cartesian walker
//     enumerates every consistent choice of options; the reductive walker
//     fixes one field value at a time and prunes the tree after each.
//     Partitions are walked concurrently and joined back in schema order.
//  3. Generate: each RowSpec is turned into rows by drawing values per
//     field and combining them (exhaustive, pinning or minimal). In random
//     mode RowSpecs take turns.
//
// Rows are numbered from a logical Clock, never from wall time. With a fixed
// seed a run is reproducible: every goroutine draws from its own PCG stream
// derived from the seed.
//
// Violation mode generates rows for each rule in turn from a profile in
// which that rule is negated. Rules whose negation contradicts the rest of
// the profile are skipped.
package engine
