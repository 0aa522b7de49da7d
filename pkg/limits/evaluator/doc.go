// Package evaluator implements the atomic multi-limit check-and-increment:
// given an ordered EffectiveLimit list, it performs a single
// all-or-nothing round trip against the counter store.
package evaluator
