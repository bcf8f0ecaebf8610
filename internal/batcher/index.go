// Package batcher coalesces node lookups into as few backend round-trips as
// possible.
//
// Lookups that miss the node store are collected per grouping key (the
// identifier namespace) for a fixed window. When the window closes the
// bucket is swapped for a fresh one and its requests go out as a single
// fetch with duplicates merged. Every caller is then answered, in the order
// it asked, with either the fetched value or its own default:
//
//	IDLE -> ACCUMULATING (timer armed) -> FLUSHING (fetch in flight) -> IDLE
//
// A lookup arriving while a bucket is flushing starts a new window right
// away; it never waits for the fetch in flight.
package batcher
