// Package pairing implements the exclusive association between a device
// and an assistido.
//
// The state machine is Unpaired -> Paired -> Unpaired. The Paired
// transition is a store-level compare-and-set: two concurrent callers on
// the same device yield exactly one winner, and the loser observes a
// conflict rather than silently overwriting.
package pairing
