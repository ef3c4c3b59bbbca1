// Package tracker turns a live audio stream into a timing-exact stream of
// pitch observations.
//
// Each tick of a Session snapshots the conditioned audio window, estimates
// its fundamental frequency, optionally gates and stabilizes the result, and
// hands exactly one PitchPoint to the consumer. Points carry session time
// even when no pitch was found so a silent singer never shifts the timeline.
package tracker
