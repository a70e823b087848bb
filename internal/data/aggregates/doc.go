// Package aggregates implements the placement aggregate on top of the
// table repos in internal/data/repos/placement.
//
// Every write runs in one transaction owned by the aggregate. Positions are
// read FOR UPDATE and their version is bumped with a compare-and-set, so a
// concurrent writer either waits on the row lock or loses the CAS and gets
// CodeConflict.
package aggregates
