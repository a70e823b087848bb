// Package aggregates defines the placement write boundary.
//
// Contracts here carry no persistence or transport details. Each write method is
// one atomic unit in which the capacity and single-active-allocation invariants
// hold before and after.
package aggregates
