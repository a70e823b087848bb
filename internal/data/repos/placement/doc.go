// Package placement holds table-level repos for organizations, candidates,
// positions, allocations and dropout events. Repos never open their own
// transactions; invariant-critical writes go through the placement aggregate.
package placement
