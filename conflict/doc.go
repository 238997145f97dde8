// Package conflict implements the conflict-reporting half of the dual
// module: see types.go for MaxUpdateLength and group.go for
// GroupMaxUpdateLength.
package conflict
