package dualinterface

import "errors"

// Sentinel errors for dualinterface. Only these variables are exposed;
// callers branch with errors.Is. Context is always added via
// fmt.Errorf("%w: ...") at the call site, never by wrapping the sentinel
// itself with a formatted string (mirrors builder/errors.go's policy).
var (
	// ErrNotTracked is returned when an operation names a NodeIndex the
	// interface does not currently track (out of range, or a vacated slot).
	ErrNotTracked = errors.New("dualinterface: node not tracked")

	// ErrDuplicateVertex is returned by create_syndrome_node when the
	// vertex already has a tracked syndrome node (§3 invariant 6).
	ErrDuplicateVertex = errors.New("dualinterface: vertex already tracked")

	// ErrHasParent is returned when create_blossom is asked to enclose a
	// node that already has a parent blossom.
	ErrHasParent = errors.New("dualinterface: node already has a parent blossom")

	// ErrBadCircleParity is returned when create_blossom is given an empty
	// or even-length circle.
	ErrBadCircleParity = errors.New("dualinterface: blossom circle must have odd, positive length")

	// ErrBadCircleAlternation is returned when create_blossom's circle does
	// not alternate Grow, Shrink, ..., Grow (even positions Grow, odd
	// positions Shrink) at creation time.
	ErrBadCircleAlternation = errors.New("dualinterface: blossom circle must alternate grow,shrink,...,grow")

	// ErrBadTouchingDefault is returned when create_blossom is given no
	// touching pairs but the circle contains a non-syndrome-vertex member.
	ErrBadTouchingDefault = errors.New("dualinterface: default touching requires an all-syndrome-vertex circle")

	// ErrTouchingLengthMismatch is returned when create_blossom's explicit
	// touching slice does not match the circle's length.
	ErrTouchingLengthMismatch = errors.New("dualinterface: touching length must match circle length")

	// ErrExpandPrecondition is returned when expand_blossom's target is not
	// a tracked blossom, or a member is not Stay with parent set to b.
	ErrExpandPrecondition = errors.New("dualinterface: expand_blossom precondition violated")

	// ErrNonPositiveGrowth is returned when grow is called with Δ ≤ 0.
	ErrNonPositiveGrowth = errors.New("dualinterface: grow requires a positive delta")

	// ErrUnexpectedConflict is returned by grow_iterative when the backend
	// reports conflicts instead of a common growth bound.
	ErrUnexpectedConflict = errors.New("dualinterface: grow_iterative encountered conflicts")

	// ErrSanityCheck is returned by SanityCheck when an invariant from §3
	// does not hold; the wrapping message names the offending indices.
	ErrSanityCheck = errors.New("dualinterface: sanity check failed")
)
