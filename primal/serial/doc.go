// Package serial provides the reference serial primal module SPEC_FULL.md
// §4.6a calls for: a concrete primal.Engine that drives a dualinterface.Interface
// and dualmodule.Backend pair to completion by interpreting each conflict
// popped off the backend's GroupMaxUpdateLength into a blossom-algorithm
// primal step (direct match, tree absorption, augmenting-path match, blossom
// creation, or blossom expansion).
//
// spec.md §1 explicitly scopes the serial primal module's matching
// bookkeeping internals as an external collaborator with only a contract
// (§4.6); this package is the buildable instance the rest of the module
// exercises and tests against, grounded in the classic alternating-tree
// formulation of Edmonds' blossom algorithm rather than any one reference
// decoder's internal layout.
package serial
