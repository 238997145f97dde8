package serial

import "errors"

// ErrConvergenceLimit is returned by SolveStepCallback if it performs more
// resolution steps than maxIterations without reaching a stable state. This
// is a defensive backstop, not a spec-mandated error: a correct dual
// backend paired with a correct primal engine always converges, but a
// reference engine this simplified (§SPEC_FULL.md §4.6a) fails loudly
// instead of spinning forever when it cannot make progress.
var ErrConvergenceLimit = errors.New("primal/serial: exceeded convergence limit without stabilizing")
