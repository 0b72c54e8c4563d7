package depgraph

import "errors"

// Error kinds from spec §7 that this package can surface. They are plain
// sentinel values so callers compare with errors.Is; BuildResult collects
// every non-fatal one encountered during a build instead of aborting it,
// matching "fail closed on MissingDependency, proceed with other checks".
// A self-referential `ineed: self` declaration is one concrete cause of
// ErrBrokenDependency, per §8's classification of that case.
var (
	ErrMissingDependency = errors.New("dependency target is not a known service")
	ErrBrokenDependency  = errors.New("service dependency graph is broken")
)
