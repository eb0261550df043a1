package retention

import "errors"

// Run-fatal errors. Category-scoped failures never surface as errors from
// the pipeline; they are contained in that category's outcome record. The
// two conditions below abort the whole cycle before any deletion, because
// without hold data the safety invariant cannot be guaranteed and without
// a persisted manifest there is no audit trail.
var (
	// ErrHoldLookup indicates the active legal holds could not be fetched.
	ErrHoldLookup = errors.New("legal hold lookup failed")

	// ErrManifestPersist indicates the deletion manifest could not be
	// durably recorded before execution.
	ErrManifestPersist = errors.New("deletion manifest could not be persisted")
)
