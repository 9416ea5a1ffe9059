package sentinel

import "errors"

// Sentinel errors for infrastructure facts. State stores return these
// (optionally wrapped) so the service can translate them into coded errors.
//
//   - ErrNotFound: nothing has been persisted under the requested key
//   - ErrConflict: a write lost a race against another writer (stale version
//     or duplicate key)
//   - ErrUnavailable: the backing store cannot be reached
//
// Registry outcomes such as "record not found" are not infrastructure facts;
// they live in internal/telco/models.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
