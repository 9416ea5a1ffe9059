// Package registry holds the telco registry state and its state transitions.
//
// A Registry owns the admin identity and the directory of telco records. Every
// operation is evaluated against the current state under a single lock:
// mutating calls hold the write lock across their checks, the commit hook and
// the in-memory update, so a precondition that held at check time still holds
// when the effect lands. Reads share the read lock and never observe a
// partially applied mutation.
//
// Rejections are *models.Error values carrying the contract's numeric code.
// Checks always precede mutation, so a rejected call has no effect.
package registry

import (
	"context"
	"errors"
	"sync"

	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
	"telcoreg/pkg/platform/sentinel"
	"telcoreg/pkg/requestcontext"
)

// GenesisAdmin is the admin a fresh registry starts with unless configured otherwise.
const GenesisAdmin models.Address = "ST000000000000000000002AMW42H"

// Committer durably records a mutation before the registry applies it.
// A *models.Error returned by Commit is passed through to the caller as the
// operation's outcome. sentinel.ErrConflict (the state moved past the
// mutation's version) and sentinel.ErrUnavailable are reported as conflict and
// unavailable failures; any other error is an internal failure.
// Implementations must not call back into the registry.
type Committer interface {
	Commit(ctx context.Context, m models.Mutation) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, m models.Mutation) error

func (f CommitterFunc) Commit(ctx context.Context, m models.Mutation) error {
	return f(ctx, m)
}

// Registry is the admin authority plus the telco directory.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	admin     models.Address
	telcos    map[models.Address]*models.Telco
	version   uint64
	committer Committer
}

type Option func(*Registry)

// WithCommitter installs a hook that must accept every mutation before it is
// applied in memory.
func WithCommitter(c Committer) Option {
	return func(r *Registry) {
		r.committer = c
	}
}

// New creates a registry with an empty directory owned by admin.
func New(admin models.Address, opts ...Option) *Registry {
	return Restore(models.NewState(admin), opts...)
}

// Restore rebuilds a registry from a persisted state. The state is copied.
func Restore(state *models.State, opts ...Option) *Registry {
	s := state.Clone()
	r := &Registry{admin: s.Admin, telcos: s.Telcos, version: s.Version}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterTelco creates an unverified record for caller.
// Rejects with ErrAlreadyRegistered if caller already has one.
func (r *Registry) RegisterTelco(ctx context.Context, caller models.Address, meta models.Metadata, publicKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.telcos[caller]; exists {
		return false, models.ErrAlreadyRegistered
	}

	t := models.NewTelco(meta, publicKey, requestcontext.Now(ctx))
	if err := r.commit(ctx, models.CreateTelco(caller, t)); err != nil {
		return false, err
	}
	r.telcos[caller] = t
	return true, nil
}

// VerifyTelco marks telco verified. Checks run in a fixed order: admin,
// existence, then state.
func (r *Registry) VerifyTelco(ctx context.Context, caller, telco models.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAdmin(caller) {
		return false, models.ErrNotAdmin
	}
	current, ok := r.telcos[telco]
	if !ok {
		return false, models.ErrNotFound
	}
	if err := current.CanVerify(); err != nil {
		return false, err
	}

	next := current.Clone()
	next.ApplyVerification(requestcontext.Now(ctx))
	if err := r.commit(ctx, models.PutTelco(telco, next)); err != nil {
		return false, err
	}
	r.telcos[telco] = next
	return true, nil
}

// UpdateTelco replaces the caller's own metadata. There is no admin check and
// no way to update another address's record.
func (r *Registry) UpdateTelco(ctx context.Context, caller models.Address, meta models.Metadata) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.telcos[caller]
	if !ok {
		return false, models.ErrNotFound
	}

	next := current.Clone()
	next.ApplyMetadata(meta, requestcontext.Now(ctx))
	if err := r.commit(ctx, models.PutTelco(caller, next)); err != nil {
		return false, err
	}
	r.telcos[caller] = next
	return true, nil
}

// RemoveTelco deletes telco's record. Admin only.
func (r *Registry) RemoveTelco(ctx context.Context, caller, telco models.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAdmin(caller) {
		return false, models.ErrNotAdmin
	}
	if _, ok := r.telcos[telco]; !ok {
		return false, models.ErrNotFound
	}

	if err := r.commit(ctx, models.DeleteTelco(telco)); err != nil {
		return false, err
	}
	delete(r.telcos, telco)
	return true, nil
}

// GetTelco returns a copy of telco's record. Anyone may read.
func (r *Registry) GetTelco(_ context.Context, telco models.Address) (*models.Telco, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.telcos[telco]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t.Clone(), nil
}

// TransferAdmin hands the admin authority to newAdmin. Transferring to the
// current admin is allowed and succeeds.
func (r *Registry) TransferAdmin(ctx context.Context, caller, newAdmin models.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAdmin(caller) {
		return false, models.ErrNotAdmin
	}

	if err := r.commit(ctx, models.SetAdmin(newAdmin)); err != nil {
		return false, err
	}
	r.admin = newAdmin
	return true, nil
}

// Admin returns the current admin.
func (r *Registry) Admin() models.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.admin
}

// IsAdmin reports whether addr is the current admin.
func (r *Registry) IsAdmin(addr models.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isAdmin(addr)
}

// Snapshot returns a deep copy of the current state.
func (r *Registry) Snapshot() *models.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &models.State{Admin: r.admin, Telcos: r.telcos, Version: r.version}
	return s.Clone()
}

// Reset replaces the registry's state with a copy of state. Stores shared
// between processes move ahead of a registry; Reset brings it back in line.
// A state older than the registry's own is ignored.
func (r *Registry) Reset(state *models.State) {
	s := state.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Version < r.version {
		return
	}
	r.admin, r.telcos, r.version = s.Admin, s.Telcos, s.Version
}

// Version returns the number of mutations applied since genesis.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Counts returns the number of unverified and verified records.
func (r *Registry) Counts() (unverified, verified int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.telcos {
		if t.Verified {
			verified++
		} else {
			unverified++
		}
	}
	return unverified, verified
}

func (r *Registry) isAdmin(caller models.Address) bool {
	return caller == r.admin
}

// commit stamps m with the current version and hands it to the committer.
// The version advances only once the committer accepts.
func (r *Registry) commit(ctx context.Context, m models.Mutation) error {
	m.Version = r.version
	if r.committer != nil {
		if err := r.committer.Commit(ctx, m); err != nil {
			return commitError(err, m.Kind)
		}
	}
	r.version++
	return nil
}

func commitError(err error, kind models.MutationKind) error {
	if _, ok := models.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "registry state changed before "+string(kind)+" was committed")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "state store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit "+string(kind))
	}
}
