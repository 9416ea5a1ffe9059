package models

import "time"

// Telco is the record stored for one registered address.
//
// Invariants:
//   - Verified only moves false -> true, and only through ApplyVerification
//   - PublicKey is fixed at construction
//   - Name, Country and Website change only through ApplyMetadata
type Telco struct {
	Verified     bool       `json:"verified"`
	Name         string     `json:"name"`
	Country      string     `json:"country"`
	Website      string     `json:"website"`
	PublicKey    string     `json:"publicKey"`
	RegisteredAt time.Time  `json:"registeredAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`
}

// Metadata is the owner-editable part of a record.
type Metadata struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Website string `json:"website"`
}

// NewTelco builds an unverified record.
func NewTelco(meta Metadata, publicKey string, now time.Time) *Telco {
	return &Telco{
		Name:         meta.Name,
		Country:      meta.Country,
		Website:      meta.Website,
		PublicKey:    publicKey,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}

// Status reports the record's lifecycle state.
func (t *Telco) Status() TelcoStatus {
	if t.Verified {
		return TelcoStatusVerified
	}
	return TelcoStatusUnverified
}

// CanVerify returns ErrAlreadyVerified once the record has been verified.
func (t *Telco) CanVerify() error {
	if !t.Status().CanTransitionTo(TelcoStatusVerified) {
		return ErrAlreadyVerified
	}
	return nil
}

// ApplyVerification marks the record verified.
// Must only be called after CanVerify returns nil.
func (t *Telco) ApplyVerification(now time.Time) {
	t.Verified = true
	t.VerifiedAt = &now
	t.UpdatedAt = now
}

// ApplyMetadata replaces the owner-editable fields.
func (t *Telco) ApplyMetadata(meta Metadata, now time.Time) {
	t.Name = meta.Name
	t.Country = meta.Country
	t.Website = meta.Website
	t.UpdatedAt = now
}

// Metadata returns the owner-editable fields.
func (t *Telco) Metadata() Metadata {
	return Metadata{Name: t.Name, Country: t.Country, Website: t.Website}
}

// Clone returns a deep copy so callers never share registry memory.
func (t *Telco) Clone() *Telco {
	if t == nil {
		return nil
	}
	c := *t
	if t.VerifiedAt != nil {
		v := *t.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}

// TelcoStatus is the per-record lifecycle state of a registered address.
type TelcoStatus string

const (
	TelcoStatusUnverified TelcoStatus = "unverified"
	TelcoStatusVerified   TelcoStatus = "verified"
)

// CanTransitionTo encodes the one-way verification edge.
func (s TelcoStatus) CanTransitionTo(next TelcoStatus) bool {
	return s == TelcoStatusUnverified && next == TelcoStatusVerified
}

func (s TelcoStatus) String() string {
	return string(s)
}
