package models

// State is the unit persisted by stores and restored into a registry.
// Version counts the mutations applied since genesis.
type State struct {
	Admin   Address            `json:"admin"`
	Telcos  map[Address]*Telco `json:"telcos"`
	Version uint64             `json:"version"`
}

// NewState returns an empty directory owned by admin.
func NewState(admin Address) *State {
	return &State{Admin: admin, Telcos: make(map[Address]*Telco)}
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	c := &State{Admin: s.Admin, Telcos: make(map[Address]*Telco, len(s.Telcos)), Version: s.Version}
	for addr, t := range s.Telcos {
		c.Telcos[addr] = t.Clone()
	}
	return c
}

// MutationKind names the effect of one successful registry operation.
type MutationKind string

const (
	MutationCreateTelco MutationKind = "create_telco"
	MutationPutTelco    MutationKind = "put_telco"
	MutationDeleteTelco MutationKind = "delete_telco"
	MutationSetAdmin    MutationKind = "set_admin"
)

// Mutation is the persisted effect of a successful operation.
// Telco is set for MutationCreateTelco and MutationPutTelco.
//
// Version is the state version the mutation was computed against. Stores
// apply a mutation only while the stored version still equals it and return
// sentinel.ErrConflict otherwise, so a writer holding a stale copy of the
// state can never overwrite a newer one.
type Mutation struct {
	Kind    MutationKind `json:"kind"`
	Address Address      `json:"address"`
	Telco   *Telco       `json:"telco,omitempty"`
	Version uint64       `json:"version"`
}

func CreateTelco(addr Address, t *Telco) Mutation {
	return Mutation{Kind: MutationCreateTelco, Address: addr, Telco: t.Clone()}
}

func PutTelco(addr Address, t *Telco) Mutation {
	return Mutation{Kind: MutationPutTelco, Address: addr, Telco: t.Clone()}
}

func DeleteTelco(addr Address) Mutation {
	return Mutation{Kind: MutationDeleteTelco, Address: addr}
}

func SetAdmin(admin Address) Mutation {
	return Mutation{Kind: MutationSetAdmin, Address: admin}
}

// ApplyTo applies the mutation to s and advances its version. Unknown kinds
// only advance the version.
func (m Mutation) ApplyTo(s *State) {
	s.Version = m.Version + 1
	switch m.Kind {
	case MutationCreateTelco, MutationPutTelco:
		s.Telcos[m.Address] = m.Telco.Clone()
	case MutationDeleteTelco:
		delete(s.Telcos, m.Address)
	case MutationSetAdmin:
		s.Admin = m.Address
	}
}
