package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"telcoreg/internal/telco/models"
	"telcoreg/pkg/platform/sentinel"
)

// StoreContractSuite holds the behaviour every state store must share.
// Backends embed it and provide a fresh, empty store from reset.
type StoreContractSuite struct {
	suite.Suite
	ctx     context.Context
	store   Backend
	reset   func() Backend
	version uint64
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.reset()
	s.version = 0
}

func (s *StoreContractSuite) newTelco(name string) *models.Telco {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return models.NewTelco(models.Metadata{Name: name, Country: "Sweden", Website: "https://telia.com"}, "pk-"+name, now)
}

// apply stamps m with the suite's version and advances it on success, the way
// a registry does.
func (s *StoreContractSuite) apply(m models.Mutation) error {
	m.Version = s.version
	if err := s.store.Apply(s.ctx, m); err != nil {
		return err
	}
	s.version++
	return nil
}

func (s *StoreContractSuite) TestLoadEmpty() {
	_, err := s.store.Load(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestVersion() {
	version, err := s.store.Version(s.ctx)
	s.Require().NoError(err)
	s.Zero(version)

	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))
	s.Require().NoError(s.apply(models.CreateTelco("T1", s.newTelco("Orange"))))

	version, err = s.store.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), version)
}

func (s *StoreContractSuite) TestRoundTrip() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))

	state, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Address("ADMIN"), state.Admin)
	s.Equal(uint64(1), state.Version)
	s.Empty(state.Telcos)

	telia := s.newTelco("Telia")
	s.Require().NoError(s.apply(models.CreateTelco("T1", telia)))
	s.Require().NoError(s.apply(models.CreateTelco("T2", s.newTelco("MTN"))))

	verified := telia.Clone()
	verified.ApplyVerification(telia.RegisteredAt.Add(time.Hour))
	s.Require().NoError(s.apply(models.PutTelco("T1", verified)))
	s.Require().NoError(s.apply(models.DeleteTelco("T2")))
	s.Require().NoError(s.apply(models.SetAdmin("NEXT")))

	state, err = s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Address("NEXT"), state.Admin)
	s.Equal(uint64(6), state.Version)
	s.Require().Len(state.Telcos, 1)

	got := state.Telcos["T1"]
	s.Require().NotNil(got)
	s.True(got.Verified)
	s.Equal("Telia", got.Name)
	s.Equal("pk-Telia", got.PublicKey)
	s.True(got.RegisteredAt.Equal(telia.RegisteredAt))
	s.Require().NotNil(got.VerifiedAt)
	s.True(got.VerifiedAt.Equal(*verified.VerifiedAt))
}

func (s *StoreContractSuite) TestCreateConflict() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))
	s.Require().NoError(s.apply(models.CreateTelco("T1", s.newTelco("Orange"))))

	err := s.apply(models.CreateTelco("T1", s.newTelco("Imposter")))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	state, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("Orange", state.Telcos["T1"].Name)
	s.Equal(uint64(2), state.Version)
}

func (s *StoreContractSuite) TestStaleVersionIsRejected() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))
	s.Require().NoError(s.apply(models.CreateTelco("T1", s.newTelco("Orange"))))

	// a writer that last saw version 1 removes T1 after the admin moved on
	s.Require().NoError(s.apply(models.SetAdmin("NEXT")))
	stale := models.DeleteTelco("T1")
	stale.Version = 1
	s.Require().ErrorIs(s.store.Apply(s.ctx, stale), sentinel.ErrConflict)

	revived := models.PutTelco("T2", s.newTelco("Ghost"))
	revived.Version = 2
	s.Require().ErrorIs(s.store.Apply(s.ctx, revived), sentinel.ErrConflict)

	state, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Address("NEXT"), state.Admin)
	s.Equal(uint64(3), state.Version)
	s.Contains(state.Telcos, models.Address("T1"))
	s.NotContains(state.Telcos, models.Address("T2"))
}

func (s *StoreContractSuite) TestGenesisRace() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))

	err := s.store.Apply(s.ctx, models.SetAdmin("LATE"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	state, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Address("ADMIN"), state.Admin)
}

func (s *StoreContractSuite) TestDeleteAbsentIsNoop() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))
	s.NoError(s.apply(models.DeleteTelco("missing")))
}

func (s *StoreContractSuite) TestConcurrentWritersOneWins() {
	s.Require().NoError(s.apply(models.SetAdmin("ADMIN")))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		applied   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := models.SetAdmin(models.Address("W" + string(rune('A'+i))))
			m.Version = 1
			err := s.store.Apply(s.ctx, m)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, sentinel.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, applied)
	s.Equal(writers-1, conflicts)
	state, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), state.Version)
}
