package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
	"telcoreg/pkg/platform/sentinel"
	"telcoreg/pkg/requestcontext"
)

const (
	admin models.Address = GenesisAdmin
	telco models.Address = "STB44HYPYAT2BB2QE513NSP81HTMYWBJP02HPGK6"
	other models.Address = "ST2C6JS2B5E7FRC8YEK8E7DJMSFW63Q8KZ56G9VXR"
)

type RegistrySuite struct {
	suite.Suite
	reg *Registry
	ctx context.Context
	now time.Time
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.reg = New(admin)
}

func (s *RegistrySuite) register(addr models.Address, name string) {
	ok, err := s.reg.RegisterTelco(s.ctx, addr, models.Metadata{Name: name, Country: "France", Website: "https://orange.com"}, "abcd1234")
	s.Require().NoError(err)
	s.Require().True(ok)
}

func (s *RegistrySuite) requireCode(err error, code models.ErrorCode) {
	s.T().Helper()
	got, ok := models.CodeOf(err)
	s.Require().True(ok, "expected registry code %d, got %v", code, err)
	s.Require().Equal(code, got)
}

func (s *RegistrySuite) TestRegisterTelco() {
	s.Run("new address registers unverified with supplied fields", func() {
		ok, err := s.reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange", Country: "France", Website: "https://orange.com"}, "abcd1234")
		s.Require().NoError(err)
		s.True(ok)

		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.False(got.Verified)
		s.Equal("Orange", got.Name)
		s.Equal("France", got.Country)
		s.Equal("https://orange.com", got.Website)
		s.Equal("abcd1234", got.PublicKey)
		s.Equal(s.now, got.RegisteredAt)
	})

	s.Run("second registration is rejected and leaves state unchanged", func() {
		before := s.reg.Snapshot()

		ok, err := s.reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Other"}, "zzz")
		s.False(ok)
		s.requireCode(err, models.CodeAlreadyRegistered)
		s.Equal(before, s.reg.Snapshot())
	})
}

func (s *RegistrySuite) TestVerifyTelco() {
	s.Run("non-admin is rejected regardless of target", func() {
		_, err := s.reg.VerifyTelco(s.ctx, other, telco)
		s.requireCode(err, models.CodeNotAdmin)

		s.register(telco, "MTN")
		_, err = s.reg.VerifyTelco(s.ctx, other, telco)
		s.requireCode(err, models.CodeNotAdmin)

		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.False(got.Verified)
	})

	s.Run("admin verifies an existing record", func() {
		ok, err := s.reg.VerifyTelco(s.ctx, admin, telco)
		s.Require().NoError(err)
		s.True(ok)

		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.True(got.Verified)
		s.Equal("MTN", got.Name)
		s.Require().NotNil(got.VerifiedAt)
	})

	s.Run("verifying twice returns already verified and changes nothing", func() {
		before := s.reg.Snapshot()

		_, err := s.reg.VerifyTelco(s.ctx, admin, telco)
		s.requireCode(err, models.CodeAlreadyVerified)
		s.Equal(before, s.reg.Snapshot())
	})

	s.Run("admin on unknown address gets not found", func() {
		_, err := s.reg.VerifyTelco(s.ctx, admin, other)
		s.requireCode(err, models.CodeNotFound)
	})
}

func (s *RegistrySuite) TestUpdateTelco() {
	s.Run("caller without a record gets not found", func() {
		_, err := s.reg.UpdateTelco(s.ctx, telco, models.Metadata{Name: "x"})
		s.requireCode(err, models.CodeNotFound)
		s.Empty(s.reg.Snapshot().Telcos)
	})

	s.Run("owner updates metadata without touching key or verification", func() {
		s.register(telco, "Vodafone")
		_, err := s.reg.VerifyTelco(s.ctx, admin, telco)
		s.Require().NoError(err)

		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		ok, err := s.reg.UpdateTelco(later, telco, models.Metadata{Name: "Vodafone UK", Country: "UK", Website: "https://uk.vodafone.com"})
		s.Require().NoError(err)
		s.True(ok)

		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.Equal("Vodafone UK", got.Name)
		s.Equal("UK", got.Country)
		s.Equal("https://uk.vodafone.com", got.Website)
		s.Equal("abcd1234", got.PublicKey)
		s.True(got.Verified)
		s.Equal(s.now.Add(time.Hour), got.UpdatedAt)
	})

	s.Run("admin cannot update someone else's record", func() {
		_, err := s.reg.UpdateTelco(s.ctx, admin, models.Metadata{Name: "hijack"})
		s.requireCode(err, models.CodeNotFound)

		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.Equal("Vodafone UK", got.Name)
	})
}

func (s *RegistrySuite) TestRemoveTelco() {
	s.register(telco, "Telia")

	s.Run("non-admin cannot remove, even their own record", func() {
		_, err := s.reg.RemoveTelco(s.ctx, telco, telco)
		s.requireCode(err, models.CodeNotAdmin)
	})

	s.Run("admin removes an existing record", func() {
		ok, err := s.reg.RemoveTelco(s.ctx, admin, telco)
		s.Require().NoError(err)
		s.True(ok)

		_, err = s.reg.GetTelco(s.ctx, telco)
		s.requireCode(err, models.CodeNotFound)
	})

	s.Run("removing an absent record is not found", func() {
		_, err := s.reg.RemoveTelco(s.ctx, admin, telco)
		s.requireCode(err, models.CodeNotFound)
	})

	s.Run("removed address may register again", func() {
		s.register(telco, "Telia Again")
		got, err := s.reg.GetTelco(s.ctx, telco)
		s.Require().NoError(err)
		s.False(got.Verified)
	})
}

func (s *RegistrySuite) TestTransferAdmin() {
	s.register(telco, "Orange")
	s.register(other, "MTN")

	s.Run("non-admin cannot transfer", func() {
		_, err := s.reg.TransferAdmin(s.ctx, other, other)
		s.requireCode(err, models.CodeNotAdmin)
		s.Equal(admin, s.reg.Admin())
	})

	s.Run("transfer to self is a permitted no-op", func() {
		ok, err := s.reg.TransferAdmin(s.ctx, admin, admin)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(admin, s.reg.Admin())
	})

	s.Run("old admin loses and new admin gains restricted operations", func() {
		const newAdmin models.Address = "ST3NEWADMIN"
		ok, err := s.reg.TransferAdmin(s.ctx, admin, newAdmin)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(newAdmin, s.reg.Admin())
		s.True(s.reg.IsAdmin(newAdmin))
		s.False(s.reg.IsAdmin(admin))

		_, err = s.reg.VerifyTelco(s.ctx, admin, telco)
		s.requireCode(err, models.CodeNotAdmin)
		_, err = s.reg.RemoveTelco(s.ctx, admin, telco)
		s.requireCode(err, models.CodeNotAdmin)
		_, err = s.reg.TransferAdmin(s.ctx, admin, admin)
		s.requireCode(err, models.CodeNotAdmin)

		_, err = s.reg.VerifyTelco(s.ctx, newAdmin, telco)
		s.NoError(err)
		_, err = s.reg.RemoveTelco(s.ctx, newAdmin, other)
		s.NoError(err)
		_, err = s.reg.TransferAdmin(s.ctx, newAdmin, admin)
		s.NoError(err)
	})
}

// TestExampleTrace replays register, verify, read, verify again.
func (s *RegistrySuite) TestExampleTrace() {
	ok, err := s.reg.RegisterTelco(s.ctx, "T1", models.Metadata{Name: "Orange", Country: "FR", Website: "https://orange.com"}, "pk1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.reg.VerifyTelco(s.ctx, admin, "T1")
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.reg.GetTelco(s.ctx, "T1")
	s.Require().NoError(err)
	s.True(got.Verified)

	_, err = s.reg.VerifyTelco(s.ctx, admin, "T1")
	s.requireCode(err, models.CodeAlreadyVerified)
}

func (s *RegistrySuite) TestGetTelcoReturnsCopy() {
	s.register(telco, "Orange")

	got, err := s.reg.GetTelco(s.ctx, telco)
	s.Require().NoError(err)
	got.Verified = true
	got.Name = "mutated"

	again, err := s.reg.GetTelco(s.ctx, telco)
	s.Require().NoError(err)
	s.False(again.Verified)
	s.Equal("Orange", again.Name)
}

func (s *RegistrySuite) TestCounts() {
	s.register(telco, "Orange")
	s.register(other, "MTN")
	_, err := s.reg.VerifyTelco(s.ctx, admin, telco)
	s.Require().NoError(err)

	unverified, verified := s.reg.Counts()
	s.Equal(1, unverified)
	s.Equal(1, verified)
}

func (s *RegistrySuite) TestCommitter() {
	s.Run("receives one mutation per successful call and none for rejections", func() {
		var got []models.Mutation
		reg := New(admin, WithCommitter(CommitterFunc(func(_ context.Context, m models.Mutation) error {
			got = append(got, m)
			return nil
		})))

		_, err := reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange"}, "pk")
		s.Require().NoError(err)
		_, err = reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange"}, "pk")
		s.Require().Error(err)
		_, err = reg.VerifyTelco(s.ctx, other, telco)
		s.Require().Error(err)
		_, err = reg.VerifyTelco(s.ctx, admin, telco)
		s.Require().NoError(err)
		_, err = reg.RemoveTelco(s.ctx, admin, telco)
		s.Require().NoError(err)
		_, err = reg.TransferAdmin(s.ctx, admin, other)
		s.Require().NoError(err)
		_, err = reg.GetTelco(s.ctx, telco)
		s.Require().Error(err)

		s.Require().Len(got, 4)
		s.Equal(models.MutationCreateTelco, got[0].Kind)
		s.False(got[0].Telco.Verified)
		s.Equal(models.MutationPutTelco, got[1].Kind)
		s.True(got[1].Telco.Verified)
		s.Equal(models.MutationDeleteTelco, got[2].Kind)
		s.Equal(models.MutationSetAdmin, got[3].Kind)
		s.Equal(other, got[3].Address)
		for i, m := range got {
			s.Equal(uint64(i), m.Version, "mutation %d", i)
		}
		s.Equal(uint64(4), reg.Version())
	})

	s.Run("failed commit leaves state untouched", func() {
		fail := false
		reg := New(admin, WithCommitter(CommitterFunc(func(context.Context, models.Mutation) error {
			if fail {
				return errors.New("store unavailable")
			}
			return nil
		})))
		_, err := reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange"}, "pk")
		s.Require().NoError(err)
		before := reg.Snapshot()

		fail = true
		_, err = reg.RegisterTelco(s.ctx, other, models.Metadata{Name: "MTN"}, "pk")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		_, isCode := models.CodeOf(err)
		s.False(isCode)

		_, err = reg.VerifyTelco(s.ctx, admin, telco)
		s.Require().Error(err)
		_, err = reg.UpdateTelco(s.ctx, telco, models.Metadata{Name: "x"})
		s.Require().Error(err)
		_, err = reg.RemoveTelco(s.ctx, admin, telco)
		s.Require().Error(err)
		_, err = reg.TransferAdmin(s.ctx, admin, other)
		s.Require().Error(err)

		s.Equal(before, reg.Snapshot())
	})

	s.Run("store errors map to service codes", func() {
		tests := []struct {
			name string
			err  error
			code dErrors.Code
		}{
			{"stale version", fmt.Errorf("apply: %w", sentinel.ErrConflict), dErrors.CodeConflict},
			{"breaker open", fmt.Errorf("postgres store: %w", sentinel.ErrUnavailable), dErrors.CodeUnavailable},
			{"anything else", errors.New("disk full"), dErrors.CodeInternal},
		}
		for _, tt := range tests {
			reg := New(admin, WithCommitter(CommitterFunc(func(context.Context, models.Mutation) error {
				return tt.err
			})))
			_, err := reg.TransferAdmin(s.ctx, admin, other)
			s.Require().Error(err, tt.name)
			s.True(dErrors.HasCode(err, tt.code), tt.name)
			s.ErrorIs(err, tt.err, tt.name)
			s.Equal(admin, reg.Admin(), tt.name)
			s.Zero(reg.Version(), tt.name)
		}
	})
}

func (s *RegistrySuite) TestReset() {
	s.register(telco, "Orange")

	next := models.NewState(other)
	next.Version = 9
	s.reg.Reset(next)

	s.Equal(other, s.reg.Admin())
	s.Equal(uint64(9), s.reg.Version())
	_, err := s.reg.GetTelco(s.ctx, telco)
	s.requireCode(err, models.CodeNotFound)

	// the registry does not share memory with the state it was reset to
	next.Admin = admin
	s.Equal(other, s.reg.Admin())

	older := models.NewState(admin)
	older.Version = 3
	s.reg.Reset(older)
	s.Equal(other, s.reg.Admin())
	s.Equal(uint64(9), s.reg.Version())
}

func (s *RegistrySuite) TestCommitterRegistryOutcome() {
	reg := New(admin, WithCommitter(CommitterFunc(func(context.Context, models.Mutation) error {
		return models.ErrAlreadyRegistered
	})))

	_, err := reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange"}, "pk")
	s.requireCode(err, models.CodeAlreadyRegistered)
	s.Empty(reg.Snapshot().Telcos)
}

func (s *RegistrySuite) TestRestoreRoundTrip() {
	s.register(telco, "Orange")
	s.register(other, "MTN")
	_, err := s.reg.VerifyTelco(s.ctx, admin, telco)
	s.Require().NoError(err)
	_, err = s.reg.TransferAdmin(s.ctx, admin, other)
	s.Require().NoError(err)

	snap := s.reg.Snapshot()
	restored := Restore(snap)

	s.Equal(snap, restored.Snapshot())
	s.Equal(other, restored.Admin())
	got, err := restored.GetTelco(s.ctx, telco)
	s.Require().NoError(err)
	s.True(got.Verified)

	// the restored registry does not share memory with the snapshot
	delete(snap.Telcos, telco)
	_, err = restored.GetTelco(s.ctx, telco)
	s.NoError(err)
}

// TestConcurrentRegistration verifies that racing registrations of the same
// address yield exactly one success.
func (s *RegistrySuite) TestConcurrentRegistration() {
	const goroutines = 50
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reg.RegisterTelco(s.ctx, telco, models.Metadata{Name: "Orange"}, "pk")
			if err == nil {
				successes.Add(1)
				return
			}
			if errors.Is(err, models.ErrAlreadyRegistered) {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *RegistrySuite) TestConcurrentVerify() {
	s.register(telco, "Orange")

	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.reg.VerifyTelco(s.ctx, admin, telco); err == nil {
				successes.Add(1)
			}
			_, _ = s.reg.GetTelco(s.ctx, telco)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
}
