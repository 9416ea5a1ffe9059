package dispatch

//go:generate mockgen -source=dispatch.go -destination=mocks/mocks.go -package=mocks Registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"telcoreg/internal/telco/dispatch/mocks"
	"telcoreg/internal/telco/models"
	"telcoreg/internal/telco/registry"
	"telcoreg/internal/telco/service"
	"telcoreg/internal/telco/store"
	dErrors "telcoreg/pkg/domain-errors"
)

const (
	admin  models.Address = "ST1ADMIN"
	telcoA models.Address = "ST1TELCO"
)

// =============================================================================
// Dispatcher Test Suite
// =============================================================================
// Justification for unit tests: argument decoding and the Result folding are
// the dispatcher's only logic. The registry is mocked so each call's routing
// and argument mapping can be asserted exactly.

type DispatchSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockRegistry *mocks.MockRegistry
	dispatcher   *Dispatcher
	ctx          context.Context
}

func TestDispatchSuite(t *testing.T) {
	suite.Run(t, new(DispatchSuite))
}

func (s *DispatchSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRegistry = mocks.NewMockRegistry(s.ctrl)
	s.dispatcher = New(s.mockRegistry)
	s.ctx = context.Background()
}

func (s *DispatchSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DispatchSuite) call(method string, caller models.Address, args string) (models.Result[any], error) {
	return s.dispatcher.Dispatch(s.ctx, Call{Method: method, Caller: caller, Args: json.RawMessage(args)})
}

func (s *DispatchSuite) requireJSON(expected string, result models.Result[any]) {
	raw, err := json.Marshal(result)
	s.Require().NoError(err)
	s.JSONEq(expected, string(raw))
}

func (s *DispatchSuite) TestRouting() {
	meta := models.Metadata{Name: "Acme", Country: "NZ", Website: "acme.example"}

	s.Run("register-telco", func() {
		s.mockRegistry.EXPECT().RegisterTelco(gomock.Any(), telcoA, meta, "pk").Return(true, nil)
		res, err := s.call(MethodRegisterTelco, telcoA,
			`{"name":"Acme","country":"NZ","website":"acme.example","public-key":"pk"}`)
		s.Require().NoError(err)
		s.requireJSON(`{"value":true}`, res)
	})

	s.Run("verify-telco", func() {
		s.mockRegistry.EXPECT().VerifyTelco(gomock.Any(), admin, telcoA).Return(false, models.ErrAlreadyVerified)
		res, err := s.call(MethodVerifyTelco, admin, `{"telco":"ST1TELCO"}`)
		s.Require().NoError(err)
		s.requireJSON(`{"error":103}`, res)
	})

	s.Run("update-telco", func() {
		s.mockRegistry.EXPECT().UpdateTelco(gomock.Any(), telcoA, meta).Return(false, models.ErrNotFound)
		res, err := s.call(MethodUpdateTelco, telcoA, `{"name":"Acme","country":"NZ","website":"acme.example"}`)
		s.Require().NoError(err)
		s.requireJSON(`{"error":102}`, res)
	})

	s.Run("remove-telco", func() {
		s.mockRegistry.EXPECT().RemoveTelco(gomock.Any(), telcoA, telcoA).Return(false, models.ErrNotAdmin)
		res, err := s.call(MethodRemoveTelco, telcoA, `{"telco":"ST1TELCO"}`)
		s.Require().NoError(err)
		s.requireJSON(`{"error":100}`, res)
	})

	s.Run("get-telco needs no caller", func() {
		t := &models.Telco{Name: "Acme", PublicKey: "pk"}
		s.mockRegistry.EXPECT().GetTelco(gomock.Any(), telcoA).Return(t, nil)
		res, err := s.call(MethodGetTelco, "", `{"telco":"ST1TELCO"}`)
		s.Require().NoError(err)
		v, ok := res.Value()
		s.True(ok)
		s.Same(t, v)
	})

	s.Run("transfer-admin", func() {
		s.mockRegistry.EXPECT().TransferAdmin(gomock.Any(), admin, telcoA).Return(true, nil)
		res, err := s.call(MethodTransferAdmin, admin, `{"new-admin":"ST1TELCO"}`)
		s.Require().NoError(err)
		s.requireJSON(`{"value":true}`, res)
	})

	s.Run("get-admin", func() {
		s.mockRegistry.EXPECT().Admin(gomock.Any()).Return(admin)
		res, err := s.call(MethodGetAdmin, "", "")
		s.Require().NoError(err)
		s.requireJSON(`{"value":"ST1ADMIN"}`, res)
	})
}

func (s *DispatchSuite) TestBadRequests() {
	cases := []struct {
		name   string
		method string
		caller models.Address
		args   string
	}{
		{"unknown method", "mint-telco", admin, `{}`},
		{"missing caller", MethodRegisterTelco, "", `{"name":"a","country":"b","website":"c","public-key":"d"}`},
		{"missing public key", MethodRegisterTelco, telcoA, `{"name":"a","country":"b","website":"c"}`},
		{"missing metadata field", MethodUpdateTelco, telcoA, `{"name":"a","country":"b"}`},
		{"missing telco", MethodVerifyTelco, admin, `{}`},
		{"blank telco", MethodRemoveTelco, admin, `{"telco":"  "}`},
		{"unknown argument", MethodGetTelco, "", `{"telco":"x","extra":1}`},
		{"args not an object", MethodGetTelco, "", `["x"]`},
		{"wrong argument type", MethodVerifyTelco, admin, `{"telco":42}`},
		{"missing new admin", MethodTransferAdmin, admin, `{}`},
		{"empty new admin", MethodTransferAdmin, admin, `{"new-admin":""}`},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.call(tc.method, tc.caller, tc.args)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), "got %v", err)
		})
	}
}

func (s *DispatchSuite) TestInfrastructureFailureIsAnError() {
	boom := dErrors.Wrap(errors.New("disk full"), dErrors.CodeInternal, "failed to commit put_telco")
	s.mockRegistry.EXPECT().VerifyTelco(gomock.Any(), admin, telcoA).Return(false, boom)

	_, err := s.call(MethodVerifyTelco, admin, `{"telco":"ST1TELCO"}`)
	s.ErrorIs(err, boom)
}

func TestMethods(t *testing.T) {
	assert.ElementsMatch(t, []string{
		MethodRegisterTelco, MethodVerifyTelco, MethodUpdateTelco, MethodRemoveTelco,
		MethodGetTelco, MethodTransferAdmin, MethodGetAdmin,
	}, Methods())
}

// TestExampleTrace drives the dispatcher against a real service:
// register, verify, read, verify again.
func TestExampleTrace(t *testing.T) {
	ctx := context.Background()
	svc, err := service.New(ctx, store.NewInMemory(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	d := New(svc)

	steps := []struct {
		call     Call
		expected string
	}{
		{
			Call{Method: MethodRegisterTelco, Caller: telcoA, Args: json.RawMessage(
				`{"name":"Acme","country":"NZ","website":"acme.example","public-key":"pk"}`)},
			`{"value":true}`,
		},
		{
			Call{Method: MethodVerifyTelco, Caller: registry.GenesisAdmin, Args: json.RawMessage(`{"telco":"ST1TELCO"}`)},
			`{"value":true}`,
		},
		{
			Call{Method: MethodVerifyTelco, Caller: registry.GenesisAdmin, Args: json.RawMessage(`{"telco":"ST1TELCO"}`)},
			`{"error":103}`,
		},
		{
			Call{Method: MethodVerifyTelco, Caller: telcoA, Args: json.RawMessage(`{"telco":"ST1TELCO"}`)},
			`{"error":100}`,
		},
	}
	for _, step := range steps {
		res, err := d.Dispatch(ctx, step.call)
		require.NoError(t, err)
		raw, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, step.expected, string(raw), step.call.Method)
	}

	res, err := d.Dispatch(ctx, Call{Method: MethodGetTelco, Args: json.RawMessage(`{"telco":"ST1TELCO"}`)})
	require.NoError(t, err)
	v, ok := res.Value()
	require.True(t, ok)
	assert.True(t, v.(*models.Telco).Verified)
}
