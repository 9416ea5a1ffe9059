// Package dispatch executes named contract calls against the registry.
//
// A Call carries a method name, the authenticated caller and a JSON object of
// named arguments. The dispatcher decodes and checks the arguments, runs
// exactly one registry operation and folds the outcome into a models.Result:
// registry rejections become {"error": code}; malformed calls and
// infrastructure failures are returned as errors instead.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
)

// Method names accepted by Dispatch.
const (
	MethodRegisterTelco = "register-telco"
	MethodVerifyTelco   = "verify-telco"
	MethodUpdateTelco   = "update-telco"
	MethodRemoveTelco   = "remove-telco"
	MethodGetTelco      = "get-telco"
	MethodTransferAdmin = "transfer-admin"
	MethodGetAdmin      = "get-admin"
)

// Registry is the set of operations a call can reach.
type Registry interface {
	RegisterTelco(ctx context.Context, caller models.Address, meta models.Metadata, publicKey string) (bool, error)
	VerifyTelco(ctx context.Context, caller, telco models.Address) (bool, error)
	UpdateTelco(ctx context.Context, caller models.Address, meta models.Metadata) (bool, error)
	RemoveTelco(ctx context.Context, caller, telco models.Address) (bool, error)
	GetTelco(ctx context.Context, telco models.Address) (*models.Telco, error)
	TransferAdmin(ctx context.Context, caller, newAdmin models.Address) (bool, error)
	Admin(ctx context.Context) models.Address
}

// Call is one contract invocation.
type Call struct {
	Method string          `json:"method"`
	Caller models.Address  `json:"-"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type handlerFunc func(ctx context.Context, reg Registry, call Call) (any, error)

type method struct {
	needsCaller bool
	run         handlerFunc
}

var methods = map[string]method{
	MethodRegisterTelco: {needsCaller: true, run: registerTelco},
	MethodVerifyTelco:   {needsCaller: true, run: verifyTelco},
	MethodUpdateTelco:   {needsCaller: true, run: updateTelco},
	MethodRemoveTelco:   {needsCaller: true, run: removeTelco},
	MethodGetTelco:      {run: getTelco},
	MethodTransferAdmin: {needsCaller: true, run: transferAdmin},
	MethodGetAdmin:      {run: getAdmin},
}

// Dispatcher routes calls to a Registry.
type Dispatcher struct {
	registry Registry
}

func New(registry Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Methods lists the accepted method names.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	return names
}

// Dispatch runs one call. The error is non-nil only for calls the registry
// never evaluated (bad_request) or for infrastructure failures; registry
// rejections are reported through the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (models.Result[any], error) {
	m, ok := methods[call.Method]
	if !ok {
		return models.Result[any]{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown method %q", call.Method))
	}
	if m.needsCaller && call.Caller.IsNil() {
		return models.Result[any]{}, dErrors.New(dErrors.CodeBadRequest, "caller is required")
	}

	value, err := m.run(ctx, d.registry, call)
	if dErrors.HasCode(err, dErrors.CodeBadRequest) {
		return models.Result[any]{}, err
	}
	result, ok := models.ResultOf(value, err)
	if !ok {
		return models.Result[any]{}, err
	}
	return result, nil
}

type metadataArgs struct {
	Name    *string `json:"name"`
	Country *string `json:"country"`
	Website *string `json:"website"`
}

func (a metadataArgs) metadata() (models.Metadata, error) {
	if a.Name == nil || a.Country == nil || a.Website == nil {
		return models.Metadata{}, dErrors.New(dErrors.CodeBadRequest, "name, country and website are required")
	}
	return models.Metadata{Name: *a.Name, Country: *a.Country, Website: *a.Website}, nil
}

type registerArgs struct {
	metadataArgs
	PublicKey *string `json:"public-key"`
}

type telcoArgs struct {
	Telco *string `json:"telco"`
}

type transferArgs struct {
	NewAdmin *string `json:"new-admin"`
}

func registerTelco(ctx context.Context, reg Registry, call Call) (any, error) {
	var args registerArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return nil, err
	}
	meta, err := args.metadata()
	if err != nil {
		return nil, err
	}
	if args.PublicKey == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "public-key is required")
	}
	return reg.RegisterTelco(ctx, call.Caller, meta, *args.PublicKey)
}

func verifyTelco(ctx context.Context, reg Registry, call Call) (any, error) {
	telco, err := decodeTelco(call.Args)
	if err != nil {
		return nil, err
	}
	return reg.VerifyTelco(ctx, call.Caller, telco)
}

func updateTelco(ctx context.Context, reg Registry, call Call) (any, error) {
	var args metadataArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return nil, err
	}
	meta, err := args.metadata()
	if err != nil {
		return nil, err
	}
	return reg.UpdateTelco(ctx, call.Caller, meta)
}

func removeTelco(ctx context.Context, reg Registry, call Call) (any, error) {
	telco, err := decodeTelco(call.Args)
	if err != nil {
		return nil, err
	}
	return reg.RemoveTelco(ctx, call.Caller, telco)
}

func getTelco(ctx context.Context, reg Registry, call Call) (any, error) {
	telco, err := decodeTelco(call.Args)
	if err != nil {
		return nil, err
	}
	t, err := reg.GetTelco(ctx, telco)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func transferAdmin(ctx context.Context, reg Registry, call Call) (any, error) {
	var args transferArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return nil, err
	}
	if args.NewAdmin == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "new-admin is required")
	}
	newAdmin, err := parseAddress("new-admin", *args.NewAdmin)
	if err != nil {
		return nil, err
	}
	return reg.TransferAdmin(ctx, call.Caller, newAdmin)
}

func getAdmin(ctx context.Context, reg Registry, _ Call) (any, error) {
	return reg.Admin(ctx), nil
}

func decodeTelco(raw json.RawMessage) (models.Address, error) {
	var args telcoArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Telco == nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "telco is required")
	}
	return parseAddress("telco", *args.Telco)
}

// decodeArgs strictly decodes a JSON object of named arguments. Absent args
// decode as an empty object.
func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid call arguments")
	}
	return nil
}

func parseAddress(field, s string) (models.Address, error) {
	addr, err := models.ParseAddress(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+field)
	}
	return addr, nil
}
