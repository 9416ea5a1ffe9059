package handler

import (
	"encoding/json"
	"time"

	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
)

type callRequest struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

type metadataRequest struct {
	Name    *string `json:"name"`
	Country *string `json:"country"`
	Website *string `json:"website"`
}

func (r *metadataRequest) Validate() (models.Metadata, error) {
	if r.Name == nil || r.Country == nil || r.Website == nil {
		return models.Metadata{}, dErrors.New(dErrors.CodeBadRequest, "name, country and website are required")
	}
	return models.Metadata{Name: *r.Name, Country: *r.Country, Website: *r.Website}, nil
}

type registerRequest struct {
	metadataRequest
	PublicKey *string `json:"public_key"`
}

func (r *registerRequest) Validate() (models.Metadata, string, error) {
	meta, err := r.metadataRequest.Validate()
	if err != nil {
		return models.Metadata{}, "", err
	}
	if r.PublicKey == nil {
		return models.Metadata{}, "", dErrors.New(dErrors.CodeBadRequest, "public_key is required")
	}
	return meta, *r.PublicKey, nil
}

type transferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

type telcoResponse struct {
	Address      models.Address `json:"address"`
	Status       string         `json:"status"`
	Verified     bool           `json:"verified"`
	Name         string         `json:"name"`
	Country      string         `json:"country"`
	Website      string         `json:"website"`
	PublicKey    string         `json:"public_key"`
	RegisteredAt time.Time      `json:"registered_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	VerifiedAt   *time.Time     `json:"verified_at,omitempty"`
}

func toTelcoResponse(addr models.Address, t *models.Telco) telcoResponse {
	return telcoResponse{
		Address:      addr,
		Status:       t.Status().String(),
		Verified:     t.Verified,
		Name:         t.Name,
		Country:      t.Country,
		Website:      t.Website,
		PublicKey:    t.PublicKey,
		RegisteredAt: t.RegisteredAt,
		UpdatedAt:    t.UpdatedAt,
		VerifiedAt:   t.VerifiedAt,
	}
}

type adminResponse struct {
	Admin models.Address `json:"admin"`
}
