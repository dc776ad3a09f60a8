package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validate = validator.New()

func TestRegisterRequestValidation(t *testing.T) {
	valid := RegisterRequest{FirstName: "Ana", LastName: "Ruiz", Email: "ana@acme.test", Password: "pw12345678"}
	assert.NoError(t, validate.Struct(valid))

	short := valid
	short.Password = "short"
	assert.Error(t, validate.Struct(short))

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Error(t, validate.Struct(badEmail))

	shortName := valid
	shortName.FirstName = "Al"
	assert.Error(t, validate.Struct(shortName))
}

func TestSendInvitationRequestRole(t *testing.T) {
	assert.NoError(t, validate.Struct(SendInvitationRequest{Email: "a@acme.test"}))
	assert.NoError(t, validate.Struct(SendInvitationRequest{Email: "a@acme.test", Role: "admin"}))
	assert.Error(t, validate.Struct(SendInvitationRequest{Email: "a@acme.test", Role: "owner"}))
}

func TestUpdateProfileRequestCompany(t *testing.T) {
	req := UpdateProfileRequest{Company: &CompanyRequest{Name: "Acme", Cif: "B123"}}
	assert.Error(t, validate.Struct(req))

	req.Company.Cif = "B12345678"
	req.Company.Address = &AddressRequest{Street: "Main", Number: 4, City: "Madrid"}
	require.NoError(t, validate.Struct(req))

	patch := req.Patch()
	require.NotNil(t, patch.Company)
	assert.Equal(t, "Acme", patch.Company.Name)
	assert.Equal(t, "Madrid", patch.Company.Address.City)
	assert.Empty(t, patch.ProtectedFields())
}

func TestUpdateProfileRequestCarriesProtectedFields(t *testing.T) {
	role := "admin"
	validated := true
	patch := UpdateProfileRequest{Role: &role, Validated: &validated}.Patch()
	assert.Equal(t, []string{"role", "validated"}, patch.ProtectedFields())
}
