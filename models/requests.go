package models

import (
	"time"

	"account-service/internal/models"
)

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,min=3"`
	LastName  string `json:"lastName" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type VerifyEmailRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type AddressRequest struct {
	Street string `json:"street"`
	Number int    `json:"number" validate:"gte=0"`
	Postal int    `json:"postal" validate:"gte=0"`
	City   string `json:"city"`
}

type CompanyRequest struct {
	Name    string          `json:"name" validate:"required,min=3"`
	Cif     string          `json:"cif" validate:"required,min=9"`
	Address *AddressRequest `json:"address" validate:"omitempty"`
}

// UpdateProfileRequest accepts the protected fields too, so that the directory can
// refuse them explicitly instead of silently dropping them.
type UpdateProfileRequest struct {
	FirstName      *string         `json:"firstName" validate:"omitempty,min=3"`
	LastName       *string         `json:"lastName" validate:"omitempty,min=3"`
	ProfilePicture *string         `json:"profilePicture" validate:"omitempty,url"`
	Company        *CompanyRequest `json:"company" validate:"omitempty"`

	Password             *string    `json:"password"`
	Role                 *string    `json:"role"`
	Validated            *bool      `json:"validated"`
	VerificationCode     *string    `json:"verificationCode"`
	VerificationAttempts *int       `json:"verificationAttempts"`
	ResetPasswordToken   *string    `json:"resetPasswordToken"`
	ResetPasswordExpires *time.Time `json:"resetPasswordExpires"`
}

// Patch converts the request into a directory patch.
func (r UpdateProfileRequest) Patch() models.UserPatch {
	patch := models.UserPatch{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		ProfilePicture:       r.ProfilePicture,
		Password:             r.Password,
		Validated:            r.Validated,
		VerificationCode:     r.VerificationCode,
		VerificationAttempts: r.VerificationAttempts,
		ResetPasswordToken:   r.ResetPasswordToken,
		ResetPasswordExpires: r.ResetPasswordExpires,
	}
	if r.Role != nil {
		role := models.Role(*r.Role)
		patch.Role = &role
	}
	if r.Company != nil {
		company := &models.Company{Name: r.Company.Name, Cif: r.Company.Cif}
		if a := r.Company.Address; a != nil {
			company.Address = &models.Address{Street: a.Street, Number: a.Number, Postal: a.Postal, City: a.City}
		}
		patch.Company = company
	}
	return patch
}

type SendInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
}
