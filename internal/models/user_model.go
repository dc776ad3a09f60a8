package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// PartnerRole is the role a partner holds inside a company roster.
type PartnerRole string

const (
	PartnerInvited PartnerRole = "invited"
	PartnerAdmin   PartnerRole = "admin"
	PartnerUser    PartnerRole = "user"
)

// DefaultVerificationAttempts is the attempt budget stored with every new code.
const DefaultVerificationAttempts = 3

type Address struct {
	Street string `json:"street,omitempty" bson:"street,omitempty"`
	Number int    `json:"number,omitempty" bson:"number,omitempty"`
	Postal int    `json:"postal,omitempty" bson:"postal,omitempty"`
	City   string `json:"city,omitempty" bson:"city,omitempty"`
}

type Partner struct {
	UserID primitive.ObjectID `json:"_id" bson:"_id"`
	Role   PartnerRole        `json:"role" bson:"role"`
}

type Company struct {
	Id       primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name     string             `json:"name,omitempty" bson:"name,omitempty"`
	Cif      string             `json:"cif,omitempty" bson:"cif,omitempty"`
	Address  *Address           `json:"address,omitempty" bson:"address,omitempty"`
	Partners []Partner          `json:"partners" bson:"partners"`
}

// HasPartner reports whether id is already in the roster.
func (c *Company) HasPartner(id primitive.ObjectID) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Partners {
		if p.UserID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a snapshot can be stored on another user.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	out := *c
	if c.Address != nil {
		addr := *c.Address
		out.Address = &addr
	}
	out.Partners = append([]Partner{}, c.Partners...)
	return &out
}

type User struct {
	Id                   primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	FirstName            string             `json:"firstName" bson:"firstName"`
	LastName             string             `json:"lastName" bson:"lastName"`
	Email                string             `json:"email" bson:"email"`
	Password             string             `json:"-" bson:"password"`
	Role                 Role               `json:"role" bson:"role"`
	Validated            bool               `json:"validated" bson:"validated"`
	ProfilePicture       string             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	VerificationCode     string             `json:"verificationCode,omitempty" bson:"verificationCode,omitempty"`
	VerificationAttempts int                `json:"verificationAttempts" bson:"verificationAttempts"`
	ResetPasswordToken   string             `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time         `json:"-" bson:"resetPasswordExpires,omitempty"`
	Company              *Company           `json:"company,omitempty" bson:"company,omitempty"`
	ReceivedInvitations  []Invitation       `json:"receivedInvitations" bson:"receivedInvitations"`
	SentInvitations      []Invitation       `json:"sentInvitations" bson:"sentInvitations"`
	Deleted              bool               `json:"-" bson:"deleted"`
	DeletedAt            *time.Time         `json:"-" bson:"deletedAt,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// FullName joins first and last name the way invitation summaries show it.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasCompany reports whether the user founded or joined a company.
func (u *User) HasCompany() bool {
	return u.Company != nil && u.Company.Name != ""
}

// Summary is the public view of a user used in invitation payloads.
type Summary struct {
	Id             primitive.ObjectID `json:"_id"`
	FirstName      string             `json:"firstName,omitempty"`
	LastName       string             `json:"lastName,omitempty"`
	Name           string             `json:"name,omitempty"`
	Email          string             `json:"email"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
}

func (u *User) Summary() Summary {
	return Summary{
		Id:             u.Id,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Name:           u.FullName(),
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
	}
}

// NormalizeEmail is the single email canonicalization used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	out := *u
	out.Company = u.Company.Clone()
	out.ReceivedInvitations = append([]Invitation{}, u.ReceivedInvitations...)
	out.SentInvitations = append([]Invitation{}, u.SentInvitations...)
	if u.ResetPasswordExpires != nil {
		t := *u.ResetPasswordExpires
		out.ResetPasswordExpires = &t
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}
