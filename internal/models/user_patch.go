package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// UserPatch is a partial update of a user. Nil fields are left untouched. An empty
// VerificationCode or ResetPasswordToken clears the stored value.
type UserPatch struct {
	FirstName      *string
	LastName       *string
	Company        *Company
	ProfilePicture *string

	// Protected: only dedicated account operations may set these.
	Password             *string
	Role                 *Role
	Validated            *bool
	VerificationCode     *string
	VerificationAttempts *int
	ResetPasswordToken   *string
	ResetPasswordExpires *time.Time
}

// ProtectedFields lists the protected fields the patch sets, by their stored name.
func (p UserPatch) ProtectedFields() []string {
	var fields []string
	if p.Password != nil {
		fields = append(fields, "password")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	if p.Validated != nil {
		fields = append(fields, "validated")
	}
	if p.VerificationCode != nil {
		fields = append(fields, "verificationCode")
	}
	if p.VerificationAttempts != nil {
		fields = append(fields, "verificationAttempts")
	}
	if p.ResetPasswordToken != nil {
		fields = append(fields, "resetPasswordToken")
	}
	if p.ResetPasswordExpires != nil {
		fields = append(fields, "resetPasswordExpires")
	}
	return fields
}

func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Company == nil &&
		p.ProfilePicture == nil && len(p.ProtectedFields()) == 0
}

// Apply writes the patch onto u.
func (p UserPatch) Apply(u *User, now time.Time) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Company != nil {
		u.Company = p.Company.Clone()
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Validated != nil {
		u.Validated = *p.Validated
	}
	if p.VerificationCode != nil {
		u.VerificationCode = *p.VerificationCode
	}
	if p.VerificationAttempts != nil {
		u.VerificationAttempts = *p.VerificationAttempts
	}
	if p.ResetPasswordToken != nil {
		u.ResetPasswordToken = *p.ResetPasswordToken
		if *p.ResetPasswordToken == "" {
			u.ResetPasswordExpires = nil
		}
	}
	if p.ResetPasswordExpires != nil {
		t := *p.ResetPasswordExpires
		u.ResetPasswordExpires = &t
	}
	u.UpdatedAt = now
}

// Document renders the patch as a mongo update document.
func (p UserPatch) Document(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}

	if p.FirstName != nil {
		set["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		set["lastName"] = *p.LastName
	}
	if p.Company != nil {
		set["company"] = p.Company.Clone()
	}
	if p.ProfilePicture != nil {
		set["profilePicture"] = *p.ProfilePicture
	}
	if p.Password != nil {
		set["password"] = *p.Password
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Validated != nil {
		set["validated"] = *p.Validated
	}
	if p.VerificationCode != nil {
		if *p.VerificationCode == "" {
			unset["verificationCode"] = ""
		} else {
			set["verificationCode"] = *p.VerificationCode
		}
	}
	if p.VerificationAttempts != nil {
		set["verificationAttempts"] = *p.VerificationAttempts
	}
	if p.ResetPasswordToken != nil {
		if *p.ResetPasswordToken == "" {
			unset["resetPasswordToken"] = ""
			unset["resetPasswordExpires"] = ""
		} else {
			set["resetPasswordToken"] = *p.ResetPasswordToken
		}
	}
	if p.ResetPasswordExpires != nil {
		set["resetPasswordExpires"] = *p.ResetPasswordExpires
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}
