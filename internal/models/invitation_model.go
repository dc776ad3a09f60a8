package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// InvitationBox names one of the two invitation lists every user owns.
type InvitationBox string

const (
	ReceivedBox InvitationBox = "receivedInvitations"
	SentBox     InvitationBox = "sentInvitations"
)

// Invitation is stored twice, once in the recipient's received list and once in
// the inviter's sent list, under the same Id. On the sent copy InviterId holds the
// recipient's id: it is the key of the opposite document, not the author.
type Invitation struct {
	Id           primitive.ObjectID `json:"_id" bson:"_id"`
	InviterId    primitive.ObjectID `json:"inviterId" bson:"inviterId"`
	InviterEmail string             `json:"inviterEmail" bson:"inviterEmail"`
	CompanyId    primitive.ObjectID `json:"companyId,omitempty" bson:"companyId,omitempty"`
	CompanyName  string             `json:"companyName,omitempty" bson:"companyName,omitempty"`
	Status       InvitationStatus   `json:"status" bson:"status"`
	Role         PartnerRole        `json:"role" bson:"role"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// Pending reports whether the invitation can still be accepted, rejected or cancelled.
func (i Invitation) Pending() bool {
	return i.Status == InvitationPending
}

// FindInvitation returns the entry with the given id and status, if any.
func FindInvitation(list []Invitation, id primitive.ObjectID, status InvitationStatus) (Invitation, bool) {
	for _, inv := range list {
		if inv.Id == id && inv.Status == status {
			return inv, true
		}
	}
	return Invitation{}, false
}

// Invitations returns the list stored under box.
func (u *User) Invitations(box InvitationBox) []Invitation {
	if box == SentBox {
		return u.SentInvitations
	}
	return u.ReceivedInvitations
}

// InvitationView is an invitation with its counterpart resolved, as returned by the
// list endpoints.
type InvitationView struct {
	Invitation
	Counterpart *Summary `json:"counterpart,omitempty" bson:"-"`
}
