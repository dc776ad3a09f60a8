package controllers

import (
	"context"
	"time"

	"account-service/internal/accounts"
	"account-service/internal/invitations"
	"account-service/internal/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountService is the account lifecycle the auth handlers drive.
type AccountService interface {
	Register(ctx context.Context, reg accounts.Registration) (*accounts.Session, error)
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*accounts.Session, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	CurrentUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	DeleteAccount(ctx context.Context, id primitive.ObjectID, soft bool) error
	UploadLogo(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (string, error)
}

// InvitationService is the invitation state machine the invitation handlers drive.
type InvitationService interface {
	Send(ctx context.Context, inviter *models.User, email string, role models.PartnerRole) (*invitations.SendResult, error)
	Received(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error)
	Sent(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error)
	Accept(ctx context.Context, currentID, invitationID primitive.ObjectID) (*invitations.AcceptResult, error)
	Reject(ctx context.Context, currentID, invitationID primitive.ObjectID) error
	Cancel(ctx context.Context, currentID, invitationID primitive.ObjectID) error
	Reconcile(ctx context.Context, currentID primitive.ObjectID) (int, error)
}

var (
	Accounts    AccountService
	Invitations InvitationService

	// RequestTimeout bounds the work of a single handler.
	RequestTimeout = 10 * time.Second

	// MaxLogoBytes caps the size of an uploaded profile picture.
	MaxLogoBytes int64 = 5 << 20
)

var validate = validator.New()

func requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, RequestTimeout)
}
