package controllers

import (
	"context"

	"account-service/cmd/middleware"
	"account-service/internal/accounts"
	"account-service/internal/invitations"
	"account-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockAccounts is a mock implementation of the account service
type MockAccounts struct {
	RegisterFunc       func(ctx context.Context, reg accounts.Registration) (*accounts.Session, error)
	VerifyEmailFunc    func(ctx context.Context, email, code string) error
	LoginFunc          func(ctx context.Context, email, password string) (*accounts.Session, error)
	ForgotPasswordFunc func(ctx context.Context, email string) (string, error)
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
	CurrentUserFunc    func(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfileFunc  func(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	DeleteAccountFunc  func(ctx context.Context, id primitive.ObjectID, soft bool) error
	UploadLogoFunc     func(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (string, error)
}

func (m *MockAccounts) Register(ctx context.Context, reg accounts.Registration) (*accounts.Session, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return nil, nil
}

func (m *MockAccounts) VerifyEmail(ctx context.Context, email, code string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, email, code)
	}
	return nil
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (*accounts.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, nil
}

func (m *MockAccounts) ForgotPassword(ctx context.Context, email string) (string, error) {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return "", nil
}

func (m *MockAccounts) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *MockAccounts) CurrentUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAccounts) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *MockAccounts) DeleteAccount(ctx context.Context, id primitive.ObjectID, soft bool) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, id, soft)
	}
	return nil
}

func (m *MockAccounts) UploadLogo(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (string, error) {
	if m.UploadLogoFunc != nil {
		return m.UploadLogoFunc(ctx, id, data, filename)
	}
	return "", nil
}

// MockInvitations is a mock implementation of the invitation engine
type MockInvitations struct {
	SendFunc      func(ctx context.Context, inviter *models.User, email string, role models.PartnerRole) (*invitations.SendResult, error)
	ReceivedFunc  func(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error)
	SentFunc      func(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error)
	AcceptFunc    func(ctx context.Context, currentID, invitationID primitive.ObjectID) (*invitations.AcceptResult, error)
	RejectFunc    func(ctx context.Context, currentID, invitationID primitive.ObjectID) error
	CancelFunc    func(ctx context.Context, currentID, invitationID primitive.ObjectID) error
	ReconcileFunc func(ctx context.Context, currentID primitive.ObjectID) (int, error)
}

func (m *MockInvitations) Send(ctx context.Context, inviter *models.User, email string, role models.PartnerRole) (*invitations.SendResult, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, inviter, email, role)
	}
	return &invitations.SendResult{}, nil
}

func (m *MockInvitations) Received(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
	if m.ReceivedFunc != nil {
		return m.ReceivedFunc(ctx, currentID)
	}
	return nil, nil
}

func (m *MockInvitations) Sent(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
	if m.SentFunc != nil {
		return m.SentFunc(ctx, currentID)
	}
	return nil, nil
}

func (m *MockInvitations) Accept(ctx context.Context, currentID, invitationID primitive.ObjectID) (*invitations.AcceptResult, error) {
	if m.AcceptFunc != nil {
		return m.AcceptFunc(ctx, currentID, invitationID)
	}
	return &invitations.AcceptResult{}, nil
}

func (m *MockInvitations) Reject(ctx context.Context, currentID, invitationID primitive.ObjectID) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, currentID, invitationID)
	}
	return nil
}

func (m *MockInvitations) Cancel(ctx context.Context, currentID, invitationID primitive.ObjectID) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, currentID, invitationID)
	}
	return nil
}

func (m *MockInvitations) Reconcile(ctx context.Context, currentID primitive.ObjectID) (int, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, currentID)
	}
	return 0, nil
}

// withUser stands in for the session middleware.
func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetCurrentUser(c, user)
		c.Next()
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}
