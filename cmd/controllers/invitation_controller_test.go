package controllers

import (
	"context"
	"net/http"
	"testing"

	"account-service/internal/apperr"
	"account-service/internal/invitations"
	"account-service/internal/models"
	requests "account-service/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSendInvitation(t *testing.T) {
	router := gin.New()
	inviter := sampleUser()
	inviter.Company = &models.Company{Id: primitive.NewObjectID(), Name: "Acme"}
	invited := models.Summary{Id: primitive.NewObjectID(), Email: "bea@acme.test", Name: "Bea Gil"}

	Invitations = &MockInvitations{
		SendFunc: func(ctx context.Context, u *models.User, email string, role models.PartnerRole) (*invitations.SendResult, error) {
			assert.Equal(t, inviter.Id, u.Id)
			assert.Equal(t, "bea@acme.test", email)
			assert.Equal(t, models.PartnerAdmin, role)
			return &invitations.SendResult{InvitedUser: invited}, nil
		},
	}
	router.POST("/api/invitations", withUser(inviter), SendInvitation())

	resp := performJSON(router, http.MethodPost, "/api/invitations", requests.SendInvitationRequest{Email: "bea@acme.test", Role: "admin"})

	assert.Equal(t, http.StatusCreated, resp.Code)
	invitedData := decodeSuccess(t, resp).Data["invitedUser"].(map[string]interface{})
	assert.Equal(t, invited.Id.Hex(), invitedData["_id"])
	assert.Equal(t, "Bea Gil", invitedData["name"])
}

func TestSendInvitationRejectsUnknownRole(t *testing.T) {
	router := gin.New()
	Invitations = &MockInvitations{}
	router.POST("/api/invitations", withUser(sampleUser()), SendInvitation())

	resp := performJSON(router, http.MethodPost, "/api/invitations", requests.SendInvitationRequest{Email: "bea@acme.test", Role: "owner"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendInvitationErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrNoCompany, http.StatusBadRequest},
		{apperr.ErrUserNotFound, http.StatusNotFound},
		{apperr.ErrInvitationAlreadySent, http.StatusConflict},
		{apperr.ErrAlreadyMember, http.StatusConflict},
	}
	for _, tc := range cases {
		router := gin.New()
		Invitations = &MockInvitations{
			SendFunc: func(ctx context.Context, u *models.User, email string, role models.PartnerRole) (*invitations.SendResult, error) {
				return nil, tc.err
			},
		}
		router.POST("/api/invitations", withUser(sampleUser()), SendInvitation())

		resp := performJSON(router, http.MethodPost, "/api/invitations", requests.SendInvitationRequest{Email: "bea@acme.test"})
		assert.Equal(t, tc.status, resp.Code)
		assert.Equal(t, tc.err.(*apperr.Error).Code, decodeError(t, resp).Message)
	}
}

func TestListInvitations(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	inv := models.Invitation{Id: primitive.NewObjectID(), Status: models.InvitationPending, Role: models.PartnerUser}
	counterpart := models.Summary{Id: primitive.NewObjectID(), Email: "owner@acme.test"}

	Invitations = &MockInvitations{
		ReceivedFunc: func(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
			assert.Equal(t, user.Id, currentID)
			return []models.InvitationView{{Invitation: inv, Counterpart: &counterpart}}, nil
		},
		SentFunc: func(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
			return []models.InvitationView{}, nil
		},
	}
	router.GET("/api/invitations/received", withUser(user), ReceivedInvitations())
	router.GET("/api/invitations/sent", withUser(user), SentInvitations())

	resp := performJSON(router, http.MethodGet, "/api/invitations/received", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	list := decodeSuccess(t, resp).Data["invitations"].([]interface{})
	assert.Len(t, list, 1)
	entry := list[0].(map[string]interface{})
	assert.Equal(t, inv.Id.Hex(), entry["_id"])
	assert.Equal(t, "pending", entry["status"])
	assert.Equal(t, "owner@acme.test", entry["counterpart"].(map[string]interface{})["email"])

	resp = performJSON(router, http.MethodGet, "/api/invitations/sent", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeSuccess(t, resp).Data["invitations"])
}

func TestAcceptInvitation(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	invitationID := primitive.NewObjectID()
	company := &models.Company{Id: primitive.NewObjectID(), Name: "Acme", Partners: []models.Partner{{UserID: primitive.NewObjectID(), Role: models.PartnerUser}}}

	Invitations = &MockInvitations{
		AcceptFunc: func(ctx context.Context, currentID, id primitive.ObjectID) (*invitations.AcceptResult, error) {
			assert.Equal(t, user.Id, currentID)
			if id != invitationID {
				return nil, apperr.ErrInvitationNotFound
			}
			return &invitations.AcceptResult{Company: company}, nil
		},
	}
	router.POST("/api/invitations/:invitationId/accept", withUser(user), AcceptInvitation())

	resp := performJSON(router, http.MethodPost, "/api/invitations/"+invitationID.Hex()+"/accept", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	companyData := decodeSuccess(t, resp).Data["company"].(map[string]interface{})
	assert.Equal(t, "Acme", companyData["name"])
	assert.Len(t, companyData["partners"], 1)

	resp = performJSON(router, http.MethodPost, "/api/invitations/"+primitive.NewObjectID().Hex()+"/accept", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "INVITATION_NOT_FOUND_OR_ALREADY_PROCESSED", decodeError(t, resp).Message)
}

func TestInvitationIDMustBeObjectID(t *testing.T) {
	router := gin.New()
	Invitations = &MockInvitations{
		RejectFunc: func(ctx context.Context, currentID, id primitive.ObjectID) error {
			t.Fatal("reject must not be called with a malformed id")
			return nil
		},
	}
	router.POST("/api/invitations/:invitationId/reject", withUser(sampleUser()), RejectInvitation())

	resp := performJSON(router, http.MethodPost, "/api/invitations/not-an-id/reject", nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_INVITATION_ID", decodeError(t, resp).Message)
}

func TestRejectAndCancelInvitation(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	var calls []string
	Invitations = &MockInvitations{
		RejectFunc: func(ctx context.Context, currentID, id primitive.ObjectID) error {
			calls = append(calls, "reject")
			return nil
		},
		CancelFunc: func(ctx context.Context, currentID, id primitive.ObjectID) error {
			calls = append(calls, "cancel")
			return apperr.ErrInvitationNotFound
		},
	}
	router.POST("/api/invitations/:invitationId/reject", withUser(user), RejectInvitation())
	router.DELETE("/api/invitations/:invitationId", withUser(user), CancelInvitation())

	id := primitive.NewObjectID().Hex()
	assert.Equal(t, http.StatusOK, performJSON(router, http.MethodPost, "/api/invitations/"+id+"/reject", nil).Code)
	assert.Equal(t, http.StatusNotFound, performJSON(router, http.MethodDelete, "/api/invitations/"+id, nil).Code)
	assert.Equal(t, []string{"reject", "cancel"}, calls)
}

func TestReconcileInvitations(t *testing.T) {
	router := gin.New()
	Invitations = &MockInvitations{
		ReconcileFunc: func(ctx context.Context, currentID primitive.ObjectID) (int, error) {
			return 2, nil
		},
	}
	router.POST("/api/invitations/reconcile", withUser(sampleUser()), ReconcileInvitations())

	resp := performJSON(router, http.MethodPost, "/api/invitations/reconcile", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(2), decodeSuccess(t, resp).Data["repaired"])
}
