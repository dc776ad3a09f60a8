package controllers

import (
	"net/http"

	"account-service/cmd/middleware"
	"account-service/cmd/responses"
	"account-service/internal/apperr"
	internal "account-service/internal/models"
	"account-service/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInvalidInvitationID = apperr.New(apperr.ValidationFailed, "INVALID_INVITATION_ID")

func invitationID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("invitationId"))
	if err != nil {
		responses.HandleHttpError(c, errInvalidInvitationID.Wrap(err), "INVALID_INVITATION_ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func SendInvitation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_SENDING_INVITATION")
			return
		}
		var req models.SendInvitationRequest
		if !bind(c, &req) {
			return
		}

		result, err := Invitations.Send(ctx, current, req.Email, internal.PartnerRole(req.Role))
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_SENDING_INVITATION")
			return
		}

		c.JSON(http.StatusCreated, responses.UserResponse{Status: http.StatusCreated, Message: "Invitation sent", Data: map[string]interface{}{"invitedUser": result.InvitedUser, "invitation": result.Invitation}})
	}
}

func ReceivedInvitations() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_GETTING_INVITATIONS")
			return
		}
		views, err := Invitations.Received(ctx, current.Id)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_GETTING_INVITATIONS")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"invitations": views}})
	}
}

func SentInvitations() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_GETTING_SENT_INVITATIONS")
			return
		}
		views, err := Invitations.Sent(ctx, current.Id)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_GETTING_SENT_INVITATIONS")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"invitations": views}})
	}
}

func AcceptInvitation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_ACCEPTING_INVITATION")
			return
		}
		id, ok := invitationID(c)
		if !ok {
			return
		}

		result, err := Invitations.Accept(ctx, current.Id, id)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_ACCEPTING_INVITATION")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Invitation accepted", Data: map[string]interface{}{"company": result.Company}})
	}
}

func RejectInvitation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_REJECTING_INVITATION")
			return
		}
		id, ok := invitationID(c)
		if !ok {
			return
		}
		if err := Invitations.Reject(ctx, current.Id, id); err != nil {
			responses.HandleHttpError(c, err, "ERROR_REJECTING_INVITATION")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Invitation rejected"})
	}
}

func CancelInvitation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_CANCELLING_INVITATION")
			return
		}
		id, ok := invitationID(c)
		if !ok {
			return
		}
		if err := Invitations.Cancel(ctx, current.Id, id); err != nil {
			responses.HandleHttpError(c, err, "ERROR_CANCELLING_INVITATION")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Invitation cancelled"})
	}
}

func ReconcileInvitations() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_RECONCILING_INVITATIONS")
			return
		}
		repaired, err := Invitations.Reconcile(ctx, current.Id)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_RECONCILING_INVITATIONS")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"repaired": repaired}})
	}
}
