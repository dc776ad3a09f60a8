package invitations

import (
	"context"
	"errors"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/configs"
	"account-service/internal/metrics"
	"account-service/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Engine runs the invitation state machine. Every invitation lives twice, in the
// recipient's received list and in the inviter's sent list, so each transition is a
// pair of writes wrapped in Database.WithTransaction.
type Engine struct {
	db  configs.Database
	now func() time.Time
}

func NewEngine(db configs.Database) *Engine {
	return &Engine{db: db, now: time.Now}
}

// SendResult summarizes the invited user.
type SendResult struct {
	Invitation  models.Invitation `json:"invitation"`
	InvitedUser models.Summary    `json:"invitedUser"`
}

// AcceptResult carries the accepting user's company after the roster update.
type AcceptResult struct {
	Company *models.Company `json:"company"`
}

// Send invites the user registered under email into the inviter's company.
func (e *Engine) Send(ctx context.Context, inviter *models.User, email string, role models.PartnerRole) (result *SendResult, err error) {
	defer func() { metrics.Invitation("send", err) }()

	if !inviter.HasCompany() {
		return nil, apperr.ErrNoCompany
	}
	if role == "" {
		role = models.PartnerUser
	}

	invited, err := e.db.FindUserByEmail(ctx, email, false)
	if err != nil {
		return nil, err
	}
	if invited.Id == inviter.Id {
		return nil, apperr.ErrCannotInviteYourself
	}
	for _, inv := range invited.ReceivedInvitations {
		if inv.InviterId == inviter.Id && inv.Pending() {
			return nil, apperr.ErrInvitationAlreadySent
		}
	}
	if invited.Company.HasPartner(inviter.Id) {
		return nil, apperr.ErrAlreadyMember
	}

	received := models.Invitation{
		Id:           primitive.NewObjectID(),
		InviterId:    inviter.Id,
		InviterEmail: inviter.Email,
		CompanyId:    inviter.Company.Id,
		CompanyName:  inviter.Company.Name,
		Status:       models.InvitationPending,
		Role:         role,
		CreatedAt:    e.now(),
	}
	sent := received
	sent.InviterId = invited.Id

	err = e.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := e.db.PushInvitation(ctx, invited.Id, models.ReceivedBox, received); err != nil {
			return err
		}
		return e.db.PushInvitation(ctx, inviter.Id, models.SentBox, sent)
	})
	if err != nil {
		return nil, mirrorError("send", received.Id, err)
	}

	log.Info().Str("invitationId", received.Id.Hex()).Str("inviterId", inviter.Id.Hex()).
		Str("recipientId", invited.Id.Hex()).Msg("Invitation sent")
	return &SendResult{Invitation: received, InvitedUser: invited.Summary()}, nil
}

// Accept joins the current user and the inviter into each other's company roster.
func (e *Engine) Accept(ctx context.Context, currentID, invitationID primitive.ObjectID) (result *AcceptResult, err error) {
	defer func() { metrics.Invitation("accept", err) }()

	user, inv, err := e.pendingReceived(ctx, currentID, invitationID)
	if err != nil {
		return nil, err
	}
	inviter, err := e.db.FindUserByID(ctx, inv.InviterId)
	if err != nil && !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, err
	}
	if inviter == nil || inviter.Company == nil {
		return nil, apperr.ErrInviterOrCompanyNotFound
	}

	var company *models.Company
	err = e.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := e.transition(ctx, user.Id, inviter.Id, inv.Id, models.InvitationAccepted); err != nil {
			return err
		}

		joined := models.Partner{UserID: inviter.Id, Role: inv.Role}
		if user.Company == nil {
			company = inviter.Company.Clone()
			if !company.HasPartner(joined.UserID) {
				company.Partners = append(company.Partners, joined)
			}
			if err := e.db.SetCompany(ctx, user.Id, company); err != nil {
				return err
			}
		} else {
			if _, err := e.db.AddPartner(ctx, user.Id, joined); err != nil {
				return err
			}
			company = user.Company.Clone()
			if !company.HasPartner(joined.UserID) {
				company.Partners = append(company.Partners, joined)
			}
		}

		_, err := e.db.AddPartner(ctx, inviter.Id, models.Partner{UserID: user.Id, Role: models.PartnerUser})
		return err
	})
	if err != nil {
		return nil, mirrorError("accept", inv.Id, err)
	}

	log.Info().Str("invitationId", inv.Id.Hex()).Str("userId", user.Id.Hex()).
		Str("inviterId", inviter.Id.Hex()).Msg("Invitation accepted")
	return &AcceptResult{Company: company}, nil
}

// Reject closes a pending invitation without touching either company.
func (e *Engine) Reject(ctx context.Context, currentID, invitationID primitive.ObjectID) (err error) {
	defer func() { metrics.Invitation("reject", err) }()

	user, inv, err := e.pendingReceived(ctx, currentID, invitationID)
	if err != nil {
		return err
	}
	err = e.db.WithTransaction(ctx, func(ctx context.Context) error {
		return e.transition(ctx, user.Id, inv.InviterId, inv.Id, models.InvitationRejected)
	})
	if err != nil {
		return mirrorError("reject", inv.Id, err)
	}
	log.Info().Str("invitationId", inv.Id.Hex()).Str("userId", user.Id.Hex()).Msg("Invitation rejected")
	return nil
}

// Cancel withdraws a pending invitation the current user sent, removing both copies.
func (e *Engine) Cancel(ctx context.Context, currentID, invitationID primitive.ObjectID) (err error) {
	defer func() { metrics.Invitation("cancel", err) }()

	user, err := e.db.FindUserByID(ctx, currentID)
	if err != nil {
		return err
	}
	inv, ok := models.FindInvitation(user.SentInvitations, invitationID, models.InvitationPending)
	if !ok {
		return apperr.ErrInvitationNotFound
	}
	recipientID := inv.InviterId

	err = e.db.WithTransaction(ctx, func(ctx context.Context) error {
		pulled, err := e.db.PullInvitation(ctx, recipientID, models.ReceivedBox, inv.Id, user.Id)
		if err != nil {
			return err
		}
		if !pulled {
			log.Warn().Str("invitationId", inv.Id.Hex()).Str("recipientId", recipientID.Hex()).
				Msg("Recipient copy of cancelled invitation was already gone")
		}
		removed, err := e.db.PullInvitation(ctx, user.Id, models.SentBox, inv.Id, primitive.NilObjectID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.ErrInvitationNotFound
		}
		return nil
	})
	if err != nil {
		return mirrorError("cancel", inv.Id, err)
	}
	log.Info().Str("invitationId", inv.Id.Hex()).Str("userId", user.Id.Hex()).Msg("Invitation cancelled")
	return nil
}

// Received lists the invitations the user got, each with its inviter resolved.
func (e *Engine) Received(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
	return e.list(ctx, currentID, models.ReceivedBox)
}

// Sent lists the invitations the user issued, each with its recipient resolved.
func (e *Engine) Sent(ctx context.Context, currentID primitive.ObjectID) ([]models.InvitationView, error) {
	return e.list(ctx, currentID, models.SentBox)
}

// Reconcile repairs sent copies left pending by a half-applied transition. A
// terminal status on the recipient's copy is copied over; a sent copy whose
// recipient copy is gone is removed. It returns how many copies it changed.
func (e *Engine) Reconcile(ctx context.Context, currentID primitive.ObjectID) (repaired int, err error) {
	defer func() { metrics.Invitation("reconcile", err) }()

	user, err := e.db.FindUserByID(ctx, currentID)
	if err != nil {
		return 0, err
	}
	recipients, err := e.counterparts(ctx, user.SentInvitations)
	if err != nil {
		return 0, err
	}

	for _, sent := range user.SentInvitations {
		if !sent.Pending() {
			continue
		}
		recipient, ok := recipients[sent.InviterId]
		var changed bool
		if !ok {
			changed, err = e.db.PullInvitation(ctx, user.Id, models.SentBox, sent.Id, primitive.NilObjectID)
		} else if mirror, found := findByID(recipient.ReceivedInvitations, sent.Id); !found {
			changed, err = e.db.PullInvitation(ctx, user.Id, models.SentBox, sent.Id, primitive.NilObjectID)
		} else if !mirror.Pending() {
			changed, err = e.db.TransitionInvitation(ctx, user.Id, models.SentBox, sent.Id, mirror.Status)
		}
		if err != nil {
			return repaired, err
		}
		if changed {
			repaired++
			log.Info().Str("invitationId", sent.Id.Hex()).Str("userId", user.Id.Hex()).Msg("Repaired sent invitation")
		}
	}
	return repaired, nil
}

func (e *Engine) pendingReceived(ctx context.Context, currentID, invitationID primitive.ObjectID) (*models.User, models.Invitation, error) {
	user, err := e.db.FindUserByID(ctx, currentID)
	if err != nil {
		return nil, models.Invitation{}, err
	}
	inv, ok := models.FindInvitation(user.ReceivedInvitations, invitationID, models.InvitationPending)
	if !ok {
		return nil, models.Invitation{}, apperr.ErrInvitationNotFound
	}
	return user, inv, nil
}

// transition moves the recipient copy first. It only moves from pending, so when a
// concurrent request got there first nothing else is written.
func (e *Engine) transition(ctx context.Context, recipientID, inviterID, invitationID primitive.ObjectID, status models.InvitationStatus) error {
	moved, err := e.db.TransitionInvitation(ctx, recipientID, models.ReceivedBox, invitationID, status)
	if err != nil {
		return err
	}
	if !moved {
		return apperr.ErrInvitationNotFound
	}
	mirrored, err := e.db.TransitionInvitation(ctx, inviterID, models.SentBox, invitationID, status)
	if err != nil {
		return err
	}
	if !mirrored {
		log.Warn().Str("invitationId", invitationID.Hex()).Str("inviterId", inviterID.Hex()).
			Msg("Sent copy of invitation was not pending")
	}
	return nil
}

func (e *Engine) list(ctx context.Context, currentID primitive.ObjectID, box models.InvitationBox) ([]models.InvitationView, error) {
	user, err := e.db.FindUserByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	invitations := user.Invitations(box)
	users, err := e.counterparts(ctx, invitations)
	if err != nil {
		return nil, err
	}

	views := make([]models.InvitationView, 0, len(invitations))
	for _, inv := range invitations {
		view := models.InvitationView{Invitation: inv}
		if u, ok := users[inv.InviterId]; ok {
			summary := u.Summary()
			view.Counterpart = &summary
		}
		views = append(views, view)
	}
	return views, nil
}

func (e *Engine) counterparts(ctx context.Context, invitations []models.Invitation) (map[primitive.ObjectID]*models.User, error) {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, inv := range invitations {
		if !seen[inv.InviterId] {
			seen[inv.InviterId] = true
			ids = append(ids, inv.InviterId)
		}
	}
	users, err := e.db.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for _, u := range users {
		byID[u.Id] = u
	}
	return byID, nil
}

func findByID(list []models.Invitation, id primitive.ObjectID) (models.Invitation, bool) {
	for _, inv := range list {
		if inv.Id == id {
			return inv, true
		}
	}
	return models.Invitation{}, false
}

// mirrorError keeps the state machine's own errors and reports anything else as an
// upstream failure, since one of the two copies may already be written.
func mirrorError(op string, invitationID primitive.ObjectID, err error) error {
	e, ok := apperr.As(err)
	if ok && e.Kind != apperr.UpstreamFailure && e.Kind != apperr.Internal {
		return err
	}
	log.Error().Err(err).Str("op", op).Str("invitationId", invitationID.Hex()).
		Msg("Invitation write failed, copies may be out of sync")
	if ok && e.Kind == apperr.UpstreamFailure {
		return err
	}
	return apperr.Upstream(err)
}
