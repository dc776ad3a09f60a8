package configs

import (
	"context"
	"errors"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database is the user directory. Reads skip soft-deleted users unless told
// otherwise. Missing users are reported as apperr.ErrUserNotFound and store faults
// as apperr.ErrUpstream.
type Database interface {
	CreateUser(ctx context.Context, draft *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error)
	FindUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)

	// UpdateProfile is the generic update path and refuses protected fields.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	// UpdateCredentials backs the dedicated verify, forgot and reset operations.
	UpdateCredentials(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	// ConsumeVerificationAttempt spends one verification attempt of an unvalidated
	// user. It reports false when none is left.
	ConsumeVerificationAttempt(ctx context.Context, id primitive.ObjectID) (remaining int, ok bool, err error)
	SoftDeleteUser(ctx context.Context, id primitive.ObjectID) error
	HardDeleteUser(ctx context.Context, id primitive.ObjectID) error

	PushInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, inv models.Invitation) error
	// TransitionInvitation moves a pending entry to status and reports whether one moved.
	TransitionInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID primitive.ObjectID, status models.InvitationStatus) (bool, error)
	// PullInvitation removes a pending entry. A non-zero counterpart must also match inviterId.
	PullInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID, counterpart primitive.ObjectID) (bool, error)
	SetCompany(ctx context.Context, id primitive.ObjectID, company *models.Company) error
	// AddPartner appends partner unless the roster already holds its id.
	AddPartner(ctx context.Context, id primitive.ObjectID, partner models.Partner) (bool, error)

	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MongoDB implements the Database interface
type MongoDB struct {
	client         *mongo.Client
	userCollection *mongo.Collection
	transactions   bool
	now            func() time.Time
}

// NewMongoDB creates a new MongoDB instance. With transactions set, mirrored writes
// run inside a multi-document transaction, which needs a replica set.
func NewMongoDB(client *mongo.Client, database string, transactions bool) *MongoDB {
	return &MongoDB{
		client:         client,
		userCollection: GetCollection(client, database, "users"),
		transactions:   transactions,
		now:            time.Now,
	}
}

var notDeleted = bson.E{Key: "deleted", Value: bson.M{"$ne": true}}

// EnsureIndexes keeps emails unique among users that are not soft-deleted.
func (db *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := db.userCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique_active").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"deleted": false}),
	})
	return err
}

// CreateUser stores a new unvalidated user. An unvalidated user already owning the
// email is replaced in place.
func (db *MongoDB) CreateUser(ctx context.Context, draft *models.User) (*models.User, error) {
	now := db.now()
	prepareDraft(draft, now)

	existing, err := db.FindUserByEmail(ctx, draft.Email, false)
	switch {
	case err == nil && existing.Validated:
		return nil, apperr.ErrUserAlreadyExists
	case err == nil:
		adoptPending(draft, existing)
		res, err := db.userCollection.ReplaceOne(ctx, bson.M{"_id": existing.Id}, draft)
		if err != nil {
			return nil, storeError(err)
		}
		if res.MatchedCount == 0 {
			return nil, apperr.ErrUserNotFound
		}
		log.Info().Str("userId", draft.Id.Hex()).Msg("Replaced unvalidated registration")
		return draft, nil
	case !errors.Is(err, apperr.ErrUserNotFound):
		return nil, err
	}

	draft.Id = primitive.NewObjectID()
	if _, err := db.userCollection.InsertOne(ctx, draft); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.ErrUserAlreadyExists
		}
		return nil, storeError(err)
	}
	return draft, nil
}

func (db *MongoDB) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return db.findOne(ctx, bson.D{{Key: "_id", Value: id}, notDeleted})
}

func (db *MongoDB) FindUserByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	filter := bson.D{{Key: "email", Value: models.NormalizeEmail(email)}}
	if !includeDeleted {
		filter = append(filter, notDeleted)
	}
	return db.findOne(ctx, filter)
}

func (db *MongoDB) FindUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrUserNotFound
	}
	return db.findOne(ctx, bson.D{
		{Key: "resetPasswordToken", Value: token},
		{Key: "resetPasswordExpires", Value: bson.M{"$gt": now}},
		notDeleted,
	})
}

func (db *MongoDB) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.D{{Key: "_id", Value: bson.M{"$in": ids}}, notDeleted}
	cursor, err := db.userCollection.Find(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, storeError(err)
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

func (db *MongoDB) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if err := checkProfilePatch(patch); err != nil {
		return nil, err
	}
	return db.update(ctx, id, patch)
}

func (db *MongoDB) UpdateCredentials(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if patch.IsEmpty() {
		return nil, apperr.ErrEmptyUpdate
	}
	return db.update(ctx, id, patch)
}

func (db *MongoDB) ConsumeVerificationAttempt(ctx context.Context, id primitive.ObjectID) (int, bool, error) {
	filter, update := consumeAttemptQuery(id, db.now())
	var user models.User
	err := db.userCollection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeError(err)
	}
	return user.VerificationAttempts, true, nil
}

// consumeAttemptQuery checks the budget and decrements it in one document update.
func consumeAttemptQuery(id primitive.ObjectID, now time.Time) (bson.D, bson.M) {
	filter := bson.D{
		{Key: "_id", Value: id},
		notDeleted,
		{Key: "validated", Value: false},
		{Key: "verificationAttempts", Value: bson.M{"$gt": 0}},
	}
	update := bson.M{
		"$inc": bson.M{"verificationAttempts": -1},
		"$set": bson.M{"updatedAt": now},
	}
	return filter, update
}

func (db *MongoDB) SoftDeleteUser(ctx context.Context, id primitive.ObjectID) error {
	now := db.now()
	res, err := db.userCollection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, notDeleted},
		bson.M{"$set": bson.M{"deleted": true, "deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (db *MongoDB) HardDeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.userCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeError(err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (db *MongoDB) PushInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, inv models.Invitation) error {
	res, err := db.userCollection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, notDeleted},
		bson.M{
			"$push": bson.M{string(box): inv},
			"$set":  bson.M{"updatedAt": db.now()},
		},
	)
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (db *MongoDB) TransitionInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID primitive.ObjectID, status models.InvitationStatus) (bool, error) {
	filter := bson.M{
		"_id": id,
		string(box): bson.M{"$elemMatch": bson.M{
			"_id":    invitationID,
			"status": models.InvitationPending,
		}},
	}
	update := bson.M{"$set": bson.M{
		string(box) + ".$.status": status,
		"updatedAt":               db.now(),
	}}
	res, err := db.userCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, storeError(err)
	}
	return res.ModifiedCount > 0, nil
}

func (db *MongoDB) PullInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID, counterpart primitive.ObjectID) (bool, error) {
	filter, update := pullInvitationQuery(id, box, invitationID, counterpart, db.now())
	res, err := db.userCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, storeError(err)
	}
	return res.ModifiedCount > 0, nil
}

// pullInvitationQuery only matches a user still holding the entry, so the
// modified count tells whether it was removed.
func pullInvitationQuery(id primitive.ObjectID, box models.InvitationBox, invitationID, counterpart primitive.ObjectID, now time.Time) (bson.M, bson.M) {
	match := bson.M{"_id": invitationID, "status": models.InvitationPending}
	if !counterpart.IsZero() {
		match["inviterId"] = counterpart
	}
	filter := bson.M{
		"_id":       id,
		string(box): bson.M{"$elemMatch": match},
	}
	update := bson.M{
		"$pull": bson.M{string(box): match},
		"$set":  bson.M{"updatedAt": now},
	}
	return filter, update
}

func (db *MongoDB) SetCompany(ctx context.Context, id primitive.ObjectID, company *models.Company) error {
	res, err := db.userCollection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, notDeleted},
		bson.M{"$set": bson.M{"company": company.Clone(), "updatedAt": db.now()}},
	)
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (db *MongoDB) AddPartner(ctx context.Context, id primitive.ObjectID, partner models.Partner) (bool, error) {
	res, err := db.userCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company.partners._id": bson.M{"$ne": partner.UserID}},
		bson.M{
			"$push": bson.M{"company.partners": partner},
			"$set":  bson.M{"updatedAt": db.now()},
		},
	)
	if err != nil {
		return false, storeError(err)
	}
	return res.ModifiedCount > 0, nil
}

func (db *MongoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !db.transactions {
		return fn(ctx)
	}
	session, err := db.client.StartSession()
	if err != nil {
		return apperr.Upstream(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return err
		}
		return apperr.Upstream(err)
	}
	return nil
}

func (db *MongoDB) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	var user models.User
	if err := db.userCollection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, storeError(err)
	}
	return &user, nil
}

func (db *MongoDB) update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := db.userCollection.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, notDeleted},
		patch.Document(db.now()),
		opts,
	).Decode(&user)
	if err != nil {
		return nil, storeError(err)
	}
	return &user, nil
}

func storeError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrUserNotFound
	}
	log.Error().Err(err).Msg("User directory operation failed")
	return apperr.Upstream(err)
}

func checkProfilePatch(patch models.UserPatch) error {
	if fields := patch.ProtectedFields(); len(fields) > 0 {
		return apperr.ErrProtectedField.Wrap(errors.New("cannot update " + fields[0] + " through profile update"))
	}
	if patch.IsEmpty() {
		return apperr.ErrEmptyUpdate
	}
	return nil
}

// prepareDraft fills the defaults every new user starts with.
func prepareDraft(draft *models.User, now time.Time) {
	draft.Email = models.NormalizeEmail(draft.Email)
	if draft.Role == "" {
		draft.Role = models.RoleUser
	}
	if draft.VerificationAttempts == 0 {
		draft.VerificationAttempts = models.DefaultVerificationAttempts
	}
	if draft.ReceivedInvitations == nil {
		draft.ReceivedInvitations = []models.Invitation{}
	}
	if draft.SentInvitations == nil {
		draft.SentInvitations = []models.Invitation{}
	}
	draft.Validated = false
	draft.Deleted = false
	draft.CreatedAt = now
	draft.UpdatedAt = now
}

// adoptPending keeps identity and invitation history of the unvalidated user a new
// registration replaces.
func adoptPending(draft, existing *models.User) {
	draft.Id = existing.Id
	draft.CreatedAt = existing.CreatedAt
	draft.Company = existing.Company
	draft.ProfilePicture = existing.ProfilePicture
	draft.ReceivedInvitations = existing.ReceivedInvitations
	draft.SentInvitations = existing.SentInvitations
	if draft.ReceivedInvitations == nil {
		draft.ReceivedInvitations = []models.Invitation{}
	}
	if draft.SentInvitations == nil {
		draft.SentInvitations = []models.Invitation{}
	}
}
