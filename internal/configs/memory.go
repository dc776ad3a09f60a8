package configs

import (
	"context"
	"sync"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDB is a process-local Database used for local development and tests. It
// hands out copies, so callers never share state with the store.
type MemoryDB struct {
	mu           sync.RWMutex
	txMu         sync.Mutex
	users        map[primitive.ObjectID]*models.User
	transactions bool
	now          func() time.Time
}

// NewMemoryDB creates an empty store. With transactions set, WithTransaction
// restores the previous state when fn fails.
func NewMemoryDB(transactions bool) *MemoryDB {
	return &MemoryDB{
		users:        make(map[primitive.ObjectID]*models.User),
		transactions: transactions,
		now:          time.Now,
	}
}

func (db *MemoryDB) CreateUser(ctx context.Context, draft *models.User) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prepareDraft(draft, db.now())
	if existing := db.byEmail(draft.Email, false); existing != nil {
		if existing.Validated {
			return nil, apperr.ErrUserAlreadyExists
		}
		adoptPending(draft, existing)
	} else {
		draft.Id = primitive.NewObjectID()
	}
	db.users[draft.Id] = draft.Clone()
	return draft.Clone(), nil
}

func (db *MemoryDB) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.users[id]
	if !ok || u.Deleted {
		return nil, apperr.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (db *MemoryDB) FindUserByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u := db.byEmail(models.NormalizeEmail(email), includeDeleted)
	if u == nil {
		return nil, apperr.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (db *MemoryDB) FindUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if token == "" {
		return nil, apperr.ErrUserNotFound
	}
	for _, u := range db.users {
		if u.Deleted || u.ResetPasswordToken != token || u.ResetPasswordExpires == nil {
			continue
		}
		if u.ResetPasswordExpires.After(now) {
			return u.Clone(), nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (db *MemoryDB) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var users []*models.User
	for _, id := range ids {
		if u, ok := db.users[id]; ok && !u.Deleted {
			users = append(users, u.Clone())
		}
	}
	return users, nil
}

func (db *MemoryDB) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if err := checkProfilePatch(patch); err != nil {
		return nil, err
	}
	return db.update(id, patch)
}

func (db *MemoryDB) UpdateCredentials(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if patch.IsEmpty() {
		return nil, apperr.ErrEmptyUpdate
	}
	return db.update(id, patch)
}

func (db *MemoryDB) ConsumeVerificationAttempt(ctx context.Context, id primitive.ObjectID) (int, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok || u.Deleted || u.Validated || u.VerificationAttempts <= 0 {
		return 0, false, nil
	}
	u.VerificationAttempts--
	u.UpdatedAt = db.now()
	return u.VerificationAttempts, true, nil
}

func (db *MemoryDB) SoftDeleteUser(ctx context.Context, id primitive.ObjectID) error {
	return db.mutate(id, func(u *models.User) {
		now := db.now()
		u.Deleted = true
		u.DeletedAt = &now
		u.UpdatedAt = now
	})
}

func (db *MemoryDB) HardDeleteUser(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return apperr.ErrUserNotFound
	}
	delete(db.users, id)
	return nil
}

func (db *MemoryDB) PushInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, inv models.Invitation) error {
	return db.mutate(id, func(u *models.User) {
		if box == models.SentBox {
			u.SentInvitations = append(u.SentInvitations, inv)
		} else {
			u.ReceivedInvitations = append(u.ReceivedInvitations, inv)
		}
		u.UpdatedAt = db.now()
	})
}

func (db *MemoryDB) TransitionInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID primitive.ObjectID, status models.InvitationStatus) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return false, nil
	}
	list := u.Invitations(box)
	for i := range list {
		if list[i].Id == invitationID && list[i].Pending() {
			list[i].Status = status
			u.UpdatedAt = db.now()
			return true, nil
		}
	}
	return false, nil
}

func (db *MemoryDB) PullInvitation(ctx context.Context, id primitive.ObjectID, box models.InvitationBox, invitationID, counterpart primitive.ObjectID) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return false, nil
	}
	list := u.Invitations(box)
	kept := make([]models.Invitation, 0, len(list))
	for _, inv := range list {
		if inv.Id == invitationID && inv.Pending() && (counterpart.IsZero() || inv.InviterId == counterpart) {
			continue
		}
		kept = append(kept, inv)
	}
	if len(kept) == len(list) {
		return false, nil
	}
	if box == models.SentBox {
		u.SentInvitations = kept
	} else {
		u.ReceivedInvitations = kept
	}
	u.UpdatedAt = db.now()
	return true, nil
}

func (db *MemoryDB) SetCompany(ctx context.Context, id primitive.ObjectID, company *models.Company) error {
	return db.mutate(id, func(u *models.User) {
		u.Company = company.Clone()
		u.UpdatedAt = db.now()
	})
}

func (db *MemoryDB) AddPartner(ctx context.Context, id primitive.ObjectID, partner models.Partner) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok || u.Company.HasPartner(partner.UserID) {
		return false, nil
	}
	if u.Company == nil {
		u.Company = &models.Company{}
	}
	u.Company.Partners = append(u.Company.Partners, partner)
	u.UpdatedAt = db.now()
	return true, nil
}

func (db *MemoryDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !db.transactions {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snapshot := db.snapshot()
	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.users = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *MemoryDB) snapshot() map[primitive.ObjectID]*models.User {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[primitive.ObjectID]*models.User, len(db.users))
	for id, u := range db.users {
		out[id] = u.Clone()
	}
	return out
}

func (db *MemoryDB) byEmail(email string, includeDeleted bool) *models.User {
	for _, u := range db.users {
		if u.Email == email && (includeDeleted || !u.Deleted) {
			return u
		}
	}
	return nil
}

func (db *MemoryDB) update(id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	var out *models.User
	err := db.mutate(id, func(u *models.User) {
		patch.Apply(u, db.now())
		out = u.Clone()
	})
	return out, err
}

func (db *MemoryDB) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok || u.Deleted {
		return apperr.ErrUserNotFound
	}
	fn(u)
	return nil
}
