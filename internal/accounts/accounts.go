package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/auth"
	"account-service/internal/configs"
	"account-service/internal/metrics"
	"account-service/internal/models"
	"account-service/internal/storage"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultResetTTL is how long a password reset token stays usable.
const DefaultResetTTL = time.Hour

const maxResetTokenTries = 5

// Service implements the account lifecycle on top of the user directory.
type Service struct {
	db           configs.Database
	hasher       *auth.PasswordHasher
	tokens       *auth.TokenService
	blobs        storage.BlobStore
	assetBaseURL string
	resetTTL     time.Duration
	now          func() time.Time
	codes        func() (string, error)
}

type Option func(*Service)

// WithClock sets the time source used for reset token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator replaces the source of verification codes and reset tokens.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.codes = gen }
}

func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewService builds the account service. assetBaseURL prefixes the content address
// returned by blobs to form the public profile picture URL.
func NewService(db configs.Database, hasher *auth.PasswordHasher, tokens *auth.TokenService, blobs storage.BlobStore, assetBaseURL string, opts ...Option) *Service {
	s := &Service{
		db:           db,
		hasher:       hasher,
		tokens:       tokens,
		blobs:        blobs,
		assetBaseURL: strings.TrimRight(assetBaseURL, "/"),
		resetTTL:     DefaultResetTTL,
		now:          time.Now,
		codes:        auth.GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an unvalidated user with a fresh verification code and returns a
// session for it.
func (s *Service) Register(ctx context.Context, reg Registration) (session *Session, err error) {
	defer func() { metrics.Account("register", err) }()

	digest, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	code, err := s.codes()
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}

	user, err := s.db.CreateUser(ctx, &models.User{
		FirstName:            strings.TrimSpace(reg.FirstName),
		LastName:             strings.TrimSpace(reg.LastName),
		Email:                reg.Email,
		Password:             digest,
		Role:                 models.RoleUser,
		VerificationCode:     code,
		VerificationAttempts: models.DefaultVerificationAttempts,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("userId", user.Id.Hex()).Msg("User registered")
	return s.session(user)
}

// VerifyEmail validates the account when code matches. Every check spends one
// attempt up front; with none left the account stays locked until it registers again.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (err error) {
	defer func() { metrics.Account("verify_email", err) }()

	user, err := s.db.FindUserByEmail(ctx, email, false)
	if err != nil {
		return err
	}
	if user.Validated {
		return apperr.ErrAlreadyVerified
	}
	remaining, ok, err := s.db.ConsumeVerificationAttempt(ctx, user.Id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrVerificationLocked
	}

	if user.VerificationCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(user.VerificationCode)) != 1 {
		log.Warn().Str("userId", user.Id.Hex()).Int("remaining", remaining).Msg("Invalid verification code")
		if remaining <= 0 {
			return apperr.ErrVerificationLocked
		}
		return apperr.ErrInvalidVerificationCode
	}

	validated, cleared := true, ""
	_, err = s.db.UpdateCredentials(ctx, user.Id, models.UserPatch{
		Validated:        &validated,
		VerificationCode: &cleared,
	})
	return err
}

// Login checks credentials of a validated account and returns a session.
func (s *Service) Login(ctx context.Context, email, password string) (session *Session, err error) {
	defer func() { metrics.Account("login", err) }()

	user, err := s.db.FindUserByEmail(ctx, email, false)
	if err != nil {
		return nil, err
	}
	if !user.Validated {
		return nil, apperr.ErrEmailNotVerified
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, apperr.ErrInvalidPassword
	}
	return s.session(user)
}

// ForgotPassword stores a reset token valid for the reset TTL and returns it. A
// token still live on another account is never handed out twice.
func (s *Service) ForgotPassword(ctx context.Context, email string) (token string, err error) {
	defer func() { metrics.Account("forgot_password", err) }()

	user, err := s.db.FindUserByEmail(ctx, email, false)
	if err != nil {
		return "", err
	}
	token, err = s.uniqueResetToken(ctx)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(s.resetTTL)
	if _, err := s.db.UpdateCredentials(ctx, user.Id, models.UserPatch{
		ResetPasswordToken:   &token,
		ResetPasswordExpires: &expires,
	}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) uniqueResetToken(ctx context.Context) (string, error) {
	for i := 0; i < maxResetTokenTries; i++ {
		token, err := s.codes()
		if err != nil {
			return "", apperr.ErrInternal.Wrap(err)
		}
		_, err = s.db.FindUserByResetToken(ctx, token, s.now())
		if errors.Is(err, apperr.ErrUserNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", apperr.ErrInternal.Wrap(errors.New("no free reset token"))
}

// ResetPassword replaces the password of the user holding an unexpired token and
// consumes the token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { metrics.Account("reset_password", err) }()

	user, err := s.db.FindUserByResetToken(ctx, token, s.now())
	if errors.Is(err, apperr.ErrUserNotFound) {
		return apperr.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return err
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.ErrInternal.Wrap(err)
	}
	cleared := ""
	_, err = s.db.UpdateCredentials(ctx, user.Id, models.UserPatch{
		Password:           &digest,
		ResetPasswordToken: &cleared,
	})
	return err
}

func (s *Service) CurrentUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.db.FindUserByID(ctx, id)
}

// UpdateProfile applies a profile patch. A company keeps its id and roster: partners
// only change through invitations.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (user *models.User, err error) {
	defer func() { metrics.Account("update_profile", err) }()

	if patch.Company != nil && len(patch.ProtectedFields()) == 0 {
		current, err := s.db.FindUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		company := patch.Company.Clone()
		if current.Company != nil && !current.Company.Id.IsZero() {
			company.Id = current.Company.Id
		} else {
			company.Id = primitive.NewObjectID()
		}
		company.Partners = nil
		if current.Company != nil {
			company.Partners = current.Company.Partners
		}
		patch.Company = company.Clone()
	}

	return s.db.UpdateProfile(ctx, id, patch)
}

// DeleteAccount soft-deletes by default; hard deletion removes the document.
func (s *Service) DeleteAccount(ctx context.Context, id primitive.ObjectID, soft bool) (err error) {
	defer func() { metrics.Account("delete_account", err) }()

	if soft {
		err = s.db.SoftDeleteUser(ctx, id)
	} else {
		err = s.db.HardDeleteUser(ctx, id)
	}
	if err == nil {
		log.Info().Str("userId", id.Hex()).Bool("soft", soft).Msg("User deleted")
	}
	return err
}

// UploadLogo stores the image and points the user's profile picture at it.
func (s *Service) UploadLogo(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (url string, err error) {
	defer func() { metrics.Account("upload_logo", err) }()

	if len(data) == 0 {
		return "", apperr.ErrNoFile
	}
	address, err := s.blobs.Store(ctx, data, filename)
	if err != nil {
		log.Error().Err(err).Str("userId", id.Hex()).Msg("Error storing profile picture")
		return "", apperr.Upstream(err)
	}

	url = s.assetBaseURL + "/" + address
	user, err := s.db.UpdateProfile(ctx, id, models.UserPatch{ProfilePicture: &url})
	if err != nil {
		return "", err
	}
	return user.ProfilePicture, nil
}

// Authenticate resolves a bearer token to the live user it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperr.ErrInvalidToken.Wrap(err)
	}
	user, err := s.db.FindUserByID(ctx, id)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return nil, apperr.ErrNoSession
	}
	return user, err
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return &Session{Token: token, User: user}, nil
}
