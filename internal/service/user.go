package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

const passwordRules = "required,min=8,max=72"

type UserService struct {
	users    storage.UserRepository
	refresh  storage.RefreshTokenStore
	sessions *SessionService
	tokens   *TokenService
	hasher   *PasswordHasher
	notifier ConfirmationNotifier
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewUserService(
	users storage.UserRepository,
	refresh storage.RefreshTokenStore,
	sessions *SessionService,
	tokens *TokenService,
	hasher *PasswordHasher,
	notifier ConfirmationNotifier,
	log *zap.SugaredLogger,
) *UserService {
	return &UserService{
		users:    users,
		refresh:  refresh,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Register creates an unconfirmed customer and sends the confirmation token.
func (s *UserService) Register(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	switch {
	case req.Role != nil:
		return nil, fmt.Errorf("%w: role", ErrForbiddenField)
	case req.Confirmed != nil:
		return nil, fmt.Errorf("%w: confirmed", ErrForbiddenField)
	case req.AuthProvider != nil:
		return nil, fmt.Errorf("%w: auth_provider", ErrForbiddenField)
	case req.CreatedAt != nil:
		return nil, fmt.Errorf("%w: created_at", ErrForbiddenField)
	}

	if err := s.validate.Var(req.Password, passwordRules); err != nil {
		return nil, validationError("password", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Role:         models.RoleCustomer,
		Phone:        req.Phone,
		Addresses:    req.Addresses,
		AuthProvider: models.AuthProviderEmail,
	}
	if err := s.validate.Struct(user); err != nil {
		return nil, validationError("user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Infow("User registered", "userID", created.ID)
	if err := s.sendConfirmation(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *UserService) GetUser(ctx context.Context, caller *models.Claims, id string) (*models.User, error) {
	if err := authorizeSelfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	return s.getUser(ctx, id)
}

func (s *UserService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, caller *models.Claims, page, perPage int) ([]models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}
	if perPage < 1 || perPage > models.MaxPerPage {
		return nil, fmt.Errorf("%w: per-page must be between 1 and %d", ErrValidation, models.MaxPerPage)
	}

	users, err := s.users.ListUsers(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a partial update. Email and the account bookkeeping fields are
// immutable here; only an admin may change a role.
func (s *UserService) UpdateUser(ctx context.Context, caller *models.Claims, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := authorizeSelfOrAdmin(caller, id); err != nil {
		return nil, err
	}

	switch {
	case req.Email != nil:
		return nil, fmt.Errorf("%w: email", ErrForbiddenField)
	case req.Confirmed != nil:
		return nil, fmt.Errorf("%w: confirmed", ErrForbiddenField)
	case req.AuthProvider != nil:
		return nil, fmt.Errorf("%w: auth_provider", ErrForbiddenField)
	case req.CreatedAt != nil:
		return nil, fmt.Errorf("%w: created_at", ErrForbiddenField)
	case req.Role != nil && caller.Role != models.RoleAdmin:
		return nil, fmt.Errorf("%w: role", ErrForbiddenField)
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Addresses != nil {
		user.Addresses = *req.Addresses
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if err := s.validate.Struct(user); err != nil {
		return nil, validationError("user", err)
	}

	if req.Password != nil {
		if err := s.validate.Var(*req.Password, passwordRules); err != nil {
			return nil, validationError("password", err)
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// DeleteUser removes the account and its refresh record and revokes the account's current
// session. When users delete themselves the access token they used is revoked as well.
func (s *UserService) DeleteUser(ctx context.Context, caller *models.Claims, id string) error {
	if err := authorizeSelfOrAdmin(caller, id); err != nil {
		return err
	}

	// Read before the delete: some backends drop the record together with the user.
	var sessionID string
	record, err := s.refresh.GetRefreshToken(ctx, id)
	switch {
	case err == nil:
		sessionID = record.JTI
	case !errors.Is(err, storage.ErrNotFound):
		s.log.Warnw("Failed to read refresh token of user being deleted", "userID", id, "error", err)
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.refresh.DeleteRefreshToken(ctx, id); err != nil {
		s.log.Warnw("Failed to delete refresh token of deleted user", "userID", id, "error", err)
	}
	if caller.UserID == id {
		if err := s.sessions.RevokeAccessToken(ctx, caller); err != nil {
			s.log.Warnw("Failed to revoke token of deleted user", "userID", id, "jti", caller.JTI, "error", err)
		}
		if err := s.sessions.RevokeSession(ctx, caller.SessionID); err != nil {
			s.log.Warnw("Failed to revoke session of deleted user", "userID", id, "error", err)
		}
	}
	if sessionID != "" && sessionID != caller.SessionID {
		if err := s.sessions.RevokeSession(ctx, sessionID); err != nil {
			s.log.Warnw("Failed to revoke session of deleted user", "userID", id, "error", err)
		}
	}

	s.log.Infow("User deleted", "userID", id, "by", caller.UserID)
	return nil
}

func (s *UserService) ConfirmEmail(ctx context.Context, raw string) error {
	claims, err := s.tokens.ParseToken(raw, models.TokenTypeConfirm)
	if err != nil {
		return err
	}

	if err := s.users.SetUserConfirmed(ctx, claims.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("confirm user: %w", err)
	}

	s.log.Infow("Email confirmed", "userID", claims.UserID)
	return nil
}

// ResendConfirmation answers the same way whether or not the email belongs to an
// unconfirmed account.
func (s *UserService) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.Confirmed {
		return nil
	}
	return s.sendConfirmation(ctx, user)
}

func (s *UserService) sendConfirmation(ctx context.Context, user *models.User) error {
	tok, err := s.tokens.IssueEmailConfirmationToken(user)
	if err != nil {
		return fmt.Errorf("issue confirmation token: %w", err)
	}
	s.notifier.NotifyConfirmation(ctx, models.ConfirmationMessage{
		UserID: user.ID,
		Email:  user.Email,
		Token:  tok.Token,
	})
	return nil
}

func authorizeSelfOrAdmin(caller *models.Claims, id string) error {
	if caller.UserID == id || caller.Role == models.RoleAdmin {
		return nil
	}
	return ErrNotAuthorized
}

func validationError(subject string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			field := fe.Field()
			if field == "" {
				field = subject
			}
			fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(field), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %s: %w", ErrValidation, subject, err)
}
