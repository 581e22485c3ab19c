package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskhub/apperrors"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	users    UserRepository
	hasher   *utils.PasswordHasher
	tokens   *utils.TokenIssuer
	mailer   utils.Mailer
	resetTTL time.Duration
	now      func() time.Time

	adminSignup bool
}

func NewUserService(users UserRepository, hasher *utils.PasswordHasher, tokens *utils.TokenIssuer, mailer utils.Mailer, resetTTL time.Duration) *UserService {
	if mailer == nil {
		mailer = utils.LogMailer{}
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &UserService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: resetTTL,
		now:      time.Now,

		adminSignup: true,
	}
}

func (s *UserService) GetUsers(ctx context.Context) ([]models.User, error) {
	const op = "Failed to fetch users"

	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if len(users) == 0 {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrNotFound, "No users found"))
	}
	return users, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "Failed to fetch user"

	oid, err := parseID(id, "Invalid user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	user, err := s.findUser(ctx, oid, id)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return user, nil
}

// SetAdminSignup controls whether callers that are not admins may create admin accounts.
func (s *UserService) SetAdminSignup(allowed bool) {
	s.adminSignup = allowed
}

// RegisterUser is CreateUser on behalf of a possibly anonymous caller. With
// admin signup disabled only an admin may create another admin.
func (s *UserService) RegisterUser(ctx context.Context, caller *models.Identity, name, email, password, role string) (*models.User, error) {
	if role == models.RoleAdmin && !s.adminSignup {
		if err := CheckAuth(caller, AdminRoles, AuthMessages{Authorization: "Unauthorized: Only admin can create admin accounts"}); err != nil {
			return nil, err
		}
	}
	return s.CreateUser(ctx, name, email, password, role)
}

// CreateUser registers an account. An empty role means models.RoleUser.
func (s *UserService) CreateUser(ctx context.Context, name, email, password, role string) (*models.User, error) {
	const op = "Failed to create user"

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Name, email, and password are required"))
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Invalid email format"))
	}
	if err := checkPasswordLength(password); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Role must be either 'user' or 'admin'"))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrConflict, "User with this email already exists"))
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.Wrap(op, err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     role,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrConflict, "User with this email already exists"))
		}
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: USER_CREATED, Description: User %s registered with role %s", user.ID.Hex(), user.Role)
	return user, nil
}

// UpdateUser replaces name and email. A nil or empty password keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, id, name, email string, password *string) (*models.User, error) {
	const op = "Failed to update user"

	oid, err := parseID(id, "Invalid user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if _, err := s.findUser(ctx, oid, id); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Name is required"))
	}
	if email == "" {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Email is required"))
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Invalid email format"))
	}

	owner, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && owner.ID != oid:
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrConflict, "Email is already in use by another user"))
	case err != nil && !errors.Is(err, mongo.ErrNoDocuments):
		return nil, apperrors.Wrap(op, err)
	}

	update := models.UserUpdate{Name: name, Email: email}
	if password != nil && *password != "" {
		if err := checkPasswordLength(*password); err != nil {
			return nil, apperrors.Wrap(op, err)
		}
		if update.Password, err = s.hashPassword(*password); err != nil {
			return nil, apperrors.Wrap(op, err)
		}
	}

	user, err := s.users.Update(ctx, oid, update)
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			err = apperrors.New(apperrors.ErrConflict, "Email is already in use by another user")
		case errors.Is(err, mongo.ErrNoDocuments):
			err = apperrors.Newf(apperrors.ErrNotFound, "User with ID %s not found", id)
		}
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: USER_UPDATED, Description: User %s updated", id)
	return user, nil
}

// DeleteUser removes the user and returns the record as it was stored.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	const op = "Failed to delete user"

	oid, err := parseID(id, "Invalid user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	user, err := s.findUser(ctx, oid, id)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if err := s.users.Delete(ctx, oid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = apperrors.Newf(apperrors.ErrNotFound, "User with ID %s not found", id)
		}
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted", id)
	return user, nil
}

// DeleteAllUsers empties the user collection and returns how many records went.
func (s *UserService) DeleteAllUsers(ctx context.Context) (int64, error) {
	const op = "Failed to delete all users"

	users, err := s.users.FindAll(ctx)
	if err != nil {
		return 0, apperrors.Wrap(op, err)
	}
	if len(users) == 0 {
		return 0, apperrors.Wrap(op, apperrors.New(apperrors.ErrNotFound, "No users to delete"))
	}

	deleted, err := s.users.DeleteAll(ctx)
	if err != nil {
		return 0, apperrors.Wrap(op, err)
	}
	if deleted == 0 {
		return 0, apperrors.Wrap(op, errors.New("no users were deleted"))
	}

	logging.Logger.Warnf("Event ID: USERS_DELETED, Description: %d users deleted", deleted)
	return deleted, nil
}

// LoginUser reports the same error for an unknown e-mail and a wrong password.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "Login failed"
	invalid := apperrors.New(apperrors.ErrInvalidCredentials, "Invalid email or password")

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.hasher.Verify(password, "")
			logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Login attempt for unknown email")
			return nil, apperrors.Wrap(op, invalid)
		}
		return nil, apperrors.Wrap(op, err)
	}
	if !s.hasher.Verify(password, user.Password) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Wrong password for user %s", user.ID.Hex())
		return nil, apperrors.Wrap(op, invalid)
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Wrap(op, fmt.Errorf("failed to generate token: %w", err))
	}

	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in", user.ID.Hex())
	return &LoginResult{Token: token, User: user}, nil
}

// RequestPasswordReset stores a fresh reset token on the user. The token is
// written to the log and handed to the mailer; a delivery failure is only logged.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "Failed to request password reset"

	email = strings.TrimSpace(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = apperrors.New(apperrors.ErrNotFound, "User with this email does not exist")
		}
		return apperrors.Wrap(op, err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return apperrors.Wrap(op, err)
	}
	expiry := s.now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: PASSWORD_RESET_REQUESTED, Description: Reset token for %s: %s", email, token)

	body := fmt.Sprintf("Use this token to reset your password: %s\nIt expires at %s.", token, expiry.Format(time.RFC1123))
	if err := s.mailer.Send(email, "Password reset", body); err != nil {
		logging.Logger.Warnf("Event ID: PASSWORD_RESET_MAIL_FAILED, Description: Reset token for %s was not delivered: %v", email, err)
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "Failed to reset password"
	invalid := apperrors.New(apperrors.ErrInvalidOrExpiredToken, "Invalid or expired reset token")

	if token == "" {
		return apperrors.Wrap(op, invalid)
	}
	user, err := s.users.FindByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = invalid
		}
		return apperrors.Wrap(op, err)
	}

	if err := checkPasswordLength(newPassword); err != nil {
		return apperrors.Wrap(op, err)
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return apperrors.Wrap(op, err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: PASSWORD_RESET, Description: Password reset for user %s", user.ID.Hex())
	return nil
}

func (s *UserService) findUser(ctx context.Context, oid primitive.ObjectID, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "User with ID %s not found", id)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.New(apperrors.ErrInvalidInput, "Password must be at most 72 bytes long")
	}
	return hash, err
}

func checkPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.Newf(apperrors.ErrInvalidInput, "Password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

func parseID(id, message string) (primitive.ObjectID, error) {
	oid, ok := utils.ParseID(id)
	if !ok {
		return primitive.NilObjectID, apperrors.New(apperrors.ErrInvalidInput, message)
	}
	return oid, nil
}
