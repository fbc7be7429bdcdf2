package services

import (
	"context"
	"errors"
	"strings"

	"recipe-restful/apperrors"
	"recipe-restful/auth"
	"recipe-restful/models"
	"recipe-restful/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The UserService interface defines the account operations behind /api/user.
type UserService interface {
	CreateUser(ctx context.Context, input *CreateUserInput) (*models.User, error)
	CreateSuperuser(ctx context.Context, email, password string) (*models.User, error)
	// EnsureSuperuser creates the superuser unless the email is already registered.
	EnsureSuperuser(ctx context.Context, email, password string) (*models.User, error)
	ObtainToken(ctx context.Context, input *TokenInput) (string, error)
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, input *UpdateUserInput) (*models.User, error)
}

// --- Structs for Input ---
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=128"`
	Name     string `json:"name" validate:"max=255"`
}

// UpdateUserInput uses pointers to tell omitted fields from empty ones.
type UpdateUserInput struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"omitempty,min=5,max=128"`
}

type TokenInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const msgBadCredentials = "Unable to authenticate with provided credentials."

type userService struct {
	users      repositories.UserRepository
	tokens     repositories.TokenRepository
	signer     *auth.Signer
	bcryptCost int
	logger     *zap.Logger
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(users repositories.UserRepository, tokens repositories.TokenRepository, signer *auth.Signer, bcryptCost int, logger *zap.Logger) UserService {
	return &userService{users: users, tokens: tokens, signer: signer, bcryptCost: bcryptCost, logger: logger}
}

// CreateUser registers an active, non-staff user.
func (s *userService) CreateUser(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	fields, err := validateStruct(input)
	if err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	user := &models.User{Name: input.Name, IsActive: true}
	if err := s.create(ctx, user, input.Email, input.Password); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *userService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	user := &models.User{IsActive: true, IsStaff: true, IsSuperuser: true}
	if err := s.create(ctx, user, email, password); err != nil {
		return nil, err
	}
	s.logger.Info("superuser created", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *userService) EnsureSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		return nil, apperrors.NewFieldError("email", err.Error())
	}
	existing, err := s.users.FindByEmail(ctx, normalized)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternal("Database error checking existing user", err)
	}
	return s.CreateSuperuser(ctx, email, password)
}

// create normalizes the email, hashes the password and stores user.
func (s *userService) create(ctx context.Context, user *models.User, email, password string) error {
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		return apperrors.NewFieldError("email", err.Error())
	}
	if err := s.checkEmailFree(ctx, normalized, 0); err != nil {
		return err
	}

	hashed, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternal("Could not hash password", err)
	}
	user.Email = normalized
	user.Password = hashed

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return emailTaken()
		}
		return apperrors.NewInternal("Failed to create user", err)
	}
	return nil
}

// checkEmailFree fails when email belongs to a user other than selfID.
func (s *userService) checkEmailFree(ctx context.Context, email string, selfID uint) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return emailTaken()
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return apperrors.NewInternal("Database error checking existing user", err)
	}
}

func emailTaken() error {
	return apperrors.NewFieldError("email", "user with this email already exists.")
}

// ObtainToken checks the credentials and returns the user's API token,
// creating it on first use. Unknown emails and wrong passwords fail alike.
func (s *userService) ObtainToken(ctx context.Context, input *TokenInput) (string, error) {
	fields := fieldErrors{}
	if strings.TrimSpace(input.Email) == "" {
		fields.add("email", msgBlank)
	}
	if input.Password == "" {
		fields.add("password", msgBlank)
	}
	if err := fields.err(); err != nil {
		return "", err
	}

	email, err := models.NormalizeEmail(input.Email)
	if err != nil {
		return "", apperrors.NewBadRequest(msgBadCredentials)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NewBadRequest(msgBadCredentials)
		}
		return "", apperrors.NewInternal("Database error retrieving user", err)
	}
	if !auth.CheckPassword(user.Password, input.Password) || !user.IsActive {
		return "", apperrors.NewBadRequest(msgBadCredentials)
	}

	token, err := s.tokens.GetOrCreate(ctx, user.ID, func() (string, error) {
		return s.signer.GenerateToken(user.ID)
	})
	if err != nil {
		return "", apperrors.NewInternal("Failed to issue token", err)
	}
	return token.Key, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, apperrors.NewInternal("Database error retrieving user", err)
	}
	return user, nil
}

// UpdateProfile applies the fields present in input. A new password is rehashed.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, input *UpdateUserInput) (*models.User, error) {
	if input.Email != nil {
		trimmed := strings.TrimSpace(*input.Email)
		input.Email = &trimmed
	}
	fields, err := validateStruct(input)
	if err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		normalized, err := models.NormalizeEmail(*input.Email)
		if err != nil {
			return nil, apperrors.NewFieldError("email", err.Error())
		}
		if err := s.checkEmailFree(ctx, normalized, user.ID); err != nil {
			return nil, err
		}
		user.Email = normalized
	}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Password != nil {
		hashed, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternal("Could not hash new password", err)
		}
		user.Password = hashed
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		return nil, apperrors.NewInternal("Failed to save user updates", err)
	}
	return user, nil
}
