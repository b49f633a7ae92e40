package services

import (
	"context"
	"net/mail"
	"strings"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type UserService interface {
	// Register is self-service sign-up and never grants the admin role.
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	// Create provisions an account of any role on an admin's behalf.
	Create(ctx context.Context, in RegisterInput) (*models.User, error)
	// EnsureAdmin creates the bootstrap admin unless the email is already taken.
	EnsureAdmin(ctx context.Context, email, password string) (*models.User, error)
	// Login returns an Authorization error for any credential mismatch.
	Login(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type RegisterInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
	Phone    string          `json:"phone"`
}

type userService struct {
	stg store.IUserStorage
	log logger.ILogger
}

func NewUserService(stg store.IStorage, log logger.ILogger) UserService {
	return &userService{
		stg: stg.User(),
		log: log,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role == models.RoleAdmin {
		return nil, apperrors.Authorization("admin accounts cannot be self-registered")
	}
	return s.Create(ctx, in)
}

func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.stg.GetByEmail(ctx, email)
	if err == nil {
		if u.Role != models.RoleAdmin {
			return nil, apperrors.Conflict("%s is registered with role %s", email, u.Role)
		}
		return u, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return s.Create(ctx, RegisterInput{Name: "Administrator", Email: email, Password: password, Role: models.RoleAdmin})
}

func (s *userService) Create(ctx context.Context, in RegisterInput) (*models.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperrors.Validation("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation("invalid role, must be customer, restaurant, driver or admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Dependency(err, "failed to hash password")
	}
	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
	}
	if err := s.stg.Create(ctx, u); err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, err
	}
	s.log.Info("user registered", logger.Uint("user_id", u.ID), logger.String("role", string(u.Role)))
	return u, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.stg.GetByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.Authorization("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Authorization("invalid email or password")
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.stg.Get(ctx, id)
}

func (s *userService) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.Validation("invalid role %q", role)
	}
	return s.stg.List(ctx, role)
}
