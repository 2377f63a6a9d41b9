package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Dias221467/agency-portal/internal/config"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/state"
	jwtutil "github.com/Dias221467/agency-portal/pkg/jwt"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService authenticates users and manages accounts.
type UserService struct {
	store   *state.Store
	mutator *Mutator
	cfg     *config.Config
}

func NewUserService(store *state.Store, mutator *Mutator, cfg *config.Config) *UserService {
	return &UserService{store: store, mutator: mutator, cfg: cfg}
}

// AuthenticateUser matches the e-mail against the user table. Admins share the
// configured admin password; everyone else is checked against their bcrypt hash.
func (s *UserService) AuthenticateUser(email, password string) (*models.User, error) {
	logrus.WithField("email", email).Info("Authenticating user")

	user, ok := s.findByEmail(email)
	if !ok {
		logrus.WithField("email", email).Warn("User not found")
		return nil, ErrInvalidCredentials
	}

	switch user.Role {
	case models.RoleAdmin:
		if s.cfg.AdminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) != 1 {
			logrus.WithField("email", email).Warn("Invalid credentials")
			return nil, ErrInvalidCredentials
		}
	default:
		if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			logrus.WithField("email", email).Warn("Invalid credentials")
			return nil, ErrInvalidCredentials
		}
	}

	logrus.WithField("userID", user.ID.Hex()).Info("User authenticated successfully")
	return &user, nil
}

// Login authenticates and issues an access token.
func (s *UserService) Login(email, password string) (string, *models.User, error) {
	user, err := s.AuthenticateUser(email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, string(user.Role), s.cfg.JWTSecret, s.cfg.TokenExpiry)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate JWT token")
		return "", nil, fmt.Errorf("failed to generate token: %v", err)
	}
	return token, user, nil
}

// RegisterUser hashes password and creates the account through the Mutator.
func (s *UserService) RegisterUser(ctx context.Context, actor models.User, user models.User, password string) (Result, error) {
	if user.Role != models.RoleAdmin {
		if len(password) < 8 {
			return Result{}, invalid("password must be at least 8 characters")
		}
		hash, err := HashPassword(password)
		if err != nil {
			logrus.WithError(err).Error("Password hashing failed")
			return Result{}, err
		}
		user.PasswordHash = hash
	}
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	return s.mutator.Submit(ctx, actor, &Create[models.User]{Row: user})
}

// EnsureAdmin creates an admin account for email when the user table has no
// admin yet, so a fresh deployment can sign in with the shared password.
func (s *UserService) EnsureAdmin(ctx context.Context, email string) error {
	if email == "" || len(s.store.Snapshot().Admins()) > 0 {
		return nil
	}
	bootstrap := models.User{Name: "system", Role: models.RoleAdmin}
	admin := models.User{Name: "Administrator", Email: email, Role: models.RoleAdmin}
	if _, err := s.RegisterUser(ctx, bootstrap, admin, ""); err != nil {
		return fmt.Errorf("failed to create initial admin: %w", err)
	}
	logrus.WithField("email", email).Info("Initial admin account created")
	return nil
}

// GetUser returns the user with id from the local state.
func (s *UserService) GetUser(id primitive.ObjectID) (*models.User, error) {
	u, ok := s.store.Snapshot().User(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *UserService) GetAllUsers() []models.User {
	return s.store.Snapshot().Users
}

// DeleteUser refuses to remove the last remaining admin.
func (s *UserService) DeleteUser(ctx context.Context, actor models.User, id primitive.ObjectID) (Result, error) {
	return s.mutator.Submit(ctx, actor, DeleteUser(id))
}

func (s *UserService) findByEmail(email string) (models.User, bool) {
	email = strings.TrimSpace(email)
	for _, u := range s.store.Snapshot().Users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.User{}, false
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hashed), nil
}
