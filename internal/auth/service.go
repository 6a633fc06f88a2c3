package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/config"
	"github.com/ivkhr/bookshelf/internal/entities"
)

// DefaultShelfName is the shelf every user starts with, at position 0.
const DefaultShelfName = "All Books"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session")
)

// Service is the identity store: it owns user records, credential
// verification and the session-token lifecycle. Tokens are random
// alphanumeric strings, unique across all users, bound to the client address
// they were issued to and rotated on every successful lookup.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// Register creates a user with a fresh session token bound to addr, plus the
// default shelf at position 0, in one transaction.
func (s *Service) Register(username, password, addr string) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
		TokenAddress: addr,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if count > 0 {
			return ErrUserExists
		}

		token, err := s.uniqueToken(tx)
		if err != nil {
			return err
		}
		user.Token = token

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		shelf := &entities.Shelf{
			UserID:   user.ID,
			Name:     DefaultShelfName,
			Position: 0,
		}
		return tx.Create(shelf).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login validates credentials and issues a fresh token bound to addr.
func (s *Service) Login(username, password, addr string) (*entities.User, string, error) {
	var user entities.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	token, err := s.issueToken(&user, addr)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// ResolveSession looks up the user holding the token. The presented client
// address must match the one the token was issued to; on mismatch the token
// is cleared and the session is invalid. Every successful resolve rotates
// the token, so the returned token replaces the presented one.
func (s *Service) ResolveSession(token, addr string) (*entities.User, string, error) {
	if token == "" {
		return nil, "", ErrInvalidSession
	}

	var user entities.User
	err := s.db.Where("token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidSession
		}
		return nil, "", fmt.Errorf("failed to find session: %w", err)
	}

	if user.TokenAddress != addr {
		if err := s.clearToken(&user); err != nil {
			return nil, "", err
		}
		return nil, "", ErrInvalidSession
	}

	rotated, err := s.issueToken(&user, addr)
	if err != nil {
		return nil, "", err
	}
	return &user, rotated, nil
}

// Logout clears the token and its address binding.
func (s *Service) Logout(token string) error {
	if token == "" {
		return ErrInvalidSession
	}

	var user entities.User
	err := s.db.Where("token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidSession
		}
		return fmt.Errorf("failed to find session: %w", err)
	}

	return s.clearToken(&user)
}

// issueToken stores a fresh unique token on the user, bound to addr.
func (s *Service) issueToken(user *entities.User, addr string) (string, error) {
	var token string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.uniqueToken(tx)
		if err != nil {
			return err
		}
		token = t
		return tx.Model(user).Updates(map[string]any{
			"token":         token,
			"token_address": addr,
		}).Error
	})
	if err != nil {
		return "", err
	}
	user.Token = token
	user.TokenAddress = addr
	return token, nil
}

func (s *Service) clearToken(user *entities.User) error {
	err := s.db.Model(user).Updates(map[string]any{
		"token":         "",
		"token_address": "",
	}).Error
	if err != nil {
		return err
	}
	user.Token = ""
	user.TokenAddress = ""
	return nil
}

// uniqueToken generates tokens until one is unused. Collisions are
// vanishingly rare at 64 alphanumeric characters, but checked anyway.
func (s *Service) uniqueToken(tx *gorm.DB) (string, error) {
	length := s.config.TokenLength
	if length <= 0 {
		length = config.DefaultTokenLength
	}

	for {
		token, err := GenerateToken(length)
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}

		var count int64
		if err := tx.Model(&entities.User{}).Where("token = ?", token).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
}
