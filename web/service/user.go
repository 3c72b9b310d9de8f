package service

import (
	"strings"

	"gradebook/database"
	"gradebook/database/model"
	"gradebook/logger"
	"gradebook/util/crypto"
)

const (
	minUsernameLen = 3
	minPasswordLen = 4
)

// UserService is the credential store: it creates accounts and verifies
// logins. There are no update or delete operations for accounts.
type UserService struct{}

// Register creates a new account with a bcrypt-hashed password. The
// plaintext password is never persisted or logged.
func (s *UserService) Register(username string, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
	}
	// The unique index on username closes the check-then-insert race between
	// concurrent registrations.
	if err := database.GetDB().Create(user).Error; err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	logger.Infof("registered account %q", user.Username)
	return user, nil
}

// Authenticate verifies a username/password pair. An unknown username and a
// wrong password produce the same error so account existence never leaks.
func (s *UserService) Authenticate(username string, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	var user model.User
	err := database.GetDB().Where("username = ?", username).First(&user).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPasswordHash(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
