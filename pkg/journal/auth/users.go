package auth

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/database"
	"github.com/mikepea/journal/pkg/journal/models"
)

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrUserExists)
	ErrEmailTaken    = fmt.Errorf("%w: email taken", ErrUserExists)
)

// NewUser holds the fields of a user to register
type NewUser struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

// CreateUser hashes the password and inserts the user. A taken username or
// email is reported as ErrUserExists, including when the store's unique
// index catches a concurrent registration.
func CreateUser(tx *gorm.DB, in NewUser) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "check username")
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := models.User{
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.Admin,
	}
	if err := tx.Create(&user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return &user, nil
}

// Authenticate returns the user with the given email if password matches.
func Authenticate(tx *gorm.DB, email, password string) (*models.User, bool) {
	var user models.User
	if err := tx.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, false
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, false
	}
	return &user, true
}
