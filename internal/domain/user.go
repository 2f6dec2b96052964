package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = errors.New("username must be at most 64 characters long")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// MaxUsernameLength bounds User.Username.
const MaxUsernameLength = 64

// User represents a registered user of the tracker.
// It contains essential user information and authentication details.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	IsSuperuser    bool      `json:"is_superuser"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email, username and password.
// The email is normalized before validation.
//
// NOTE: This function only sets up the user structure with the plaintext password.
// The store is responsible for hashing the password before persisting the user.
func NewUser(email, username, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		Username:  strings.TrimSpace(username),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyUserID)
	}

	if u.Email == "" {
		return NewValidationError("email", "is required", ErrEmptyEmail)
	}

	if !validateEmailFormat(u.Email) {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}

	if u.Username == "" {
		return NewValidationError("username", "is required", ErrEmptyUsername)
	}
	if len(u.Username) > MaxUsernameLength {
		return NewValidationError("username", "is too long", ErrUsernameTooLong)
	}

	if u.Password != "" {
		if len(u.Password) < 12 {
			return NewValidationError("password", "must be at least 12 characters long", ErrPasswordTooShort)
		}
		if len(u.Password) > 72 {
			return NewValidationError("password", "must be at most 72 characters long", ErrPasswordTooLong)
		}
	} else if u.HashedPassword == "" {
		// Existing users loaded from the store carry only the hash.
		return NewValidationError("password", "is required", ErrEmptyPassword)
	}

	return nil
}

// NormalizeEmail trims and lower-cases an address so that subscriber
// comparison is exact.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmailFormat performs basic validation of email format: a non-empty
// local part, an @, and a domain with an inner dot.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domainPart := email[at+1:]
	if len(domainPart) < 3 || strings.ContainsAny(domainPart, "@ ") {
		return false
	}

	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
