package user

import (
	"unicode"

	usererrors "github.com/jesser-selmi/idos-front/internal/user/errors"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// ValidatePassword enforces the password policy. confirm is only checked
// when non-nil.
func ValidatePassword(password string, confirm *string) error {
	if confirm != nil && *confirm != password {
		return usererrors.ErrPasswordMismatch
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if len([]rune(password)) < MinPasswordLength || !hasLetter || !hasDigit {
		return usererrors.ErrWeakPassword
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
