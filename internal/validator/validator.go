package validator

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidAccountName = errors.New("account name must be 1-32 characters")
	ErrInvalidCurrency    = errors.New("currency must be a single symbol")
	ErrInvalidStatus      = errors.New("status must be Active or Inactive")
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateAccountName(name string) error {
	length := utf8.RuneCountInString(name)
	if length < 1 || length > 32 {
		return ErrInvalidAccountName
	}
	return nil
}

// Currency is a single symbol, e.g. "€" or "$".
func ValidateCurrency(currency string) error {
	if utf8.RuneCountInString(currency) != 1 {
		return ErrInvalidCurrency
	}
	return nil
}

func ValidateStatus(status string) error {
	if status != "Active" && status != "Inactive" {
		return ErrInvalidStatus
	}
	return nil
}
