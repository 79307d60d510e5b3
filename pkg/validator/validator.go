package validator

import (
	"fmt"
	"regexp"
)

const (
	minUsernameLength        = 3
	maxUsernameLength        = 50
	minEmailLength           = 3
	maxEmailLength           = 255
	minPasswordLength        = 8
	maxPasswordLength        = 128
	maxAccessTokenNameLength = 255
	asciiControlStart        = 32
	asciiDelete              = 127

	errUsernameEmptyFmt        = "username cannot be empty"
	errUsernameLengthFmt       = "username must be between %d and %d characters"
	errUsernameInvalidFmt      = "username may only contain letters, digits, '.', '_' and '-'"
	errEmailEmptyFmt           = "email cannot be empty"
	errEmailLengthFmt          = "email must be between %d and %d characters"
	errEmailInvalidFmt         = "invalid email format"
	errPasswordMinLengthFmt    = "password must be at least %d characters"
	errPasswordMaxLengthFmt    = "password must not exceed %d characters"
	errAccessTokenNameEmptyFmt = "access token name cannot be empty"
	errAccessTokenNameMaxFmt   = "access token name must not exceed %d characters"
	errAccessTokenNameCtrlFmt  = "access token name cannot contain control characters"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

func Username(username string) error {
	if username == "" {
		return fmt.Errorf(errUsernameEmptyFmt)
	}

	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return fmt.Errorf(errUsernameLengthFmt, minUsernameLength, maxUsernameLength)
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf(errUsernameInvalidFmt)
	}

	return nil
}

func Email(email string) error {
	if email == "" {
		return fmt.Errorf(errEmailEmptyFmt)
	}

	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return fmt.Errorf(errEmailLengthFmt, minEmailLength, maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf(errPasswordMinLengthFmt, minPasswordLength)
	}

	if len(password) > maxPasswordLength {
		return fmt.Errorf(errPasswordMaxLengthFmt, maxPasswordLength)
	}

	return nil
}

func AccessTokenName(name string) error {
	if name == "" {
		return fmt.Errorf(errAccessTokenNameEmptyFmt)
	}

	if len(name) > maxAccessTokenNameLength {
		return fmt.Errorf(errAccessTokenNameMaxFmt, maxAccessTokenNameLength)
	}

	for _, char := range name {
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errAccessTokenNameCtrlFmt)
		}
	}

	return nil
}
