package services

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNoLetter   = errors.New("password must contain at least one letter")
	ErrPasswordNoNumber   = errors.New("password must contain at least one number")
	ErrPasswordCommon     = errors.New("password is too common")
	ErrPasswordSequential = errors.New("password contains sequential characters")
	ErrPasswordRepeating  = errors.New("password contains repeating characters")
)

// PasswordValidator enforces the sign-up password policy.
type PasswordValidator struct {
	minLength       int
	maxRun          int
	commonPasswords map[string]bool
}

func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		minLength: 8,
		maxRun:    3,
		commonPasswords: map[string]bool{
			"password":  true,
			"password1": true,
			"12345678":  true,
			"qwerty123": true,
			"iloveyou":  true,
			"welcome1":  true,
		},
	}
}

func (pv *PasswordValidator) Validate(password string) error {
	if len([]rune(password)) < pv.minLength {
		return ErrPasswordTooShort
	}
	if pv.commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}

	var hasLetter, hasNumber bool
	var prev rune
	repeat, ascending, descending := 1, 1, 1

	for i, r := range []rune(password) {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}

		if i > 0 {
			repeat = bump(repeat, r == prev)
			ascending = bump(ascending, r == prev+1)
			descending = bump(descending, r == prev-1)
		}
		if repeat >= pv.maxRun {
			return ErrPasswordRepeating
		}
		if ascending >= pv.maxRun+1 || descending >= pv.maxRun+1 {
			return ErrPasswordSequential
		}
		prev = r
	}

	if !hasLetter {
		return ErrPasswordNoLetter
	}
	if !hasNumber {
		return ErrPasswordNoNumber
	}
	return nil
}

func bump(run int, cont bool) int {
	if cont {
		return run + 1
	}
	return 1
}
