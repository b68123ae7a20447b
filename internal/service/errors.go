package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error kinds. Handlers map each kind onto one HTTP status; every specific
// error below wraps exactly one kind.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrInvalidURL          = fmt.Errorf("%w: originalLink must be an absolute http(s) URL", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: status must be active or inactive", ErrValidation)
	ErrMissingLogin        = fmt.Errorf("%w: email or phone number is required", ErrValidation)
	ErrEmptyUpdate         = fmt.Errorf("%w: at least one field must be provided", ErrValidation)
	ErrLinkNotFound        = fmt.Errorf("%w: link not found", ErrNotFound)
	ErrLinkInactive        = fmt.Errorf("%w: link is inactive", ErrForbidden)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserExists          = fmt.Errorf("%w: user with this email or phone number already exists", ErrConflict)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidAccessToken  = fmt.Errorf("%w: invalid or expired access token", ErrUnauthorized)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)

	// ErrCodeSpaceExhausted is an internal error: no free short code was found
	// within the configured attempt budget.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
)

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
