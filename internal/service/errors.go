package service

import (
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("Access denied.")
	ErrUnauthorized = errors.New("unauthorized")

	ErrLoginUserNotFound         = errors.Wrap(ErrUnauthorized, "user not found")
	ErrLoginPasswordDoesNotMatch = errors.Wrap(ErrUnauthorized, "password does not match")
)

// NotFoundError names the missing resource. errors.Is(err, ErrNotFound) holds.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " does not exist."
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ValidationError is the validation failure shape shared with the transport.
type ValidationError = validate.Error

func invalid(field, tag string) *ValidationError {
	return validate.NewError(field, validate.Message(field, tag, "", 0))
}
