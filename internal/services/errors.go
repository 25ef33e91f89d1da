package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredential  = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("access denied: insufficient permissions")
	ErrValidationFailed   = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("only pending transactions can be reviewed")
	ErrSelfModification   = errors.New("cannot modify or delete your own account")
	ErrInvalidRole        = errors.New("invalid role: must be customer, employee or admin")
	ErrRateLimited        = errors.New("too many requests, please try again later")
	ErrNotSettled         = errors.New("only approved transactions produce a credit transfer instruction")
)

var (
	ErrAccountNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)
