package app

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login failures do not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken indicates a signup against an already registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("application not found")
)
