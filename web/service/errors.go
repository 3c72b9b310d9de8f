package service

import "errors"

// Recoverable, user-facing errors. Handlers map these to flash messages and
// redirect the user back to the submitting form; anything else is treated as
// a storage failure and reported generically.
var (
	ErrInvalidInput        = errors.New("required field is empty or malformed")
	ErrInvalidScore        = errors.New("score must be a number between 0 and 100")
	ErrDuplicateRollNumber = errors.New("roll number already exists")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrNotFound            = errors.New("record not found")
)
