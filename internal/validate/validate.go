// Package validate holds the stateless field checks applied to raw form
// input before anything is uploaded or persisted.
package validate

import "regexp"

// Error is a user-facing validation failure. The message is safe to render
// back to the submitter as-is.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(msg string) error { return &Error{Message: msg} }

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// MinPasswordLength is the signup password policy floor.
const MinPasswordLength = 6

// Required checks that every listed field is present and non-empty.
// Fields preserve submission order so the first missing one is reported.
func Required(fields []Field) error {
	for _, f := range fields {
		if f.Value == "" {
			return fail("missing required field(s)")
		}
	}
	return nil
}

// Field pairs a form field name with its raw submitted value.
type Field struct {
	Name  string
	Value string
}

// Email checks the standard local@domain.tld shape.
func Email(value string) error {
	if !emailPattern.MatchString(value) {
		return fail("invalid email")
	}
	return nil
}

// Mobile checks for exactly 10 digits.
func Mobile(value string) error {
	if !mobilePattern.MatchString(value) {
		return fail("invalid mobile number")
	}
	return nil
}

// Password enforces the signup password policy.
func Password(value string) error {
	if len(value) < MinPasswordLength {
		return fail("password must be at least 6 characters long")
	}
	return nil
}

// PasswordsMatch checks that password and confirmation are byte-equal.
func PasswordsMatch(password, confirm string) error {
	if password != confirm {
		return fail("passwords do not match")
	}
	return nil
}
