package validation

import (
	"fmt"
	"strings"

	"github.com/voixagent/voixagent/errors"
)

// FieldError is one failed check, reported under the "fields" detail of the
// resulting INVALID_INPUT error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func toAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}

// Checker validates loose values such as query parameters, where there is
// no struct to tag. Checks chain; Err reports every failure at once.
//
//	err := validation.New().
//	    Required("room", room).MaxLength("room", room, 128).
//	    Identifier("identity", identity).
//	    Err()
type Checker struct {
	fields []FieldError
}

// New starts an empty Checker.
func New() *Checker { return &Checker{} }

func (c *Checker) fail(field, message string) *Checker {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
	return c
}

// Required fails when value is empty or blank.
func (c *Checker) Required(field, value string) *Checker {
	if strings.TrimSpace(value) == "" {
		return c.fail(field, "is required")
	}
	return c
}

// MaxLength fails when value is longer than n bytes.
func (c *Checker) MaxLength(field, value string, n int) *Checker {
	if len(value) > n {
		return c.fail(field, fmt.Sprintf("must be at most %d characters", n))
	}
	return c
}

// Identifier fails when a non-empty value is not a valid session id, room
// name or participant identity.
func (c *Checker) Identifier(field, value string) *Checker {
	if value != "" && !identifierPattern.MatchString(value) {
		return c.fail(field, identifierMessage)
	}
	return c
}

// Fields returns the failures so far.
func (c *Checker) Fields() []FieldError { return c.fields }

// Err returns nil, or one INVALID_INPUT error naming every failed field.
func (c *Checker) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return toAppError(c.fields)
}
