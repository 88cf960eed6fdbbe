package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	msgUsernameLength = "Username must be at least 5 characters"
	msgUsernameChars  = "Username is only allowed in alphabet and number."
	msgUsernameInUse  = "Username is already in use"
	msgEmailInvalid   = "E-mail is not valid"
	msgEmailInUse     = "E-mail is already in use"
	msgPasswordLength = "Password must be at least 5 characters"
	msgContentMissing = "Content is required"
)

// rule is one independent check; every failing rule is reported, so a
// username that is both short and non-alphanumeric yields two messages.
type rule struct {
	field   string
	tag     string
	message string
}

var (
	usernameRules = []rule{
		{"username", "min=5", msgUsernameLength},
		{"username", "alphanum", msgUsernameChars},
	}
	emailRules    = []rule{{"email", "required,email", msgEmailInvalid}}
	passwordRules = []rule{{"password", "min=5", msgPasswordLength}}
)

type checker struct {
	v      *validator.Validate
	fields []FieldError
}

func newChecker(v *validator.Validate) *checker {
	return &checker{v: v}
}

func (c *checker) check(value string, rules []rule) bool {
	ok := true
	for _, r := range rules {
		if err := c.v.Var(value, r.tag); err != nil {
			c.fail(r.field, r.message)
			ok = false
		}
	}
	return ok
}

func (c *checker) fail(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return Validation(c.fields...)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
