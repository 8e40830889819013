package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the login form before it is sent.
func (c Credentials) Validate() error {
	return formatValidation(validatorInstance().Struct(c))
}

// Validate checks the registration form before it is sent.
func (u NewUser) Validate() error {
	return formatValidation(validatorInstance().Struct(u))
}

// ValidateStruct runs the struct's validate tags through the shared
// validator and returns one display-ready error.
func ValidateStruct(v interface{}) error {
	return formatValidation(validatorInstance().Struct(v))
}

// formatValidation turns validator errors into one message a form can show.
func formatValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "latitude":
		return fmt.Sprintf("%s must be a latitude between -90 and 90", field)
	case "longitude":
		return fmt.Sprintf("%s must be a longitude between -180 and 180", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
