// Package validation performs client-side checking of user input before it
// is sent to the API, so obviously-bad payloads fail fast with the same
// field-level error shape the server would return.
package validation

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pocketledger/pocketledger-go/apierror"
)

// LoginInput carries the login form fields.
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	FullName     string `validate:"required"`
	Email        string `validate:"required,email"`
	MobileNumber string `validate:"omitempty,e164"`
	DateOfBirth  string `validate:"omitempty,datetime=2006-01-02"`
	Password     string `validate:"required,min=8"`
}

// ResetPasswordInput carries the final step of the password reset flow.
type ResetPasswordInput struct {
	Email       string `validate:"required,email"`
	Code        string `validate:"required"`
	NewPassword string `validate:"required,min=8"`
}

// Validator checks input structs and produces translated field messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New creates a Validator with English messages.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	universal := ut.New(english, english)
	translator, _ := universal.GetTranslator("en")

	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, err
	}

	return &Validator{
		validate:   validate,
		translator: translator,
	}, nil
}

// Check validates input and returns a ValidationFailed apierror carrying
// per-field messages, or nil when the input is valid.
func (v *Validator) Check(input any) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields[fieldErr.Field()] = fieldErr.Translate(v.translator)
	}

	return apierror.Validation(fields)
}
