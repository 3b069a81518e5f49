package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// Validator wraps go-playground/validator and reports failures as domain.ValidationError
// carrying the user-facing message registered for each field/tag pair.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

// New builds a validator that names fields after their json tags.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}

	return &Validator{validate: v, messages: defaultMessages()}
}

// Struct validates s. A nil error means every rule passed.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	seen := make(map[string]struct{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := v.message(fe)
		if _, ok := seen[msg]; ok {
			continue
		}
		seen[msg] = struct{}{}
		msgs = append(msgs, msg)
	}
	return domain.NewValidationError(msgs...)
}

func (v *Validator) message(fe validator.FieldError) string {
	if msg, ok := v.messages[fe.Namespace()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := v.messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return fmt.Sprintf("%s is not a valid email.", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func defaultMessages() map[string]string {
	return map[string]string{
		"UpsertStoreCommand.Name.notblank": "Please enter a store name",
		"name.required":                    "You must provide a name.",
		"name.notblank":                    "You must provide a name.",
		"email.required":                   "That email is not valid.",
		"email.email":                      "That email is not valid.",
		"password.required":                "Password cannot be blank.",
		"password.notblank":                "Password cannot be blank.",
		"password-confirm.required":        "You must confirm your password.",
		"password-confirm.notblank":        "You must confirm your password.",
		"password-confirm.eqfield":         "Passwords do not match.",
		"text.required":                    "Your review must have text!",
		"text.notblank":                    "Your review must have text!",
		"rating.required":                  "Rating must be between 1 and 5.",
		"rating.min":                       "Rating must be between 1 and 5.",
		"rating.max":                       "Rating must be between 1 and 5.",
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
