package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"contactbook/internal/models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	// custom validation tags & texts
	requiredTag  = "required"
	requiredText = "{0} cannot be empty."

	digitsOnlyTag  = "digitsonly"
	digitsOnlyText = "{0} must contain only digits."

	simpleEmailTag   = "simple_email"
	simpleEmailText  = "Invalid email format."
	simpleEmailRegex = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
)

// ContactValidator checks contact input and reports every offending field at once.
type ContactValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewContactValidator builds a validator with the contact rules and their English messages.
func NewContactValidator() *ContactValidator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	// Messages use the human label ("Name") rather than the Go field name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	_ = validate.RegisterValidation(digitsOnlyTag, digitsOnlyValidation)
	_ = validate.RegisterValidation(simpleEmailTag, simpleEmailValidation)

	registerTranslation(validate, translator, requiredTag, requiredText)
	registerTranslation(validate, translator, digitsOnlyTag, digitsOnlyText)
	registerTranslation(validate, translator, simpleEmailTag, simpleEmailText)

	return &ContactValidator{
		validate:   validate,
		translator: translator,
	}
}

// registerTranslation registers the message text used for the specified validation tag.
func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Validate trims the input and checks every field. It returns the trimmed contact
// or a *ValidationError carrying one message per failing field.
func (v *ContactValidator) Validate(in models.ContactInput) (models.Contact, error) {
	contact := models.ContactInput{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.TrimSpace(in.Email),
	}.ToContact()

	err := v.validate.Struct(contact)
	if err == nil {
		return contact, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.Contact{}, err
	}
	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[strings.ToLower(fe.StructField())] = fe.Translate(v.translator)
	}
	return models.Contact{}, verr
}

// digitsOnlyValidation only allows digit characters.
func digitsOnlyValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// simpleEmailValidation accepts local@domain.tld addresses.
func simpleEmailValidation(fl validator.FieldLevel) bool {
	return simpleEmailRegex.MatchString(fl.Field().String())
}
