package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	choiceTag  = "choice"
	choiceText = "must be one of A, B, C, D or E"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use. translator must be fresh: its texts are bound to validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) error {
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		return errors.Wrap(err, "registering default translations")
	}

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	validations := []struct {
		tag  string
		fn   validator.Func
		text string
	}{
		{alphaNumUnderTag, alphaNumUnderValidation, alphaNumUnderText},
		{notBlankTag, notBlankValidation, notBlankText},
		{choiceTag, choiceValidation, choiceText},
	}
	for _, v := range validations {
		if err := validate.RegisterValidation(v.tag, v.fn); err != nil {
			return errors.Wrapf(err, "registering %s validation", v.tag)
		}
		if err := RegisterCustomTranslation(validate, translator, v.tag, v.text); err != nil {
			return err
		}
	}

	if err := RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true); err != nil {
		return err
	}
	return RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// Unless override is set, it fails when translator already knows tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) error {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	err := validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
	return errors.Wrapf(err, "registering %s translation", tag)
}

// TranslateErrors maps validator errors to FieldErrors keyed by their namespace without the root struct.
func TranslateErrors(err validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(err))
	for _, vErr := range err {
		flds = append(flds, FieldError{Field: fieldPath(vErr), Error: vErr.Translate(translator)})
	}
	return flds
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() > 0
	default:
		return !field.IsZero()
	}
}

// Choices are the alternative letters of a multiple choice question.
var Choices = []string{"A", "B", "C", "D", "E"}

// IsChoice reports whether s is one of Choices.
func IsChoice(s string) bool {
	for _, c := range Choices {
		if s == c {
			return true
		}
	}
	return false
}

func choiceValidation(fl validator.FieldLevel) bool {
	return IsChoice(fl.Field().String())
}
