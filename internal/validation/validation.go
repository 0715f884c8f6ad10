package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/timestamp"
)

var ErrInvalid = fmt.Errorf("validation failed")

type Violation struct {
	Index   int
	Field   string
	Rule    string
	Value   interface{}
	Message string
	Err     error
}

func (v Violation) String() string {
	return fmt.Sprintf("[%d].%s: %s", v.Index, v.Field, v.Message)
}

type Error struct {
	Subject    string
	Violations []Violation
}

func (e *Error) Error() string {
	a := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		a[i] = v.String()
	}

	return fmt.Sprintf("%s batch rejected: %d violation(s): %s", e.Subject, len(e.Violations), strings.Join(a, "; "))
}

func (e *Error) Unwrap() []error {
	errs := []error{ErrInvalid}

	for _, v := range e.Violations {
		if v.Err != nil {
			errs = append(errs, v.Err)
		}
	}

	return errs
}

// Find returns the first violation for the given record and field.
func (e *Error) Find(index int, field string) *Violation {
	for i := range e.Violations {
		if e.Violations[i].Index == index && e.Violations[i].Field == field {
			return &e.Violations[i]
		}
	}

	return nil
}

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func get() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		enLocale := en.New()
		trans, _ := ut.New(enLocale, enLocale).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := f.Tag.Get("json")
			if idx := strings.Index(name, ","); idx >= 0 {
				name = name[:idx]
			}
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerCustom(v, trans, "timestamp", "{0} must be a timestamp like m:ss, mm:ss or h:mm:ss", func(fl validator.FieldLevel) bool {
			return timestamp.Valid(fl.Field().String())
		})

		registerCustom(v, trans, "show", "{0} must be one of the known shows", func(fl validator.FieldLevel) bool {
			return show.Show(fl.Field().String()).Valid()
		})

		validate, translator = v, trans
	})

	return validate, translator
}

func registerCustom(v *validator.Validate, trans ut.Translator, tag, message string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Errorf("validation.registerCustom: %s: %w", tag, err))
	}

	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// Batch validates every element of items and rejects the whole batch if any
// element fails. The returned error is nil or an *Error.
func Batch[T any](subject string, items []T) error {
	v, trans := get()

	verr := &Error{Subject: subject}

	for i := range items {
		if err := v.Struct(items[i]); err != nil {
			var fieldErrors validator.ValidationErrors
			if !errors.As(err, &fieldErrors) {
				return fmt.Errorf("validation.Batch: %s %d: %w", subject, i, err)
			}

			for _, fe := range fieldErrors {
				verr.Violations = append(verr.Violations, Violation{
					Index:   i,
					Field:   fe.Field(),
					Rule:    fe.Tag(),
					Value:   fe.Value(),
					Message: fe.Translate(trans),
				})
			}
		}
	}

	if len(verr.Violations) > 0 {
		return verr
	}

	return nil
}
