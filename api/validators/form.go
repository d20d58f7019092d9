package validators

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
)

var (
	validate = newValidator()
	decoder  = newDecoder()
	conform  = modifiers.New()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	// Number inputs arrive padded from some browsers; an empty one is zero so
	// `required` reports it.
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return 0, nil
		}
		return strconv.Atoi(raw)
	}, 0)
	return d
}

// DecodeForm decodes the posted form into dest, a pointer to a struct with
// `form` tags, applies its `mod` modifiers and validates it. Decode and rule
// failures both come back as a validation error whose details map field name
// to message.
func DecodeForm(r *http.Request, dest any) error {
	if err := r.ParseForm(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}

	fields := map[string]string{}
	if err := decoder.Decode(dest, r.PostForm); err != nil {
		decodeErrs, ok := err.(form.DecodeErrors)
		if !ok {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode form")
		}
		for name := range decodeErrs {
			fields[name] = "Enter a whole number."
		}
	}
	if err := conform.Struct(r.Context(), dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "normalize form")
	}

	if err := validate.Struct(dest); err != nil {
		verr := formatValidationErrors(err)
		details, ok := verr.Details().(map[string]string)
		if !ok {
			return verr
		}
		for k, v := range details {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Please correct the errors below.").WithDetails(fields)
	}
	return nil
}

// FormValues flattens the posted form for re-rendering.
func FormValues(r *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = r.PostFormValue(k)
	}
	return out
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	}
	return "Enter a valid value."
}
