package validation

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxBodyBytes caps JSON request bodies
	MaxBodyBytes = 1 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match the request payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// Struct validates s against its `validate` tags. Violations are returned as
// a single BadRequest listing every failing field.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.BadRequest("Invalid request")
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, message(fe))
	}
	return apperrors.BadRequest(strings.Join(messages, ", "))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " must be at least " + param + " characters"
		}
		return field + " must be at least " + param
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + param + " characters"
		}
		return field + " must be at most " + param
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return field + " must be one of: " + param
	case "required_if":
		return field + " is required here"
	case "excluded_if":
		return field + " must be empty here"
	default:
		return field + " is invalid"
	}
}

// DecodeJSON reads a JSON body into dst and validates it.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	return Struct(dst)
}
