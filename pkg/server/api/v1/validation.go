package v1

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// StartProcessingRequest is the body of POST /api/v1/processing/start.
type StartProcessingRequest struct {
	Input        string `json:"input" validate:"notblank"`
	ConnectionID string `json:"connectionId" validate:"notblank,max=128"`
	TabID        string `json:"tabId" validate:"notblank,max=128"`
}

// CancelProcessingRequest is the body of POST /api/v1/processing/cancel.
type CancelProcessingRequest struct {
	ConnectionID string `json:"connectionId" validate:"notblank,max=128"`
	TabID        string `json:"tabId" validate:"notblank,max=128"`
}

// fieldReasons holds the user facing message for a failed field.
var fieldReasons = map[string]string{
	"input":        "Input cannot be empty.",
	"connectionId": "Connection ID is required.",
	"tabId":        "Tab ID is required.",
}

// ParseRequest validates a decoded request body. The first failing field
// is reported as a *ValidationError.
func ParseRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}

	fe := verrs[0]
	reason := fieldReasons[fe.Field()]
	if fe.Tag() == "max" {
		reason = "must be at most " + fe.Param() + " characters"
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}

// ValidationError is a lightweight error used for 400 responses.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		if e.Reason != "" {
			return e.Reason
		}
		return "validation failed"
	}
	if e.Reason == "" {
		return e.Field + ": invalid"
	}
	return e.Field + ": " + e.Reason
}
