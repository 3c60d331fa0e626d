package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/carpark"
)

// maxBodyBytes caps request bodies; every request here is a handful of fields.
const maxBodyBytes = 1 << 16

// platePattern accepts letters, digits, spaces and hyphens, 1 to 16 long.
var platePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{0,15}$`)

type inboundRequest struct {
	License string     `json:"license" validate:"required,plate"`
	Arrival *time.Time `json:"arrival"`
}

type outboundRequest struct {
	RecordID  string     `json:"recordID" validate:"required"`
	Departure *time.Time `json:"departure"`
}

type feeRequest struct {
	TimeParked *int64 `json:"timeParked" validate:"required"`
}

type parkedRequest struct {
	License string `json:"license" validate:"required,plate"`
}

// newValidator builds the request validator with the plate rule registered.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("plate", validatePlate); err != nil {
		panic(fmt.Sprintf("api: register plate validator: %v", err))
	}
	return v
}

func validatePlate(fl validator.FieldLevel) bool {
	return platePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return carpark.ValidationError{Field: "body", Message: "unreadable"}
	}
	if len(body) > maxBodyBytes {
		return carpark.ValidationError{Field: "body", Message: "too large"}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return carpark.ValidationError{Field: typeErr.Field, Message: "has the wrong type"}
		}
		var timeErr *time.ParseError
		if errors.As(err, &timeErr) {
			return carpark.ValidationError{Field: "timestamp", Message: "must be RFC 3339"}
		}
		return carpark.ValidationError{Field: "body", Message: "malformed JSON"}
	}
	return nil
}

// validate runs struct validation and converts failures into a
// carpark.ValidationError naming the first offending field.
func (h *Handler) validate(req any) error {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return formatValidationError(validationErrors[0])
	}
	return carpark.ValidationError{Field: "body", Message: err.Error()}
}

func formatValidationError(e validator.FieldError) error {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return carpark.ValidationError{Field: field, Message: "is required"}
	case "plate":
		return carpark.ValidationError{Field: field, Message: "must be 1-16 letters, digits, spaces or hyphens"}
	default:
		return carpark.ValidationError{Field: field, Message: "failed validation: " + e.Tag()}
	}
}

// queryInt64 parses an optional integer query parameter into dst.
func queryInt64(r *http.Request, name string, dst **int64) error {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return carpark.ValidationError{Field: name, Message: "must be a whole number of seconds"}
	}
	*dst = &n
	return nil
}
