package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/campus-events/server/internal/api/problem"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what clients sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError carries per-field messages for a rejected request body.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// requestError is a body that could not be read as the expected JSON value.
type requestError struct {
	status  int
	typ     string
	message string
	err     error
}

func (e *requestError) Error() string {
	return e.message
}

func (e *requestError) Unwrap() error {
	return e.err
}

// decodeJSON reads exactly one JSON value from the request body into dst.
// Unknown fields are ignored so clients may echo server-owned fields such as
// id or registered.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		switch {
		case errors.As(err, &maxBytesErr):
			return &requestError{
				status:  http.StatusRequestEntityTooLarge,
				typ:     problem.TypePayloadTooLarge,
				message: fmt.Sprintf("Request body must not exceed %d bytes", maxBytesErr.Limit),
				err:     err,
			}
		case errors.Is(err, io.EOF):
			return badRequest("Request body must not be empty", err)
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("Request body contains malformed JSON", err)
		case errors.As(err, &typeErr):
			if typeErr.Field == "" {
				return badRequest("Request body must be a JSON object", err)
			}
			return badRequest(fmt.Sprintf("%s must be %s", typeErr.Field, kindName(typeErr.Type)), err)
		default:
			return badRequest("Request body could not be decoded", err)
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest("Request body must contain a single JSON object", err)
	}
	return nil
}

func badRequest(message string, err error) *requestError {
	return &requestError{
		status:  http.StatusBadRequest,
		typ:     problem.TypeValidation,
		message: message,
		err:     err,
	}
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "a different type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	default:
		return "a " + t.Kind().String()
	}
}

// validateStruct runs the struct tags on v and converts failures into a
// ValidationError with one message per field, in declaration order.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fe.Field() + " " + fieldMessage(fe)
		out.Fields[fe.Field()] = msg
		messages = append(messages, msg)
	}
	out.Message = strings.Join(messages, "; ")
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be %s or less", fe.Param())
	default:
		return "is invalid"
	}
}

// writeRequestError renders decode and validation failures as problems.
// It returns false when err is neither kind.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error, env string) bool {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		problem.Write(w, r, reqErr.status, reqErr.typ, http.StatusText(reqErr.status), err, env,
			problem.WithDetail(reqErr.message))
		return true
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		fields := make(map[string]interface{}, len(valErr.Fields))
		for k, v := range valErr.Fields {
			fields[k] = v
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithDetail(valErr.Message), problem.WithErrors(fields))
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

func writeNotFound(w http.ResponseWriter, r *http.Request, message string, err error, env string) {
	problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env,
		problem.WithDetail(message))
}

func writeServerError(w http.ResponseWriter, r *http.Request, err error, env string) {
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
}
