package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator returns a validator that reports fields by their JSON names and
// compares decimal amounts numerically.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validationError carries per-field validation messages.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	return model.ErrValidation.Message
}

// formatValidationError turns validator errors into field messages.
func formatValidationError(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}

	for _, fe := range verrs {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "alphanum":
			fields[field] = fmt.Sprintf("%s may only contain letters and digits", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}

// decodeAndValidate decodes the JSON body of r into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &validationError{fields: map[string]string{"body": "request body is required"}}
		}
		return model.ErrInvalidJSON
	}

	if err := validate.Struct(dst); err != nil {
		return &validationError{fields: formatValidationError(err)}
	}

	return nil
}

// pathID parses the named path parameter as a positive integer ID.
// Non-numeric IDs are reported with notFound, as no such resource can exist.
func pathID(r *http.Request, name string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

// principal returns the authenticated caller. Routes using it are wrapped in
// middleware.RequireAuth, so absence is reported as unauthorised.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return auth.Principal{}, model.ErrUnauthorised
	}
	return p, nil
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound,
		model.ErrCodeCartItemNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidJSON, model.ErrCodeValidation, model.ErrCodeInvalidQuantity,
		model.ErrCodeWeakPassword, model.ErrCodeNoPendingOrder, model.ErrCodeInvalidWebhook,
		model.ErrCodeInvalidImage:
		return http.StatusBadRequest
	case model.ErrCodeUsernameTaken, model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeUnauthorised, model.ErrCodeInvalidCreds:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodePaymentRejected:
		return http.StatusBadGateway
	case model.ErrCodePaymentDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError maps err to a status code and writes the standard error body.
// Only domain errors reach the client verbatim; anything else is logged and
// reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	requestID := middleware.RequestIDFrom(r.Context())
	resp := model.ErrorResponse{CorrelationID: requestID}
	status := http.StatusInternalServerError

	var (
		verr      *validationError
		domainErr *model.DomainError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = model.ErrValidation.Message
		resp.Code = model.ErrValidation.Code
		resp.Fields = verr.fields
	case errors.As(err, &domainErr):
		status = statusFor(domainErr.Code)
		resp.Error = domainErr.Message
		resp.Code = domainErr.Code
	default:
		resp.Error = "An internal server error occurred"
		resp.Code = model.ErrCodeInternalError
	}

	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", requestID).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("handler error")

	writeJSON(w, status, resp)
}
