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

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// requestError is a client error detected before reaching the service layer.
type requestError struct {
	code    string
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("error", code).Int("status", status).Msg(message)
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps err onto an HTTP status by its domain kind. Errors
// that are not domain errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		logger.Debug().Str("error", reqErr.code).Msg(reqErr.message)
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   reqErr.code,
			Message: reqErr.message,
			Details: reqErr.details,
		})
		return
	}

	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		})
		return
	}

	status := statusForKind(domainErr.Kind)
	event := logger.Info()
	if status >= http.StatusInternalServerError {
		event = logger.Error().Err(err)
	}
	event.Str("error", domainErr.Code).Int("status", status).Msg("request rejected")

	writeJSON(w, status, model.ErrorResponse{
		Error:     domainErr.Code,
		Message:   domainErr.Message,
		VariantID: domainErr.VariantID,
	})
}

func statusForKind(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindBusy:
		return http.StatusServiceUnavailable
	case model.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dest and validates it. An empty
// body is allowed when allowEmpty is set and leaves dest untouched.
func decodeJSON(r *http.Request, dest any, allowEmpty bool) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &requestError{code: model.ErrCodeInvalidJSON, message: "invalid request body"}
	}
	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &requestError{code: model.ErrCodeValidation, message: "validation failed"}
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return &requestError{code: model.ErrCodeValidation, message: "validation failed", details: details}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return "is invalid"
}

// pageFromQuery parses limit and offset, defaulting to the first ten rows.
func pageFromQuery(r *http.Request) (model.Page, error) {
	page := model.Page{Limit: 10}
	query := r.URL.Query()

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return page, &requestError{code: model.ErrCodeValidation, message: "invalid limit parameter"}
		}
		page.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return page, &requestError{code: model.ErrCodeValidation, message: "invalid offset parameter"}
		}
		page.Offset = offset
	}
	return page, nil
}
