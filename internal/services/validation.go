package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Kind    string            `json:"kind"`              // validation_error, not_found, ...
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper validates request DTOs.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrIntegrity):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// SendErrorResponse writes a JSON error. DTO validation failures and engine
// ValidationErrors are reported field by field in details.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, cause error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message, Kind: kindForStatus(statusCode, cause)}

	var fieldErrs validator.ValidationErrors
	var domainErr *ValidationError
	switch {
	case errors.As(cause, &fieldErrs):
		errorResp.Details = make(map[string]string, len(fieldErrs))
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	case errors.As(cause, &domainErr) && domainErr.Field != "":
		errorResp.Details = map[string]string{domainErr.Field: domainErr.Message}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendError writes err with the status and kind derived from it. Internal
// errors are not echoed to the client.
func SendError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	SendErrorResponse(w, message, status, err)
}

func kindForStatus(status int, cause error) string {
	if cause != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(cause, &fieldErrs) {
			return "validation_error"
		}
		return ErrorKind(cause)
	}
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "internal_error"
}
