// Package web defines common components for a web application.
package web

import "github.com/go-playground/validator/v10"

// JSONError provides type for explicit json encoded error response.
type JSONError struct {
	Error string `json:"error"`
}

// Error wraps a given err into json friendly struct.
func Error(err error) JSONError {
	return JSONError{Error: err.Error()}
}

// Response holds the common response type for all APIs.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error JSONError `json:"error,omitempty"`
}

// GetErrorMsg returns a human readable message for a failed binding validation.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return " must be greater than " + fe.Param()
	case "max":
		return " must be less than " + fe.Param()
	case "currency":
		return " is not supported"
	case "identity":
		return " is not a valid DNI/NIE"
	case "oneof":
		return " must be one of " + fe.Param()
	default:
		return " is invalid"
	}
}
