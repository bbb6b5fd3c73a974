// Package response builds the JSON envelope every handler answers with:
// {"status": "OK"|"Error", "message": ..., "data": ..., "error": ...}.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nusapalma/nusapalma/internal/apperr"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
)

// Response is the standard envelope.
type Response struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse documents failures in the OpenAPI annotations.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"Paket langganan tidak valid"`
}

const (
	// StatusOK marks a successful response.
	StatusOK = "OK"
	// StatusError marks a failed response.
	StatusError = "Error"

	// MsgInvalidBody is returned for bodies that are not valid JSON.
	MsgInvalidBody = "Format request tidak valid"
	// MsgValidationFailed heads the list of field errors.
	MsgValidationFailed = "Validasi gagal"
	// MsgInternal hides unexpected failures from clients.
	MsgInternal = "Terjadi kesalahan pada server"
)

// OK returns a successful envelope.
func OK(message string, data any) Response {
	return Response{
		Status:  StatusOK,
		Message: message,
		Data:    data,
	}
}

// Error returns a failed envelope carrying msg.
func Error(msg string, details ...string) Response {
	return Response{
		Status:  StatusError,
		Error:   msg,
		Details: details,
	}
}

// ValidationError lists every failed field rule.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s wajib diisi", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s harus berupa email yang valid", err.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s minimal %s karakter", err.Field(), err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s maksimal %s karakter", err.Field(), err.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s harus salah satu dari: %s", err.Field(), err.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("field %s minimal %s", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s tidak valid", err.Field()))
		}
	}
	return Error(MsgValidationFailed, msgs...)
}

// RenderError writes err with the status of its kind. Errors without a
// user-facing message are logged and reported as MsgInternal.
func RenderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}

	var details []string
	var e *apperr.Error
	if errors.As(err, &e) {
		details = e.Details
	}
	render.Status(r, status)
	render.JSON(w, r, Error(apperr.Message(err, MsgInternal), details...))
}

// RenderInvalid writes a 400 for a request that failed decoding or validation.
func RenderInvalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error(MsgInvalidBody))
}
