package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"feedesk/internal/core"
	"feedesk/internal/notify"
)

// JSONResponseBuilder provides a fluent API for building API responses.
// Bodies are wrapped as {"data": ..., "notification": {...}} or
// {"error": "..."}.
type JSONResponseBuilder struct {
	statusCode   int
	data         any
	errMsg       string
	notification *notification
	headers      map[string]string
}

type notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type envelope struct {
	Data         any           `json:"data"`
	Error        string        `json:"error,omitempty"`
	Notification *notification `json:"notification,omitempty"`
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Notify attaches a toast-style notification for the page.
func (b *JSONResponseBuilder) Notify(kind notify.Kind, message string) *JSONResponseBuilder {
	b.notification = &notification{Type: string(kind), Message: message}
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(envelope{
		Data:         b.data,
		Error:        b.errMsg,
		Notification: b.notification,
	})
}

// ErrorResponse creates an error response carrying message as both the
// error and an error notification.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode).Notify(notify.KindError, message)
	b.errMsg = message
	return b
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// FromError maps a ledger or validation error to its status code.
func FromError(err error) *JSONResponseBuilder {
	return ErrorResponse(statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	// A timed-out ledger call arrives wrapped in a TransportError.
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownStudent):
		return http.StatusNotFound
	case errors.Is(err, core.ErrRemoteLedger):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
